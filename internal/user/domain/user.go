package domain

import (
	"strings"
	"time"
)

// Role is the single role a principal holds. There is no hierarchy between roles.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Roles lists every valid role.
var Roles = []Role{RoleCustomer, RoleManager, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// ParseRole returns the role named by s (case-insensitive) and whether it is known.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// User is the public view of a principal. It never carries the password hash.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Role      Role
	TenantID  *int64 // weak reference; nil when the principal belongs to no tenant
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credential is a principal together with its bcrypt hash. Only the login path reads it.
type Credential struct {
	User
	PasswordHash string
}

// NormalizeEmail lowercases and trims e-mail addresses before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
