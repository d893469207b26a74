package domain

import (
	"errors"
	"strings"
	"time"
)

// Field limits, matching the tenants table.
const (
	MaxNameLen    = 100
	MaxAddressLen = 255
)

// Tenant is an organisation principals may belong to.
type Tenant struct {
	ID        int64
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate validates the tenant for persistence. Returns an error describing the first validation failure.
func (t *Tenant) Validate() error {
	t.Name = strings.TrimSpace(t.Name)
	t.Address = strings.TrimSpace(t.Address)
	switch {
	case t.Name == "":
		return errors.New("Tenant name is required!")
	case len(t.Name) > MaxNameLen:
		return errors.New("Tenant name should be less than 100 characters")
	case t.Address == "":
		return errors.New("Tenant address is required!")
	case len(t.Address) > MaxAddressLen:
		return errors.New("Tenant address should be less than 255 characters")
	}
	return nil
}
