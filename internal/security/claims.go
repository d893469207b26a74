package security

import (
	"errors"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"auth-service/internal/user/domain"
)

// Kind tags which of the two token kinds a Claims value came from.
type Kind int

const (
	KindAccess Kind = iota + 1
	KindRefresh
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Claims is implemented only by *AccessClaims and *RefreshClaims.
type Claims interface {
	jwt.Claims
	Kind() Kind
	// PrincipalID is the subject parsed as a user id. Valid only after verification.
	PrincipalID() int64
	PrincipalRole() domain.Role
	sealed()
}

// AccessClaims holds JWT claims for the RS256 access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role domain.Role `json:"role"`

	userID int64
}

// NewAccessClaims returns access claims for the given principal. Issuer and lifetimes are
// stamped by the TokenCodec when signing.
func NewAccessClaims(userID int64, role domain.Role) AccessClaims {
	return AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.FormatInt(userID, 10)},
		Role:             role,
		userID:           userID,
	}
}

func (*AccessClaims) Kind() Kind                   { return KindAccess }
func (c *AccessClaims) PrincipalID() int64         { return c.userID }
func (c *AccessClaims) PrincipalRole() domain.Role { return c.Role }
func (*AccessClaims) sealed()                      {}

// Validate is called by the jwt parser after the registered claims pass.
func (c *AccessClaims) Validate() error {
	id, err := parseSubject(c.Subject)
	if err != nil {
		return err
	}
	if !c.Role.Valid() {
		return errors.New("unknown role")
	}
	c.userID = id
	return nil
}

// RefreshClaims holds JWT claims for the HS256 refresh token. RecordID names the persisted
// refresh token record and is repeated as the jti.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Role     domain.Role `json:"role"`
	RecordID int64       `json:"id"`

	userID int64
}

// NewRefreshClaims returns refresh claims bound to the persisted record recordID.
func NewRefreshClaims(userID int64, role domain.Role, recordID int64) RefreshClaims {
	return RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: strconv.FormatInt(userID, 10),
			ID:      strconv.FormatInt(recordID, 10),
		},
		Role:     role,
		RecordID: recordID,
		userID:   userID,
	}
}

func (*RefreshClaims) Kind() Kind                   { return KindRefresh }
func (c *RefreshClaims) PrincipalID() int64         { return c.userID }
func (c *RefreshClaims) PrincipalRole() domain.Role { return c.Role }
func (*RefreshClaims) sealed()                      {}

// Validate is called by the jwt parser after the registered claims pass.
func (c *RefreshClaims) Validate() error {
	id, err := parseSubject(c.Subject)
	if err != nil {
		return err
	}
	if !c.Role.Valid() {
		return errors.New("unknown role")
	}
	if c.RecordID <= 0 {
		return errors.New("missing token id")
	}
	if c.ID != strconv.FormatInt(c.RecordID, 10) {
		return errors.New("jti does not match token id")
	}
	c.userID = id
	return nil
}

func parseSubject(sub string) (int64, error) {
	if sub == "" {
		return 0, errors.New("missing subject")
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("subject is not a user id")
	}
	return id, nil
}
