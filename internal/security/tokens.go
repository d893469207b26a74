package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, signed with the wrong
	// key or algorithm, or carries claims of the wrong shape.
	ErrInvalidToken = errors.New("invalid token")
)

// KeyRef selects which key and algorithm a token is verified against.
type KeyRef int

const (
	// AccessKey verifies RS256 access tokens with the RSA public key.
	AccessKey KeyRef = iota + 1
	// RefreshKey verifies HS256 refresh tokens with the HMAC secret.
	RefreshKey
)

// TokenCodec signs and verifies access (RS256) and refresh (HS256) JWTs.
type TokenCodec struct {
	keys       *KeyProvider
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec returns a TokenCodec that signs with keys and stamps issuer and lifetimes on claims.
func NewTokenCodec(keys *KeyProvider, issuer string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		keys:       keys,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// RefreshTTL is the lifetime stamped on refresh tokens; refresh records use the same horizon.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// SignAccess signs claims with the RSA private key. Issuer, iat and exp are filled in when unset.
func (c *TokenCodec) SignAccess(claims AccessClaims) (string, error) {
	key, err := c.keys.AccessSigningKey()
	if err != nil {
		return "", err
	}
	c.stamp(&claims.RegisteredClaims, c.accessTTL)
	return jwt.NewWithClaims(jwt.SigningMethodRS256, &claims).SignedString(key)
}

// SignRefresh signs claims with the HMAC refresh secret. Issuer, iat and exp are filled in when unset.
func (c *TokenCodec) SignRefresh(claims RefreshClaims) (string, error) {
	secret, err := c.keys.RefreshSecret()
	if err != nil {
		return "", err
	}
	c.stamp(&claims.RegisteredClaims, c.refreshTTL)
	return jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(secret)
}

func (c *TokenCodec) stamp(rc *jwt.RegisteredClaims, ttl time.Duration) {
	now := c.now().UTC()
	if rc.Issuer == "" {
		rc.Issuer = c.issuer
	}
	if rc.IssuedAt == nil {
		rc.IssuedAt = jwt.NewNumericDate(now)
	}
	if rc.ExpiresAt == nil {
		rc.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
}

// Verify parses token against the key named by ref and returns the matching claims variant.
// Signature, algorithm, expiry, issuer and claim shape are all checked; any failure is
// ErrInvalidToken. Missing key material is ErrConfiguration.
func (c *TokenCodec) Verify(token string, ref KeyRef) (Claims, error) {
	var (
		claims Claims
		method string
		key    any
		err    error
	)
	switch ref {
	case AccessKey:
		claims, method = &AccessClaims{}, jwt.SigningMethodRS256.Alg()
		key, err = c.keys.AccessVerificationKey()
	case RefreshKey:
		claims, method = &RefreshClaims{}, jwt.SigningMethodHS256.Alg()
		key, err = c.keys.RefreshSecret()
	default:
		return nil, fmt.Errorf("%w: unknown key reference %d", ErrConfiguration, ref)
	}
	if err != nil {
		return nil, err
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{method}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAccess verifies an access token and returns its typed claims.
func (c *TokenCodec) VerifyAccess(token string) (*AccessClaims, error) {
	claims, err := c.Verify(token, AccessKey)
	if err != nil {
		return nil, err
	}
	return claims.(*AccessClaims), nil
}

// VerifyRefresh verifies a refresh token and returns its typed claims.
func (c *TokenCodec) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims, err := c.Verify(token, RefreshKey)
	if err != nil {
		return nil, err
	}
	return claims.(*RefreshClaims), nil
}
