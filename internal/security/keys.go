package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrConfiguration is returned when key material is missing or unreadable.
	ErrConfiguration = errors.New("security: key material misconfigured")
	// ErrInvalidKey is returned when PEM or key type is invalid.
	ErrInvalidKey = errors.New("invalid key")
)

// minRefreshSecretLen is the shortest HMAC secret accepted for refresh tokens.
const minRefreshSecretLen = 16

// KeyProvider holds the signing material for both token kinds. It is built once at
// startup and never mutated, so it is safe to share across goroutines.
type KeyProvider struct {
	private       *rsa.PrivateKey
	public        *rsa.PublicKey
	refreshSecret []byte
}

// NewKeyProvider parses the access-token key pair and the refresh secret. privateKey and
// publicKey may be inline PEM (literal \n allowed) or file paths. An empty publicKey is
// derived from the private key. Any missing or unparsable input wraps ErrConfiguration.
func NewKeyProvider(privateKey, publicKey, refreshSecret string) (*KeyProvider, error) {
	if strings.TrimSpace(privateKey) == "" {
		return nil, fmt.Errorf("%w: private key not set", ErrConfiguration)
	}
	priv, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %w", ErrConfiguration, err)
	}
	pub := &priv.PublicKey
	if strings.TrimSpace(publicKey) != "" {
		pub, err = ParsePublicKey(publicKey)
		if err != nil {
			return nil, fmt.Errorf("%w: public key: %w", ErrConfiguration, err)
		}
		if !pub.Equal(&priv.PublicKey) {
			return nil, fmt.Errorf("%w: public key does not match private key", ErrConfiguration)
		}
	}
	if len(refreshSecret) < minRefreshSecretLen {
		return nil, fmt.Errorf("%w: refresh secret shorter than %d bytes", ErrConfiguration, minRefreshSecretLen)
	}
	return &KeyProvider{
		private:       priv,
		public:        pub,
		refreshSecret: []byte(refreshSecret),
	}, nil
}

// AccessSigningKey returns the RSA private key used for RS256 access tokens.
func (k *KeyProvider) AccessSigningKey() (*rsa.PrivateKey, error) {
	if k == nil || k.private == nil {
		return nil, ErrConfiguration
	}
	return k.private, nil
}

// AccessVerificationKey returns the RSA public key that verifies access tokens.
func (k *KeyProvider) AccessVerificationKey() (*rsa.PublicKey, error) {
	if k == nil || k.public == nil {
		return nil, ErrConfiguration
	}
	return k.public, nil
}

// RefreshSecret returns the HMAC secret for HS256 refresh tokens.
func (k *KeyProvider) RefreshSecret() ([]byte, error) {
	if k == nil || len(k.refreshSecret) == 0 {
		return nil, ErrConfiguration
	}
	return k.refreshSecret, nil
}

// LoadPEM reads content from path if s does not look like inline PEM; otherwise returns s as bytes.
// Inline PEM passed through env vars often carries literal "\n" sequences; those are expanded.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(strings.ReplaceAll(s, `\n`, "\n")), nil
	}
	return os.ReadFile(s)
}

// ParsePrivateKey parses a PEM-encoded RSA private key (PKCS#1 or PKCS#8). s may be inline PEM or a file path.
func ParsePrivateKey(s string) (*rsa.PrivateKey, error) {
	pemBytes, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, ErrInvalidKey
		}
		return rsaKey, nil
	default:
		return nil, ErrInvalidKey
	}
}

// ParsePublicKey parses a PEM-encoded RSA public key (PKCS#1 or PKIX). s may be inline PEM or a file path.
func ParsePublicKey(s string) (*rsa.PublicKey, error) {
	pemBytes, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, ErrInvalidKey
		}
		return rsaKey, nil
	default:
		return nil, ErrInvalidKey
	}
}

// EncodePrivateKey returns the PKCS#8 PEM encoding of key.
func EncodePrivateKey(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// EncodePublicKey returns the PKIX PEM encoding of key.
func EncodePublicKey(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
