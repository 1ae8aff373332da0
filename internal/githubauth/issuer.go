// Package githubauth issues short-lived signed assertions (JWTs) used
// to authenticate to GitHub as an installed App.
package githubauth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshSkew is how long before expiry a cached assertion is replaced.
// A token handed to a caller is therefore still valid by the time it
// reaches the upstream.
const refreshSkew = 30 * time.Second

// SigningError reports unusable key material. Every call depending on
// the credential path fails with it until the key is fixed; there is
// no point retrying without operator intervention.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("sign app assertion: %v", e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// Issuer signs RS256 assertions for a GitHub App and caches the
// current one until shortly before its expiry.
type Issuer struct {
	clientID string
	key      *rsa.PrivateKey
	ttl      time.Duration

	now func() time.Time

	mu      sync.Mutex
	cached  string
	expires time.Time
}

// New creates an issuer for the given App client ID and private key.
// Assertions are valid for ttl starting at signing time.
func New(clientID string, key *rsa.PrivateKey, ttl time.Duration) *Issuer {
	return &Issuer{
		clientID: clientID,
		key:      key,
		ttl:      ttl,
		now:      time.Now,
	}
}

// LoadPrivateKey reads and parses a PEM-encoded RSA private key.
// Called at startup so broken key material fails the boot, not the
// first request.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// Token returns a signed assertion whose expiry is strictly in the
// future. The cached assertion is reused until it is within
// refreshSkew of expiring; regeneration happens under the mutex, so
// concurrent callers observe either the previous valid assertion or
// the next one, never a partial value.
func (i *Issuer) Token() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.key == nil {
		return "", &SigningError{Err: errors.New("missing private key")}
	}

	now := i.now()
	if i.cached != "" && now.Before(i.expires.Add(-refreshSkew)) {
		return i.cached, nil
	}

	expires := now.Add(i.ttl)
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		Issuer:    i.clientID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(i.key)
	if err != nil {
		return "", &SigningError{Err: err}
	}

	i.cached = signed
	i.expires = expires
	return signed, nil
}
