// Package auth gates the HTTP surface behind a single shared password.
// Only the SHA-256 digest of the password is ever stored or compared.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// DefaultHash is the digest of the out-of-the-box password. Deployments
// override it via configuration.
const DefaultHash = "130568a3fc17054bfe36db359792c487f3a3debd226942fc2394688a7afe8339"

var ErrBadCredentials = errors.New("invalid password")

// Gate verifies passwords against a stored SHA-256 hex digest.
type Gate struct {
	hash []byte
}

// NewGate builds a gate from a hex digest. An empty digest falls back to
// DefaultHash.
func NewGate(hexHash string) (*Gate, error) {
	if hexHash == "" {
		hexHash = DefaultHash
	}
	raw, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(hexHash)))
	if err != nil {
		return nil, errors.New("password hash is not valid hex")
	}
	if len(raw) != sha256.Size {
		return nil, errors.New("password hash must be a SHA-256 digest")
	}
	return &Gate{hash: raw}, nil
}

// Verify checks a cleartext password in constant time.
func (g *Gate) Verify(password string) error {
	sum := sha256.Sum256([]byte(password))
	if subtle.ConstantTimeCompare(sum[:], g.hash) != 1 {
		return ErrBadCredentials
	}
	return nil
}

// HashPassword returns the hex digest used for configuration.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
