package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// opaqueTokenBytes gives refresh tokens 256 bits of entropy.
const opaqueTokenBytes = 32

// OpaqueToken is a bearer secret handed to the client once. Only Fingerprint
// is stored server side.
type OpaqueToken struct {
	Value       string
	Fingerprint string
}

// NewOpaqueToken draws a random base64url token and fingerprints it.
func NewOpaqueToken() (OpaqueToken, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return OpaqueToken{}, fmt.Errorf("failed to generate token: %w", err)
	}
	value := base64.RawURLEncoding.EncodeToString(buf)
	return OpaqueToken{Value: value, Fingerprint: Fingerprint(value)}, nil
}

// Fingerprint is the lookup key for a presented token: base64url SHA-256.
func Fingerprint(value string) string {
	sum := sha256.Sum256([]byte(value))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
