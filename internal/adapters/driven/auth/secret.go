package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// opaqueSecretBytes is the entropy of generated secrets (256 bits)
const opaqueSecretBytes = 32

// GenerateOpaqueSecret returns a URL-safe random secret with 256 bits of entropy
func GenerateOpaqueSecret() (string, error) {
	b := make([]byte, opaqueSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Fingerprint returns the SHA-256 digest of a token, base64url-encoded.
// Sessions are stored under the fingerprint, never the token itself.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

