package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	// APITokenPrefix marks registry API tokens so they are recognisable in
	// configs and leaked-secret scanners.
	APITokenPrefix = "cio_"

	// apiTokenBytes is the amount of randomness in a secret (256 bits).
	apiTokenBytes = 32

	// displayPrefixLen is how much of the encoded part is kept for display.
	displayPrefixLen = 8
)

// GenerateAPIToken creates a new API token secret.
//
// Format: cio_<base64url(32 random bytes)>
//
// It returns the plaintext secret (shown to the owner once), the SHA-256 hex
// digest that is stored and looked up, and a short display prefix.
func GenerateAPIToken() (secret, hash, prefix string, err error) {
	raw := make([]byte, apiTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", "", fmt.Errorf("auth: generating token bytes: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(raw)
	secret = APITokenPrefix + encoded
	return secret, HashAPIToken(secret), APITokenPrefix + encoded[:displayPrefixLen], nil
}

// HashAPIToken returns the digest under which a secret is stored.
// The lookup is an exact match on this value.
func HashAPIToken(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
