package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters: interactive-login cost, 64-byte derived key stored as
// "salt:hash" in base64.
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	keyLength    = 64
	saltLength   = 16
)

// HashSecret derives a storable hash for a password or transaction PIN.
func HashSecret(secret string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	derived, err := scrypt.Key([]byte(secret), salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(salt) + ":" +
		base64.StdEncoding.EncodeToString(derived), nil
}

// VerifySecret checks a candidate secret against a stored "salt:hash" value
// in constant time. A malformed stored hash verifies as false, never panics.
func VerifySecret(secret, storedHash string) bool {
	parts := strings.SplitN(storedHash, ":", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	stored, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(stored) == 0 {
		return false
	}

	derived, err := scrypt.Key([]byte(secret), salt, scryptN, scryptR, scryptP, len(stored))
	if err != nil {
		return false
	}
	return hmac.Equal(derived, stored)
}
