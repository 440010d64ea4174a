package identity

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"regexp"
	"unicode"

	"golang.org/x/crypto/argon2"
)

// argon2 parameters, fixed so every verifier byte string is comparable.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// hashPassword derives an argon2id verifier and returns `salt || hash`, the
// spec's "password verifier (opaque bytes)".
func hashPassword(password string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return append(salt, hash...), nil
}

// verifyPassword checks password against a verifier produced by hashPassword.
func verifyPassword(password string, verifier []byte) bool {
	if len(verifier) != saltLen+argonKeyLen {
		return false
	}
	salt := verifier[:saltLen]
	want := verifier[saltLen:]
	got := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(got, want) == 1
}

var (
	hasLetter = regexp.MustCompile(`\p{L}`)
	hasDigit  = regexp.MustCompile(`\d`)
)

// validatePasswordPolicy enforces §4.2 Register: >=8 chars, >=1 letter, >=1 digit.
func validatePasswordPolicy(password string) error {
	if len([]rune(password)) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if !hasLetter.MatchString(password) {
		return fmt.Errorf("password must contain at least one letter")
	}
	if !hasDigit.MatchString(password) {
		return fmt.Errorf("password must contain at least one digit")
	}
	for _, r := range password {
		if unicode.IsControl(r) {
			return fmt.Errorf("password must not contain control characters")
		}
	}
	return nil
}
