// Package auth hashes and verifies user passwords. The store only ever sees
// the hashes produced here.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

var ErrWeakPassword = errors.New("password must be at least 8 characters")

// MinPasswordLength is enforced by ValidatePassword.
const MinPasswordLength = 8

// legacyPrefix marks werkzeug-style hashes: pbkdf2:sha256:<iter>$<salt>$<hex>.
const legacyPrefix = "pbkdf2:sha256"

// legacyDefaultIterations is used when a legacy hash omits the count.
const legacyDefaultIterations = 600000

// ValidatePassword checks the minimum strength requirement.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// Hash returns a bcrypt hash of password.
func Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether password matches hash. It accepts bcrypt hashes and
// the pbkdf2:sha256 format written by older deployments.
func Verify(hash, password string) bool {
	if hash == "" {
		return false
	}
	if strings.HasPrefix(hash, legacyPrefix) {
		return verifyLegacy(hash, password)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NeedsRehash reports whether hash should be replaced with a bcrypt hash on
// the next successful login.
func NeedsRehash(hash string) bool {
	return strings.HasPrefix(hash, legacyPrefix)
}

func verifyLegacy(hash, password string) bool {
	method, rest, ok := strings.Cut(hash, "$")
	if !ok {
		return false
	}
	salt, want, ok := strings.Cut(rest, "$")
	if !ok {
		return false
	}

	iterations := legacyDefaultIterations
	if parts := strings.Split(method, ":"); len(parts) == 3 {
		n, err := strconv.Atoi(parts[2])
		if err != nil || n <= 0 {
			return false
		}
		iterations = n
	}

	expected, err := hex.DecodeString(want)
	if err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(password), []byte(salt), iterations, sha256.Size, sha256.New)
	return subtle.ConstantTimeCompare(got, expected) == 1
}
