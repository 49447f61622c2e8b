// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. The iteration count is embedded in every encoded hash,
// so it can be raised later without invalidating stored credentials.
const (
	DefaultHashIterations = 100_000
	pbkdf2Algorithm       = "pbkdf2"
	pbkdf2PRF             = "sha256"
	pbkdf2SaltLen         = 16 // salt length in bytes
	pbkdf2KeyLen          = 32 // derived key length in bytes
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code(CodeValidation).Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted, self-describing hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether the password matches the encoded hash.
	// Malformed or unrecognized input yields false, never a panic;
	// the input may be attacker-controlled.
	Verify(password, encoded string) bool
}

// PBKDF2Hasher implements PasswordHasher using PBKDF2-HMAC-SHA256.
type PBKDF2Hasher struct {
	iterations int
}

// NewPBKDF2Hasher creates a PBKDF2Hasher with the given iteration count.
// Non-positive values fall back to DefaultHashIterations.
func NewPBKDF2Hasher(iterations int) *PBKDF2Hasher {
	if iterations <= 0 {
		iterations = DefaultHashIterations
	}
	return &PBKDF2Hasher{iterations: iterations}
}

// Hash derives a key from the password with a fresh random salt and encodes
// it as "pbkdf2$sha256$<iterations>$<salt>$<key>" with base64 salt and key.
func (h *PBKDF2Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, pbkdf2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := pbkdf2.Key([]byte(password), salt, h.iterations, pbkdf2KeyLen, sha256.New)

	encoded := fmt.Sprintf(
		"%s$%s$%d$%s$%s",
		pbkdf2Algorithm,
		pbkdf2PRF,
		h.iterations,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	)

	return encoded, nil
}

// Verify recomputes the derived key with the salt and iteration count
// embedded in the encoded hash and compares in constant time.
func (h *PBKDF2Hasher) Verify(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		return false
	}
	if parts[0] != pbkdf2Algorithm || parts[1] != pbkdf2PRF {
		return false
	}

	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil || len(salt) == 0 {
		return false
	}

	expected, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(expected) == 0 {
		return false
	}

	computed := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)

	return subtle.ConstantTimeCompare(computed, expected) == 1
}

// Compile-time interface check.
var _ PasswordHasher = (*PBKDF2Hasher)(nil)
