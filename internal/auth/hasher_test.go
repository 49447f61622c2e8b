// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenauth/warden/internal/auth"
)

func TestHashPassword(t *testing.T) {
	// Small iteration count keeps the test fast; the format is identical.
	hasher := auth.NewPBKDF2Hasher(1000)

	t.Run("produces valid hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "pbkdf2$sha256$1000$"))
		assert.Len(t, strings.Split(hash, "$"), 5)
	})

	t.Run("different passwords produce different hashes", func(t *testing.T) {
		hash1, err := hasher.Hash("password1")
		require.NoError(t, err)
		hash2, err := hasher.Hash("password2")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.Error(t, err)
	})

	t.Run("non-positive iterations fall back to default", func(t *testing.T) {
		hash, err := auth.NewPBKDF2Hasher(0).Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "pbkdf2$sha256$100000$"))
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := auth.NewPBKDF2Hasher(1000)

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)
		assert.True(t, hasher.Verify("correctpassword", hash))
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)
		assert.False(t, hasher.Verify("wrongpassword", hash))
	})

	t.Run("iteration count is read from the hash", func(t *testing.T) {
		// A hasher configured differently still verifies existing hashes.
		hash, err := auth.NewPBKDF2Hasher(2000).Hash("password123")
		require.NoError(t, err)
		assert.True(t, hasher.Verify("password123", hash))
	})

	t.Run("malformed hashes fail closed", func(t *testing.T) {
		malformed := []string{
			"",
			"not-a-valid-hash",
			"pbkdf2$sha256$1000$c2FsdA==",                        // missing key field
			"pbkdf2$sha256$1000$c2FsdA==$aGFzaA==$extra",         // too many fields
			"bcrypt$sha256$1000$c2FsdA==$aGFzaA==",               // wrong algorithm
			"pbkdf2$sha512$1000$c2FsdA==$aGFzaA==",               // wrong prf
			"pbkdf2$sha256$zero$c2FsdA==$aGFzaA==",               // non-numeric iterations
			"pbkdf2$sha256$0$c2FsdA==$aGFzaA==",                  // zero iterations
			"pbkdf2$sha256$-1$c2FsdA==$aGFzaA==",                 // negative iterations
			"pbkdf2$sha256$1000$!!notbase64!!$aGFzaA==",          // bad salt encoding
			"pbkdf2$sha256$1000$c2FsdA==$!!notbase64!!",          // bad key encoding
			"pbkdf2$sha256$1000$$aGFzaA==",                       // empty salt
			"pbkdf2$sha256$1000$c2FsdA==$",                       // empty key
		}
		for _, encoded := range malformed {
			assert.False(t, hasher.Verify("password", encoded), "encoded=%q", encoded)
		}
	})
}
