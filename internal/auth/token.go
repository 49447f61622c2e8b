// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/samber/oops"
)

// RefreshTokenBytes is the entropy of an opaque refresh token. 32 bytes
// encode to 43 URL-safe characters without padding.
const RefreshTokenBytes = 32

// RefreshToken is a long-lived opaque capability used to obtain new access
// tokens. Revocation is monotonic: RevokedAt is set at most once and never
// cleared. Records are retained after revocation for audit purposes.
type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// NewRefreshToken creates a validated RefreshToken owned by the given user,
// expiring ttl after now.
func NewRefreshToken(userID int64, token string, now time.Time, ttl time.Duration) (*RefreshToken, error) {
	if userID <= 0 {
		return nil, oops.Code("TOKEN_INVALID_USER").Errorf("user id must be positive")
	}
	if token == "" {
		return nil, oops.Code("TOKEN_INVALID_VALUE").Errorf("token cannot be empty")
	}
	if ttl <= 0 {
		return nil, oops.Code("TOKEN_INVALID_EXPIRY").Errorf("ttl must be positive")
	}

	return &RefreshToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// ActiveAt reports whether the token is usable at the given time: not
// revoked and not yet expired. Expiry and revocation are terminal but
// remain distinguishable by reading the two timestamp fields.
func (t *RefreshToken) ActiveAt(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// Active reports whether the token is usable now.
func (t *RefreshToken) Active() bool {
	return t.ActiveAt(time.Now())
}

// GenerateRefreshToken produces a cryptographically random, URL-safe opaque
// string. The token is stored verbatim and never parsed for claims.
func GenerateRefreshToken() (string, error) {
	buf := make([]byte, RefreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", RefreshTokenBytes).
			Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// RefreshTokenRepository manages refresh-token persistence.
type RefreshTokenRepository interface {
	// Create stores a new refresh token record.
	Create(ctx context.Context, token *RefreshToken) error

	// GetByToken retrieves a record by its opaque token string.
	GetByToken(ctx context.Context, token string) (*RefreshToken, error)

	// Rotate atomically revokes the record matching oldToken and inserts a
	// replacement for the same user with the given token and expiry
	// now.Add(ttl). It returns a wrapped ErrNotFound when no record matches
	// or the matched record is revoked or expired; the three cases are
	// deliberately indistinguishable. Of two concurrent rotations of the
	// same token exactly one succeeds.
	Rotate(ctx context.Context, oldToken, newToken string, now time.Time, ttl time.Duration) (*RefreshToken, error)

	// Revoke marks the matching record revoked if it is not already and
	// reports whether a record with that token exists at all. Revoking an
	// already-revoked token is a no-op success.
	Revoke(ctx context.Context, token string) (bool, error)

	// RevokeAllForUser revokes every unrevoked record owned by the user and
	// returns the number of records updated.
	RevokeAllForUser(ctx context.Context, userID int64) (int64, error)
}
