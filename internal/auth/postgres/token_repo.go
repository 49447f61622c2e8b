// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
)

// RefreshTokenRepository implements auth.RefreshTokenRepository using
// PostgreSQL. Token records are never deleted; revocation sets revoked_at.
type RefreshTokenRepository struct {
	pool pool
}

// NewRefreshTokenRepository creates a new RefreshTokenRepository.
func NewRefreshTokenRepository(pool pool) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool}
}

// Create stores a new refresh token record.
func (r *RefreshTokenRepository) Create(ctx context.Context, token *auth.RefreshToken) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO refresh_tokens (user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`,
		token.UserID,
		token.Token,
		token.ExpiresAt,
		token.CreatedAt,
	).Scan(&token.ID)
	if err != nil {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("operation", "insert refresh token").
			With("user_id", token.UserID).
			Wrap(err)
	}
	return nil
}

// GetByToken retrieves a record by its opaque token string.
func (r *RefreshTokenRepository) GetByToken(ctx context.Context, token string) (*auth.RefreshToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, token, expires_at, created_at, revoked_at
		FROM refresh_tokens
		WHERE token = $1
	`, token)

	rt, err := scanRefreshToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_GET_FAILED").
			With("operation", "get refresh token").
			Wrap(err)
	}
	return rt, nil
}

// Rotate revokes the record matching oldToken and inserts a replacement in
// one transaction. The UPDATE's WHERE clause only matches an active record,
// so of two concurrent rotations of the same token exactly one sees an
// affected row; the loser gets ErrNotFound like any stale token.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldToken, newToken string, now time.Time, ttl time.Duration) (*auth.RefreshToken, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, oops.Code("TOKEN_ROTATE_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer func() {
		// Rollback is a no-op if tx was committed; error is safe to ignore
		_ = tx.Rollback(ctx) //nolint:errcheck // Rollback error after commit is meaningless
	}()

	var userID int64
	err = tx.QueryRow(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE token = $1 AND revoked_at IS NULL AND expires_at > $2
		RETURNING user_id
	`, oldToken, now).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Absent, expired, and revoked all land here on purpose.
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_ROTATE_FAILED").
			With("operation", "revoke old token").
			Wrap(err)
	}

	replacement := &auth.RefreshToken{
		UserID:    userID,
		Token:     newToken,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO refresh_tokens (user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`,
		replacement.UserID,
		replacement.Token,
		replacement.ExpiresAt,
		replacement.CreatedAt,
	).Scan(&replacement.ID)
	if err != nil {
		return nil, oops.Code("TOKEN_ROTATE_FAILED").
			With("operation", "insert replacement token").
			With("user_id", userID).
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, oops.Code("TOKEN_ROTATE_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}

	return replacement, nil
}

// Revoke marks the matching record revoked and reports whether a record
// with that token exists. Already-revoked records are left untouched so
// revoked_at keeps the original revocation time.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, token string) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE token = $1 AND revoked_at IS NULL
	`, token, time.Now().UTC())
	if err != nil {
		return false, oops.Code("TOKEN_REVOKE_FAILED").
			With("operation", "revoke refresh token").
			Wrap(err)
	}
	if result.RowsAffected() > 0 {
		return true, nil
	}

	// Nothing updated: distinguish an already-revoked record from a token
	// that never existed.
	var exists bool
	err = r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM refresh_tokens WHERE token = $1)
	`, token).Scan(&exists)
	if err != nil {
		return false, oops.Code("TOKEN_REVOKE_FAILED").
			With("operation", "check token existence").
			Wrap(err)
	}
	return exists, nil
}

// RevokeAllForUser revokes every unrevoked record owned by the user and
// returns the number of records updated.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID, time.Now().UTC())
	if err != nil {
		return 0, oops.Code("TOKEN_REVOKE_ALL_FAILED").
			With("operation", "revoke all refresh tokens").
			With("user_id", userID).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanRefreshToken scans a single row into a RefreshToken.
// Callers are responsible for handling pgx.ErrNoRows.
func scanRefreshToken(row pgx.Row) (*auth.RefreshToken, error) {
	var rt auth.RefreshToken
	err := row.Scan(
		&rt.ID,
		&rt.UserID,
		&rt.Token,
		&rt.ExpiresAt,
		&rt.CreatedAt,
		&rt.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// Compile-time interface check.
var _ auth.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
