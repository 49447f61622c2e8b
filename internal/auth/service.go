// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// DefaultRefreshTTL bounds the lifetime of a refresh token.
const DefaultRefreshTTL = 14 * 24 * time.Hour

// dummyPasswordHash is verified when a login targets an unknown identity so
// that response time stays flat. This is NOT a real credential - the
// all-zero salt and key will never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "pbkdf2$sha256$100000$AAAAAAAAAAAAAAAAAAAAAA==$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="

// AuthResult is returned by the login and refresh use cases: a signed
// access token, the paired opaque refresh token, and a user summary.
type AuthResult struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	UserID           int64     `json:"user_id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Roles            []string  `json:"roles"`
}

// Service sequences the credential components against the store. Each
// method is one request-scoped unit of work; retries are a caller concern.
type Service struct {
	users      UserRepository
	roles      RoleRepository
	tokens     RefreshTokenRepository
	hasher     PasswordHasher
	issuer     *TokenIssuer
	refreshTTL time.Duration
	logger     *slog.Logger
}

// NewService creates a Service. A non-positive refreshTTL falls back to
// DefaultRefreshTTL.
func NewService(
	users UserRepository,
	roles RoleRepository,
	tokens RefreshTokenRepository,
	hasher PasswordHasher,
	issuer *TokenIssuer,
	refreshTTL time.Duration,
) (*Service, error) {
	return NewServiceWithLogger(users, roles, tokens, hasher, issuer, refreshTTL, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(
	users UserRepository,
	roles RoleRepository,
	tokens RefreshTokenRepository,
	hasher PasswordHasher,
	issuer *TokenIssuer,
	refreshTTL time.Duration,
	logger *slog.Logger,
) (*Service, error) {
	if users == nil {
		return nil, oops.Code(CodeConfigInvalid).Errorf("user repository is required")
	}
	if roles == nil {
		return nil, oops.Code(CodeConfigInvalid).Errorf("role repository is required")
	}
	if tokens == nil {
		return nil, oops.Code(CodeConfigInvalid).Errorf("refresh token repository is required")
	}
	if hasher == nil {
		return nil, oops.Code(CodeConfigInvalid).Errorf("password hasher is required")
	}
	if issuer == nil {
		return nil, oops.Code(CodeConfigInvalid).Errorf("token issuer is required")
	}
	if logger == nil {
		return nil, oops.Code(CodeConfigInvalid).Errorf("logger is required")
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}

	return &Service{
		users:      users,
		roles:      roles,
		tokens:     tokens,
		hasher:     hasher,
		issuer:     issuer,
		refreshTTL: refreshTTL,
		logger:     logger,
	}, nil
}

// Register creates a user with a hashed password and its initial role
// membership in one atomic write. When roleID is nil the default "user"
// role is assigned. Username and email collisions are detected by the
// store's uniqueness constraints, not by a check-then-insert.
func (s *Service) Register(ctx context.Context, username, email, password string, roleID *int16) (*User, error) {
	username = NormalizeIdentifier(username)
	email = NormalizeIdentifier(email)

	if username == "" || email == "" || password == "" {
		return nil, oops.Code(CodeValidation).Errorf("username, email, and password are required")
	}

	rid := DefaultRoleID
	if roleID != nil {
		rid = *roleID
		if _, err := s.roles.GetByID(ctx, rid); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, oops.Code(CodeValidation).
					With("role_id", rid).
					Errorf("unknown role")
			}
			return nil, oops.Code("AUTH_REGISTER_FAILED").
				With("operation", "get role by id").
				Wrap(err)
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, email, hash, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user, rid); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, oops.Code(CodeAlreadyExists).Errorf("username or email already exists")
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login authenticates a username or email plus password and, on success,
// issues an access/refresh token pair. Unknown identity and wrong password
// return the identical error so neither field is revealed; a dummy hash is
// verified when the identity is unknown to keep response time flat.
func (s *Service) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = NormalizeIdentifier(identifier)

	user, lookupErr := s.users.GetByIdentifier(ctx, identifier)

	targetHash := dummyPasswordHash
	userExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by identifier").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid := s.hasher.Verify(password, targetHash)

	if !userExists || !valid {
		return nil, oops.Code(CodeInvalidCredentials).Errorf("invalid credentials")
	}

	if !user.Active {
		return nil, oops.Code(CodeInactiveAccount).Errorf("account is inactive")
	}

	roles, err := s.users.RoleNames(ctx, user.ID)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get role names").
			Wrap(err)
	}

	now := time.Now().UTC()

	access, accessExpiry, err := s.issuer.Issue(NewClaims(user, roles), now)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue access token").
			Wrap(err)
	}

	opaque, err := GenerateRefreshToken()
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate refresh token").
			Wrap(err)
	}

	refresh, err := NewRefreshToken(user.ID, opaque, now, s.refreshTTL)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create refresh token").
			Wrap(err)
	}

	if err := s.tokens.Create(ctx, refresh); err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "persist refresh token").
			Wrap(err)
	}

	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)

	return s.authResult(user, roles, access, accessExpiry, refresh), nil
}

// Refresh rotates a presented refresh token and issues a new access token.
// Claims are rebuilt from the current role membership, so role changes take
// effect here rather than on outstanding access tokens. Absent, expired,
// and revoked tokens all fail with the same error.
func (s *Service) Refresh(ctx context.Context, presented string) (*AuthResult, error) {
	if presented == "" {
		return nil, oops.Code(CodeInvalidToken).Errorf("invalid refresh token")
	}

	opaque, err := GenerateRefreshToken()
	if err != nil {
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "generate refresh token").
			Wrap(err)
	}

	now := time.Now().UTC()

	refresh, err := s.tokens.Rotate(ctx, presented, opaque, now, s.refreshTTL)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeInvalidToken).Errorf("invalid refresh token")
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "rotate refresh token").
			Wrap(err)
	}

	user, err := s.users.GetByID(ctx, refresh.UserID)
	if err != nil {
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get user by id").
			With("user_id", refresh.UserID).
			Wrap(err)
	}

	roles, err := s.users.RoleNames(ctx, user.ID)
	if err != nil {
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get role names").
			Wrap(err)
	}

	access, accessExpiry, err := s.issuer.Issue(NewClaims(user, roles), now)
	if err != nil {
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "issue access token").
			Wrap(err)
	}

	s.logger.Debug("refresh token rotated", "user_id", user.ID)

	return s.authResult(user, roles, access, accessExpiry, refresh), nil
}

// GetUser returns the user behind a verified subject claim together with
// its current role names. A subject whose user no longer exists gets the
// same error an invalid token would.
func (s *Service) GetUser(ctx context.Context, userID int64) (*User, []string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, oops.Code(CodeAccessTokenInvalid).
				With("user_id", userID).
				Errorf("invalid access token")
		}
		return nil, nil, oops.Code("AUTH_GET_USER_FAILED").
			With("operation", "get user by id").
			With("user_id", userID).
			Wrap(err)
	}

	roles, err := s.users.RoleNames(ctx, userID)
	if err != nil {
		return nil, nil, oops.Code("AUTH_GET_USER_FAILED").
			With("operation", "get role names").
			With("user_id", userID).
			Wrap(err)
	}

	return user, roles, nil
}

// Revoke marks the matching refresh token revoked and reports whether a
// record with that token exists. Revoking twice is a no-op success.
func (s *Service) Revoke(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	found, err := s.tokens.Revoke(ctx, token)
	if err != nil {
		return false, oops.Code("AUTH_REVOKE_FAILED").
			With("operation", "revoke refresh token").
			Wrap(err)
	}
	return found, nil
}

// Logout revokes every active refresh token owned by the user behind the
// given username or email. It returns false when no such user exists.
func (s *Service) Logout(ctx context.Context, identifier string) (bool, error) {
	identifier = NormalizeIdentifier(identifier)

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "get user by identifier").
			Wrap(err)
	}

	revoked, err := s.tokens.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return false, oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "revoke all refresh tokens").
			With("user_id", user.ID).
			Wrap(err)
	}

	s.logger.Info("user logged out", "user_id", user.ID, "tokens_revoked", revoked)
	return true, nil
}

func (s *Service) authResult(user *User, roles []string, access string, accessExpiry time.Time, refresh *RefreshToken) *AuthResult {
	claims := NewClaims(user, roles)
	return &AuthResult{
		AccessToken:      access,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
		UserID:           user.ID,
		Username:         user.Username,
		Email:            user.Email,
		Roles:            claims.Roles,
	}
}
