// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultAccessTTL bounds the lifetime of an access token.
const DefaultAccessTTL = 15 * time.Minute

// IssuerConfig holds the signing parameters shared between issuance and
// verification. All fields except AccessTTL are required; defects here are
// fatal startup conditions, never per-request errors.
type IssuerConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
}

// Validate checks the required signing parameters.
func (c IssuerConfig) Validate() error {
	if c.SigningKey == "" {
		return oops.Code(CodeConfigInvalid).Errorf("signing key is required")
	}
	if c.Issuer == "" {
		return oops.Code(CodeConfigInvalid).Errorf("issuer is required")
	}
	if c.Audience == "" {
		return oops.Code(CodeConfigInvalid).Errorf("audience is required")
	}
	return nil
}

// TokenIssuer signs and verifies HMAC-SHA256 access tokens. The symmetric
// key is shared with any compliant verifier, so tokens are checkable
// without a round-trip to this service.
type TokenIssuer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewTokenIssuer creates a TokenIssuer from validated configuration.
// A zero AccessTTL falls back to DefaultAccessTTL.
func NewTokenIssuer(cfg IssuerConfig) (*TokenIssuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}

	return &TokenIssuer{
		key:      []byte(cfg.SigningKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
	}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (i *TokenIssuer) AccessTTL() time.Duration {
	return i.ttl
}

// Issue stamps the claim set with issuer, audience, a ULID token id, and
// time bounds [now, now+ttl], then signs it. It returns the compact token
// and its expiry.
func (i *TokenIssuer) Issue(claims *Claims, now time.Time) (string, time.Time, error) {
	if claims == nil {
		return "", time.Time{}, oops.Code("AUTH_ISSUE_FAILED").Errorf("claims cannot be nil")
	}

	expiresAt := now.Add(i.ttl)

	claims.Issuer = i.issuer
	claims.Audience = jwt.ClaimStrings{i.audience}
	claims.ID = ulid.Make().String()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, oops.Code("AUTH_ISSUE_FAILED").
			With("operation", "sign access token").
			Wrap(err)
	}

	return token, expiresAt, nil
}

// Verify parses an access token and validates its signature, issuer,
// audience, and time bounds, returning the embedded claims. Any defect
// yields the same error code so callers cannot probe token state.
func (i *TokenIssuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims,
		func(_ *jwt.Token) (any, error) { return i.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
	)
	if err != nil {
		return nil, oops.Code(CodeAccessTokenInvalid).Wrap(err)
	}
	if !parsed.Valid {
		return nil, oops.Code(CodeAccessTokenInvalid).Errorf("invalid access token")
	}

	return claims, nil
}
