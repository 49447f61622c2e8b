// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"slices"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Claims is the assertion set embedded in an access token: the registered
// JWT claims plus identity and role assertions.
type Claims struct {
	jwt.RegisteredClaims
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Active   bool     `json:"active"`
	Roles    []string `json:"roles,omitempty"`
}

// NewClaims builds the claim set for a user. The subject is the decimal
// user id; role names are sorted so the claim set is deterministic for a
// given membership set. Issuer, audience, and time bounds are stamped by
// the TokenIssuer.
func NewClaims(user *User, roleNames []string) *Claims {
	roles := slices.Clone(roleNames)
	slices.Sort(roles)

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: strconv.FormatInt(user.ID, 10),
		},
		Username: user.Username,
		Email:    user.Email,
		Active:   user.Active,
		Roles:    roles,
	}
}

// UserID parses the subject claim back into a user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, oops.Code(CodeAccessTokenInvalid).
			With("subject", c.Subject).
			Wrap(err)
	}
	return id, nil
}

// HasRole reports whether the claim set asserts the given role.
func (c *Claims) HasRole(name string) bool {
	return slices.Contains(c.Roles, name)
}
