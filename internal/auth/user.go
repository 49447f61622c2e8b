// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Well-known role names seeded at install time.
const (
	RoleNameUser  = "user"
	RoleNameAdmin = "admin"
)

// DefaultRoleID is the role assigned at registration when none is requested.
const DefaultRoleID int16 = 1

// User is an identity record. Username and email are stored
// lowercase-normalized and are case-insensitively unique.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role is a named permission group.
type Role struct {
	ID   int16
	Name string
}

// UserRole is a user-to-role membership. It has no identity of its own;
// the (UserID, RoleID) pair is the key and is never duplicated.
type UserRole struct {
	UserID int64
	RoleID int16
}

// NormalizeIdentifier trims surrounding whitespace and lowercases a
// username or email so lookups and uniqueness are case-insensitive.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NewUser creates a validated User with normalized username and email and
// the given password hash. The caller is responsible for hashing.
func NewUser(username, email, passwordHash string, now time.Time) (*User, error) {
	username = NormalizeIdentifier(username)
	email = NormalizeIdentifier(email)

	if username == "" {
		return nil, oops.Code(CodeValidation).Errorf("username cannot be empty")
	}
	if email == "" {
		return nil, oops.Code(CodeValidation).Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeValidation).Errorf("password hash cannot be empty")
	}

	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user together with its initial role membership in
	// one atomic unit. A username or email collision surfaces as a wrapped
	// ErrDuplicate from the store's uniqueness constraints; callers must not
	// pre-check and insert separately.
	Create(ctx context.Context, user *User, roleID int16) error

	// GetByID retrieves a user by primary key.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByIdentifier retrieves a user whose username or email equals the
	// given normalized identifier.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)

	// RoleNames returns the names of all roles the user holds, sorted.
	RoleNames(ctx context.Context, userID int64) ([]string, error)
}

// RoleRepository manages role persistence.
type RoleRepository interface {
	// Create stores a new role. A name collision surfaces as a wrapped
	// ErrDuplicate.
	Create(ctx context.Context, role *Role) error

	// GetByID retrieves a role by primary key.
	GetByID(ctx context.Context, id int16) (*Role, error)

	// GetByName retrieves a role by its unique name.
	GetByName(ctx context.Context, name string) (*Role, error)

	// List returns all roles ordered by id.
	List(ctx context.Context) ([]Role, error)
}
