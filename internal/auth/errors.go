// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert hits a uniqueness constraint.
// Repositories wrap it so the service layer can map collisions without
// inspecting driver errors.
var ErrDuplicate = errors.New("duplicate")

// Business error codes returned by the service layer. The API layer maps
// these to response statuses; anything else is an internal failure.
const (
	CodeValidation         = "AUTH_VALIDATION"
	CodeAlreadyExists      = "AUTH_ALREADY_EXISTS"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeInactiveAccount    = "AUTH_INACTIVE_ACCOUNT"
	CodeInvalidToken       = "AUTH_INVALID_TOKEN"
	CodeAccessTokenInvalid = "AUTH_ACCESS_TOKEN_INVALID"
	CodeConfigInvalid      = "AUTH_CONFIG_INVALID"
)
