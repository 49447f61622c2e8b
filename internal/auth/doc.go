// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package auth provides the credential and token-lifecycle core of Warden.
//
// # Domain Types
//
// Domain types (User, Role, RefreshToken) should be created through their
// constructors:
//   - NewUser - creates a User with normalized username/email
//   - NewRefreshToken - creates a RefreshToken with validated owner and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Components
//
//   - PBKDF2Hasher - password hashing and constant-time verification
//   - TokenIssuer - signed access-token issuance and verification
//   - Service - the register/login/refresh/revoke/logout use cases
//
// Services are created with New* constructors that validate dependencies.
package auth
