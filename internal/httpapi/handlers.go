// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package httpapi

import (
	"net/http"

	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   *int16 `json:"role_id,omitempty"`
}

type registerResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type revokeRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type revokeResponse struct {
	Found bool `json:"found"`
}

type logoutRequest struct {
	Identifier string `json:"identifier"`
}

type logoutResponse struct {
	Found bool `json:"found"`
}

type meResponse struct {
	UserID   int64    `json:"user_id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Active   bool     `json:"active"`
	Roles    []string `json:"roles"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.service.Register(r.Context(), req.Username, req.Email, req.Password, req.RoleID)
	if err != nil {
		s.recordRegistration("error", err)
		s.writeError(w, r, err)
		return
	}

	s.recordRegistration("success", nil)
	s.writeJSON(w, http.StatusCreated, registerResponse{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.service.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		s.recordLogin("error", err)
		s.writeError(w, r, err)
		return
	}

	s.recordLogin("success", nil)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.recordRotation("error", err)
		s.writeError(w, r, err)
		return
	}

	s.recordRotation("success", nil)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	found, err := s.service.Revoke(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if s.metrics != nil && found {
		s.metrics.RevocationsTotal.WithLabelValues("single").Inc()
	}
	s.writeJSON(w, http.StatusOK, revokeResponse{Found: found})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	found, err := s.service.Logout(r.Context(), req.Identifier)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if s.metrics != nil && found {
		s.metrics.RevocationsTotal.WithLabelValues("all").Inc()
	}
	s.writeJSON(w, http.StatusOK, logoutResponse{Found: found})
}

// handleMe resolves the verified subject claim against the store, so the
// response reflects the user's current state rather than what was true at
// token issuance.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		s.writeError(w, r, oops.Code(auth.CodeAccessTokenInvalid).Errorf("missing claims"))
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	user, roles, err := s.service.GetUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, meResponse{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Active:   user.Active,
		Roles:    roles,
	})
}

// Outcome labels distinguish rejected credentials from backend failures
// without recording per-user detail.

func (s *Server) recordLogin(outcome string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.LoginsTotal.WithLabelValues(refineOutcome(outcome, err)).Inc()
}

func (s *Server) recordRegistration(outcome string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RegistrationsTotal.WithLabelValues(refineOutcome(outcome, err)).Inc()
}

func (s *Server) recordRotation(outcome string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RotationsTotal.WithLabelValues(refineOutcome(outcome, err)).Inc()
}

// refineOutcome collapses an error into a small label set.
func refineOutcome(outcome string, err error) string {
	if err == nil {
		return outcome
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		switch oopsErr.Code() {
		case auth.CodeInvalidCredentials:
			return "invalid_credentials"
		case auth.CodeInvalidToken:
			return "invalid_token"
		case auth.CodeInactiveAccount:
			return "inactive_account"
		case auth.CodeValidation:
			return "validation"
		case auth.CodeAlreadyExists:
			return "already_exists"
		}
	}
	return "error"
}
