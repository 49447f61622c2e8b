// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/pkg/errutil"
)

// errorResponse is the JSON body for every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps a service error onto an HTTP status. Unrecognized errors
// become a generic 500 so internals never leak to clients.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := ""
	if oopsErr, ok := oops.AsOops(err); ok {
		code, _ = oopsErr.Code().(string)
	}

	status := http.StatusInternalServerError
	switch code {
	case auth.CodeValidation:
		status = http.StatusBadRequest
	case auth.CodeAlreadyExists:
		status = http.StatusConflict
	case auth.CodeInvalidCredentials, auth.CodeInvalidToken, auth.CodeAccessTokenInvalid:
		status = http.StatusUnauthorized
	case auth.CodeInactiveAccount:
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		errutil.LogError(s.logger, "request failed", err)
		s.writeJSON(w, status, errorResponse{Error: "internal server error"})
		return
	}

	s.logger.Debug("request rejected",
		"path", r.URL.Path,
		"status", status,
		"code", code,
	)
	s.writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

// maxRequestBody caps request bodies; every legitimate request here is a
// few hundred bytes.
const maxRequestBody = 1 << 20

// decodeJSON reads a request body into v. A malformed or oversized body is
// a client error, reported with the validation code.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return oops.Code(auth.CodeValidation).
			With("operation", "decode request body").
			Wrap(err)
	}
	return nil
}
