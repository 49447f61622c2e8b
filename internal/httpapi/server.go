// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package httpapi exposes the auth service over a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/internal/observability"
)

// Server serves the JSON API.
type Server struct {
	addr       string
	service    *auth.Service
	issuer     *auth.TokenIssuer
	metrics    *observability.Metrics
	logger     *slog.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates an API server. metrics may be nil; requests are then
// served without being counted.
func NewServer(addr string, service *auth.Service, issuer *auth.TokenIssuer, metrics *observability.Metrics, logger *slog.Logger) (*Server, error) {
	if service == nil {
		return nil, oops.Code("API_CONFIG_INVALID").Errorf("auth service is required")
	}
	if issuer == nil {
		return nil, oops.Code("API_CONFIG_INVALID").Errorf("token issuer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		addr:    addr,
		service: service,
		issuer:  issuer,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Handler builds the route table. Exposed for tests via httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/register", s.handleRegister)
	mux.HandleFunc("POST /v1/login", s.handleLogin)
	mux.HandleFunc("POST /v1/refresh", s.handleRefresh)
	mux.HandleFunc("POST /v1/revoke", s.handleRevoke)
	mux.HandleFunc("POST /v1/logout", s.handleLogout)
	mux.Handle("GET /v1/me", s.requireAuth(http.HandlerFunc(s.handleMe)))

	return s.withRequestID(s.withMetrics(mux))
}

// Start begins serving the API. It returns an error channel that receives
// any error from the HTTP server after startup; the channel is closed when
// the server stops gracefully.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown api server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on, or empty if not
// running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
