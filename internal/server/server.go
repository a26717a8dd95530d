// Package server exposes the derived-state engine over HTTP. Routing and
// status-code mapping live here; all temporal logic stays in the engine.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/florin-app/florin/internal/engine"
)

// Server wraps the engine with an HTTP API.
type Server struct {
	engine *engine.Engine
	logger *slog.Logger
	http   *http.Server
}

// Config holds the listener settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// New creates a server with all routes registered.
func New(cfg Config, eng *engine.Engine, logger *slog.Logger) *Server {
	s := &Server{
		engine: eng,
		logger: logger,
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.withLogging(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)

	mux.Handle("POST /api/v1/transactions", s.withSession(s.handleCreateTransaction))
	mux.Handle("GET /api/v1/transactions", s.withSession(s.handleListTransactions))
	mux.Handle("GET /api/v1/transactions/{id}", s.withSession(s.handleGetTransaction))
	mux.Handle("PUT /api/v1/transactions/{id}", s.withSession(s.handleUpdateTransaction))
	mux.Handle("DELETE /api/v1/transactions/{id}", s.withSession(s.handleDeleteTransaction))
	mux.Handle("PATCH /api/v1/transactions/{id}/category", s.withSession(s.handleAssignCategory))

	mux.Handle("POST /api/v1/categories", s.withSession(s.handleCreateCategory))
	mux.Handle("GET /api/v1/categories", s.withSession(s.handleListCategories))
	mux.Handle("GET /api/v1/categories/{id}", s.withSession(s.handleGetCategory))
	mux.Handle("PUT /api/v1/categories/{id}", s.withSession(s.handleUpdateCategory))
	mux.Handle("DELETE /api/v1/categories/{id}", s.withSession(s.handleDeleteCategory))

	mux.Handle("POST /api/v1/categoryRules", s.withSession(s.handleCreateCategoryRule))
	mux.Handle("GET /api/v1/categoryRules", s.withSession(s.handleListCategoryRules))
	mux.Handle("GET /api/v1/categoryRules/{id}", s.withSession(s.handleGetCategoryRule))
	mux.Handle("PUT /api/v1/categoryRules/{id}", s.withSession(s.handleUpdateCategoryRule))
	mux.Handle("DELETE /api/v1/categoryRules/{id}", s.withSession(s.handleDeleteCategoryRule))

	mux.Handle("GET /api/v1/balance/history", s.withSession(s.handleBalanceHistory))

	mux.Handle("POST /api/v1/savingGoals", s.withSession(s.handleCreateSavingGoal))
	mux.Handle("GET /api/v1/savingGoals", s.withSession(s.handleListSavingGoals))
	mux.Handle("DELETE /api/v1/savingGoals/{id}", s.withSession(s.handleDeleteSavingGoal))

	mux.Handle("POST /api/v1/paymentRequests", s.withSession(s.handleCreatePaymentRequest))
	mux.Handle("GET /api/v1/paymentRequests", s.withSession(s.handleListPaymentRequests))

	mux.Handle("POST /api/v1/messageRules", s.withSession(s.handleCreateMessageRule))
	mux.Handle("GET /api/v1/messageRules", s.withSession(s.handleListMessageRules))

	mux.Handle("GET /api/v1/messages", s.withSession(s.handleListMessages))
	mux.Handle("PUT /api/v1/messages/{id}", s.withSession(s.handleMarkMessageRead))
}

// Handler returns the configured root handler. Used in tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe starts the listener and blocks until it stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
