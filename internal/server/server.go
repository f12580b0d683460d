// Package server exposes the pipeline, history, and demo collections over
// HTTP. Every response is wrapped in the {success, data, error} envelope the
// browser client expects.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"pwaforge/internal/api"
	"pwaforge/internal/config"
	"pwaforge/internal/demo"
	"pwaforge/internal/entity"
	"pwaforge/internal/history"
	"pwaforge/internal/logging"
	"pwaforge/internal/pipeline"
)

const maxUploadBytes = 64 << 20

// Server owns the HTTP surface and the services behind it.
type Server struct {
	bind       string
	logger     *slog.Logger
	ctrl       *pipeline.Controller
	history    *history.Service
	demo       *demo.Service
	staleAfter time.Duration

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

// New wires the API server against the entity store.
func New(cfg *config.Config, store *entity.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctrl := pipeline.NewController(cfg, store, logger)

	srv := &Server{
		bind:       cfg.Paths.APIBind,
		logger:     logging.NewComponentLogger(logger, "api"),
		ctrl:       ctrl,
		history:    history.NewService(cfg, ctrl.Jobs()),
		demo:       demo.NewService(store, cfg.Seed.Enabled),
		staleAfter: time.Duration(cfg.Pipeline.StaleAfterSeconds) * time.Second,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze", srv.handleAnalyze)
	mux.HandleFunc("/api/job/", srv.handleJob)
	mux.HandleFunc("/api/history", srv.handleHistory)
	mux.HandleFunc("/api/users", srv.handleUsers)
	mux.HandleFunc("/api/users/", srv.handleUserItem)
	mux.HandleFunc("/api/chats", srv.handleChats)
	mux.HandleFunc("/api/chats/", srv.handleChatItem)
	srv.handler = srv.withRequestID(mux)

	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the routed handler, primarily for httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Controller exposes the pipeline for shutdown draining.
func (s *Server) Controller() *pipeline.Controller {
	return s.ctrl
}

// Start listens on the configured bind address and serves until the context
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down and drains in-flight background stage work.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	s.ctrl.Wait()
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRequestID(r.Context(), uuid.NewString())
		logging.WithContext(ctx, s.logger).Debug("request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(api.Envelope{Success: true, Data: data}); err != nil {
		s.logger.Error("encode response", logging.Error(err))
	}
}

func (s *Server) writeErr(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(api.Envelope{Success: false, Error: message}); err != nil {
		s.logger.Error("encode response", logging.Error(err))
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		s.writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, pipeline.ErrPreconditionFailed):
		s.writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrIllegalTransition), errors.Is(err, entity.ErrDuplicateID):
		s.writeErr(w, http.StatusConflict, err.Error())
	default:
		s.writeErr(w, http.StatusInternalServerError, err.Error())
	}
}

func pageParams(r *http.Request) (*string, int) {
	query := r.URL.Query()
	var cursor *string
	if value := strings.TrimSpace(query.Get("cursor")); value != "" {
		cursor = &value
	}
	limit := 0
	if value := query.Get("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return cursor, limit
}
