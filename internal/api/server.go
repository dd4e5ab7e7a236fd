// Package api exposes the HTTP interface for the watcher service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formwatch/formwatch/internal/config"
	"github.com/formwatch/formwatch/internal/metrics"
	"github.com/formwatch/formwatch/internal/watch"
)

// CheckRunner is the core surface the API triggers.
type CheckRunner interface {
	RunCheck(ctx context.Context, forced bool) (watch.CheckResult, error)
	RunTestNotification(ctx context.Context) error
	Deliveries() *watch.DeliveryLog
}

// Server wires HTTP handlers to the checker and state store.
type Server struct {
	router  chi.Router
	checker CheckRunner
	store   watch.StateStore
	cfg     config.Config
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(checker CheckRunner, store watch.StateStore, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		checker: checker,
		store:   store,
		cfg:     cfg,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(sharedSecretMiddleware(cfg.Auth.SharedSecret))
		}
		r.Post("/check", s.runCheck)
		r.Post("/notify/test", s.testNotification)
		r.Get("/state", s.getState)
		r.Get("/deliveries", s.getDeliveries)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if _, err := s.store.Load(context.Background()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "state store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type checkRequest struct {
	Forced bool `json:"forced"`
}

func (s *Server) runCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	result, err := s.checker.RunCheck(r.Context(), req.Forced)
	if err != nil {
		s.handleCheckError(w, result, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCheckError(w http.ResponseWriter, result watch.CheckResult, err error) {
	var fetchErr *watch.FetchError
	var deliveryErr *watch.DeliveryError
	switch {
	case errors.Is(err, watch.ErrCheckInFlight):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &fetchErr):
		s.writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &deliveryErr):
		// State is already persisted at this point; report the result
		// alongside the failure so the caller sees both.
		s.writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":  err.Error(),
			"result": result,
		})
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) testNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.checker.RunTestNotification(r.Context()); err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "delivered"})
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.Load(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load state")
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) getDeliveries(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"deliveries": s.checker.Deliveries().Entries(),
	})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			metrics.ObserveHTTPRequest(r.Method, ww.status)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func sharedSecretMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := r.Header.Get("X-Watch-Secret")
			if secret == "" {
				secret = r.URL.Query().Get("secret")
			}
			if secret != expected {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
