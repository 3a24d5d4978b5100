package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ShalomGure/actors-api/internal/actor"
	"github.com/ShalomGure/actors-api/internal/config"
	"github.com/ShalomGure/actors-api/internal/metrics"
	"github.com/ShalomGure/actors-api/internal/ratelimit"
	"github.com/ShalomGure/actors-api/internal/service"
)

// ActorService is the query service consumed by the handlers.
type ActorService interface {
	Get(ctx context.Context, id int) (service.Detail, error)
	List(ctx context.Context, filter actor.Filter, page actor.PageRequest) (service.PagedResult, error)
	Create(ctx context.Context, in service.CreateInput) (service.Detail, error)
	Update(ctx context.Context, id int, in service.UpdateInput) (service.Detail, error)
	Delete(ctx context.Context, id int) error
	Ready(ctx context.Context) error
}

// Server wires HTTP handlers to the actor service.
type Server struct {
	router chi.Router
	svc    ActorService
	cfg    config.Config
	logger *zap.Logger
}

const internalErrorMessage = "An internal server error occurred."

// NewServer constructs a Server with middleware and routes.
func NewServer(svc ActorService, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
	}
	if len(cfg.Auth.APIKeys) == 0 {
		logger.Warn("auth.api_keys is empty, every /api request will be rejected")
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	if d := cfg.RequestTimeout(); d > 0 {
		r.Use(timeoutMiddleware(d))
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "The requested resource was not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	if !cfg.Production() {
		r.Get("/docs", s.docs)
		r.Get("/openapi.yaml", s.openAPI)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(bearerAuthMiddleware(cfg.Auth.APIKeys))
		limiter := ratelimit.New(ratelimit.Config{RPS: cfg.Server.RateLimitRPS, Burst: cfg.Server.RateLimitBurst})
		if limiter.Enabled() {
			r.Use(rateLimitMiddleware(limiter))
		}
		r.Route("/actors", func(r chi.Router) {
			r.Get("/", s.listActors)
			r.Post("/", s.createActor)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getActor)
				r.Put("/", s.updateActor)
				r.Delete("/", s.deleteActor)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ready(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Store is not reachable.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// errorResponse is the uniform error envelope.
type errorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
}

// writeServiceError maps an error kind to a status. Unknown errors are
// logged and reported with a generic message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, actor.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, actor.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, actor.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, actor.ErrUnauthenticated):
		status = http.StatusUnauthorized
	}
	msg := actor.Message(err)
	if status == http.StatusInternalServerError || msg == "" {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		status = http.StatusInternalServerError
		msg = internalErrorMessage
	}
	writeError(w, status, msg)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the identifier assigned by the request ID middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", RequestID(r.Context())),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("panic recovered",
					zap.Any("error", rec),
					zap.String("path", r.URL.Path),
					zap.String("request_id", RequestID(r.Context())),
				)
				writeError(w, http.StatusInternalServerError, internalErrorMessage)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	body, _ := json.Marshal(errorResponse{Error: "The request timed out.", StatusCode: http.StatusServiceUnavailable})
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, string(body))
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

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, StatusCode: status})
}
