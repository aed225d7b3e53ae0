// Package server exposes the translator over HTTP.
//
// Routes:
//
//	POST /v1/query   run a query document (request body), JSON envelope response
//	GET  /healthz    database ping
//	GET  /metrics    Prometheus metrics
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/jsonquery/internal/ir"
	"github.com/roach88/jsonquery/internal/queryspec"
	"github.com/roach88/jsonquery/internal/translator"
)

// MaxBodyBytes bounds the size of a query document.
const MaxBodyBytes = 1 << 20

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// Error codes for non-query failures. Query errors use their queryspec code.
const (
	ErrCodeBadBody   = "E101" // body unreadable or too large
	ErrCodeExecution = "E102" // database execution failed
	ErrCodeUnhealthy = "E103" // health check failed
)

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Response is the JSON envelope of every API response.
type Response struct {
	Status    string         `json:"status"` // "ok" or "error"
	RequestID string         `json:"request_id"`
	Data      any            `json:"data,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed request.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// Server routes HTTP requests to a Translator.
type Server struct {
	tr      *translator.Translator
	pinger  Pinger
	metrics *Metrics
	ids     translator.IDGenerator
	logger  *slog.Logger
	router  chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPinger enables the database check behind /healthz.
func WithPinger(p Pinger) Option {
	return func(s *Server) { s.pinger = p }
}

// WithMetrics replaces the default collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithRequestIDs sets the generator for request ids not supplied by the caller.
func WithRequestIDs(g translator.IDGenerator) Option {
	return func(s *Server) {
		if g != nil {
			s.ids = g
		}
	}
}

// New builds a Server and its routes.
func New(tr *translator.Translator, opts ...Option) *Server {
	s := &Server{
		tr:     tr,
		ids:    translator.UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Post("/v1/query", s.handleQuery)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("http server listening", "addr", addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down", "addr", addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type ctxKey struct{}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = s.ids.Generate()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestID returns the request id stored by the server middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestID(r.Context())
	start := time.Now()

	s.metrics.InFlight.Inc()
	defer s.metrics.InFlight.Dec()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.metrics.Queries.WithLabelValues(ErrCodeBadBody).Inc()
		s.writeError(w, r, http.StatusBadRequest, &ResponseError{Code: ErrCodeBadBody, Message: err.Error()})
		return
	}

	res, err := s.tr.RunJSON(r.Context(), body)
	if err != nil {
		var qe *queryspec.Error
		if errors.As(err, &qe) {
			s.metrics.Queries.WithLabelValues(string(qe.Code)).Inc()
			s.writeError(w, r, http.StatusBadRequest, &ResponseError{Code: string(qe.Code), Message: qe.Message, Path: qe.Path})
			return
		}
		s.metrics.Queries.WithLabelValues(ErrCodeExecution).Inc()
		s.logger.Error("query execution failed", "request_id", reqID, "error", err)
		s.writeError(w, r, http.StatusInternalServerError, &ResponseError{Code: ErrCodeExecution, Message: err.Error()})
		return
	}

	s.metrics.Queries.WithLabelValues("ok").Inc()
	s.metrics.QueryDuration.WithLabelValues(strconv.FormatBool(res.Merged)).Observe(time.Since(start).Seconds())
	s.metrics.RowsReturned.Observe(float64(res.Len()))

	s.logger.Debug("query served", "request_id", reqID, "run_id", res.RunID, "rows", res.Len())
	s.writeJSON(w, http.StatusOK, Response{Status: "ok", RequestID: reqID, Data: res})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			s.writeError(w, r, http.StatusServiceUnavailable, &ResponseError{Code: ErrCodeUnhealthy, Message: err.Error()})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, Response{Status: "ok", RequestID: RequestID(r.Context()), Data: map[string]string{
		"database": "up",
		"version":  ir.Version,
		"format":   ir.FormatVersion,
	}})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, e *ResponseError) {
	s.logger.Debug("request failed", "request_id", RequestID(r.Context()), "status", status, "code", e.Code, "message", e.Message)
	s.writeJSON(w, status, Response{Status: "error", RequestID: RequestID(r.Context()), Error: e})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("write response", "request_id", resp.RequestID, "error", err)
	}
}
