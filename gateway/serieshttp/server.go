package serieshttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/metric"
	"github.com/c360/datamall/series"
	"github.com/c360/datamall/series/metacache"
)

// Config holds the server's listen and limit settings.
type Config struct {
	Addr string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// MaxBodyBytes caps request bodies. Zero applies the default of 10 MB.
	MaxBodyBytes int64
}

// DefaultConfig returns production settings on the given address.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:            addr,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    10 << 20,
	}
}

// Server serves the series endpoints.
type Server struct {
	cfg     Config
	meta    *metacache.Cache
	backend series.Backend
	logger  *slog.Logger
	metrics *metric.Metrics

	health http.Handler

	srv     *http.Server
	running atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics enables ingestion metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealth mounts a health handler on GET /healthz.
func WithHealth(h http.Handler) Option {
	return func(s *Server) { s.health = h }
}

// NewServer builds the server. The metadata cache and the backend are
// required.
func NewServer(cfg Config, meta *metacache.Cache, backend series.Backend, opts ...Option) (*Server, error) {
	if meta == nil || backend == nil {
		return nil, errors.New(errors.IDUnexpectedError,
			"series server requires a metadata cache and a backend")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	s := &Server{
		cfg:     cfg,
		meta:    meta,
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the route multiplexer, also used directly by tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /{user}/events/{eventID}/series", s.handleWrite)
	mux.HandleFunc("GET /{user}/events/{eventID}/series", s.handleRead)
	mux.HandleFunc("POST /{user}/series/batch", s.handleBatch)
	if s.health != nil {
		mux.Handle("GET /healthz", s.health)
	}
	return mux
}

// Start runs the server until the listener fails. It returns immediately
// with an error when the server is already running.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.NewInvalidOperation("series server is already running")
	}
	s.srv = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.logger.Info("series server listening", "addr", s.cfg.Addr)
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop drains in-flight requests within the shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	return s.srv.Shutdown(ctx)
}

// credential extracts the caller's credential from the Authorization header
// or the auth query parameter.
func credential(r *http.Request) (string, error) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if after, ok := cutPrefixFold(auth, "Bearer "); ok {
			return after, nil
		}
		return auth, nil
	}
	if auth := r.URL.Query().Get("auth"); auth != "" {
		return auth, nil
	}
	return "", errors.New(errors.IDMissingHeader, "missing Authorization header").
		WithData(map[string]any{"header": "Authorization"})
}

// cutPrefixFold is strings.CutPrefix with ASCII case-insensitive matching
// on the prefix.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) {
		return s, false
	}
	for i := 0; i < len(prefix); i++ {
		a, b := s[i], prefix[i]
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return s, false
		}
	}
	return s[len(prefix):], true
}

// statusFor maps taxonomy ids onto HTTP statuses.
func statusFor(err error) int {
	switch errors.IDOf(err) {
	case errors.IDUnknownResource:
		return http.StatusNotFound
	case errors.IDItemAlreadyExists:
		return http.StatusConflict
	case errors.IDForbidden:
		return http.StatusForbidden
	case errors.IDMissingHeader:
		return http.StatusUnauthorized
	case errors.IDInvalidRequestStructure,
		errors.IDInvalidParametersFormat,
		errors.IDInvalidItemID,
		errors.IDInvalidOperation,
		errors.IDInvalidEventType,
		errors.IDInvalidInputType,
		errors.IDParseFailure:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError serializes the error envelope.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("series request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}

	var apiErr *errors.Error
	if !errors.As(err, &apiErr) {
		apiErr = errors.New(errors.IDUnexpectedError, "unexpected error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(map[string]any{"error": apiErr}); encodeErr != nil {
		s.logger.Error("error envelope not written", "error", encodeErr)
	}
}

// writeJSON serializes a success payload.
func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("response not written", "error", err)
	}
}
