package gateway

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yoloz/kska/errors"
	"github.com/yoloz/kska/pkg/tlsutil"
)

// DefaultIPPath is where the address listing is mounted when no path is configured.
const DefaultIPPath = "/ka/getLocalIp"

// Config holds listener settings.
type Config struct {
	Port            int
	IPPath          string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
	TLS             tlsutil.ServerConfig
}

// DefaultConfig returns the settings used when the application config leaves them out.
func DefaultConfig() Config {
	return Config{
		Port:            8080,
		IPPath:          DefaultIPPath,
		ReadTimeout:     10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate checks the listener settings.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "gateway", "Validate",
			fmt.Sprintf("port %d out of range", c.Port))
	}
	if c.IPPath != "" && !strings.HasPrefix(c.IPPath, "/") {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "gateway", "Validate",
			fmt.Sprintf("ip path %q must start with /", c.IPPath))
	}
	if c.ReadTimeout < 0 || c.ShutdownTimeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "gateway", "Validate",
			"timeouts cannot be negative")
	}
	if !tlsutil.ValidVersion(c.TLS.MinVersion) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "gateway", "Validate",
			fmt.Sprintf("unsupported TLS version %q", c.TLS.MinVersion))
	}
	return nil
}

// Server serves the kska HTTP endpoints.
type Server struct {
	cfg     Config
	address http.Handler
	health  http.Handler
	metrics http.Handler
	logger  *slog.Logger
	router  chi.Router

	tlsConfig *tls.Config

	mu       sync.Mutex
	listener net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithHealth mounts h at /health.
func WithHealth(h http.Handler) Option {
	return func(s *Server) {
		s.health = h
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the access and lifecycle logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer builds the router. address serves the local address listing.
func NewServer(cfg Config, address http.Handler, opts ...Option) (*Server, error) {
	if address == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "gateway", "NewServer",
			"address handler is required")
	}
	if cfg.IPPath == "" {
		cfg.IPPath = DefaultIPPath
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultConfig().ReadTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tlsConfig, err := tlsutil.LoadServerConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		address:   address,
		logger:    slog.Default(),
		tlsConfig: tlsConfig,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "gateway")
	s.router = s.routes()
	return s, nil
}

// Handler returns the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the bound address once Run is listening, or "".
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	// The listing historically accepted a body on POST as well as GET.
	r.Method(http.MethodGet, s.cfg.IPPath, s.address)
	r.Method(http.MethodPost, s.cfg.IPPath, s.address)

	if s.health != nil {
		r.Method(http.MethodGet, "/health", s.health)
	}
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
				"remote", r.RemoteAddr)
		}()
		next.ServeHTTP(ww, r)
	})
}

// Run listens on the configured port and serves until ctx is cancelled, then shuts
// down gracefully within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return errors.WrapFatal(err, "gateway", "Run", "listen")
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("HTTP server listening",
		"addr", ln.Addr().String(),
		"ip_path", s.cfg.IPPath,
		"tls", s.tlsConfig != nil)

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.WrapFatal(err, "gateway", "Run", "serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("Waiting for remaining HTTP connections")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.WrapTransient(err, "gateway", "Run", "shutdown")
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return errors.WrapFatal(err, "gateway", "Run", "serve")
	}
	return nil
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
}

func writeError(w http.ResponseWriter, status int, title string) {
	body, _ := sonic.Marshal(errorBody{Error: errorDetail{Status: status, Title: title}})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
