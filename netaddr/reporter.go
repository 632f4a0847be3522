package netaddr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"github.com/yoloz/kska/metric"
)

// Error messages returned in the response body
const (
	ErrLocalHostAddress = "failed to get local host address"
	ErrPlatformAddress  = "failed to get platform IP addresses"
	ErrRateLimited      = "too many address requests, retry later"
)

const maxBodyDrain = 1 << 20

// Result is the outcome of one address listing
type Result struct {
	Success bool     `json:"success"`
	Results []string `json:"results,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func failure(msg string) Result {
	return Result{Success: false, Error: msg}
}

// Reporter lists the qualifying local addresses. It keeps no state between
// requests.
type Reporter struct {
	host    Host
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *reporterMetrics
}

// Option configures a Reporter
type Option func(*Reporter) error

// WithHost replaces the operating system host
func WithHost(h Host) Option {
	return func(r *Reporter) error {
		if h == nil {
			return fmt.Errorf("host must not be nil")
		}
		r.host = h
		return nil
	}
}

// WithRateLimit caps listings at limit per second with the given burst.
// Requests over the limit get an unsuccessful Result without enumerating.
// A limit of 0 (or rate.Inf) disables limiting.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(r *Reporter) error {
		if limit < 0 {
			return fmt.Errorf("rate limit %v cannot be negative", limit)
		}
		if limit == 0 || limit == rate.Inf {
			r.limiter = nil
			return nil
		}
		if burst < 1 {
			return fmt.Errorf("rate burst must be at least 1, got %d", burst)
		}
		r.limiter = rate.NewLimiter(limit, burst)
		return nil
	}
}

// WithLogger sets the logger; nil keeps slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reporter) error {
		if logger != nil {
			r.logger = logger
		}
		return nil
	}
}

// WithMetrics registers request metrics with registry
func WithMetrics(registry metric.Registrar) Option {
	return func(r *Reporter) error {
		m, err := newReporterMetrics(registry)
		if err != nil {
			return err
		}
		r.metrics = m
		return nil
	}
}

// NewReporter creates a Reporter over SystemHost unless WithHost is given
func NewReporter(opts ...Option) (*Reporter, error) {
	r := &Reporter{
		host:   SystemHost(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "netaddr")
	return r, nil
}

// List returns every interface address that is neither loopback nor
// link-local, in enumeration order. When there is none it falls back to the
// default host address. Failures, including panics in the host, come back as
// an unsuccessful Result.
func (r *Reporter) List(ctx context.Context) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error(ErrPlatformAddress, "panic", p)
			res = failure(ErrPlatformAddress)
		}
	}()

	addrs, err := r.enumerate()
	if err != nil {
		r.logger.Error(ErrPlatformAddress, "error", err)
		return failure(ErrPlatformAddress)
	}

	if len(addrs) == 0 {
		fallback, err := r.host.LocalHost(ctx)
		if err != nil {
			r.logger.Error(ErrPlatformAddress, "error", err)
			return failure(ErrPlatformAddress)
		}
		if !fallback.IsValid() {
			r.logger.Error("Local host lookup returned no address")
			return failure(ErrLocalHostAddress)
		}
		addrs = append(addrs, fallback.String())
	}

	return Result{Success: true, Results: addrs}
}

func (r *Reporter) enumerate() ([]string, error) {
	ifaces, err := r.host.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	var out []string
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("list addresses of %s: %w", iface.Name(), err)
		}
		for _, a := range addrs {
			if addr, ok := addrOf(a); ok && qualifies(addr) {
				out = append(out, addr.String())
			}
		}
	}
	return out, nil
}

// ServeHTTP writes the listing as JSON. The status is always 200; failures are
// reported in the body.
func (r *Reporter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Body != nil {
		n, _ := io.Copy(io.Discard, io.LimitReader(req.Body, maxBodyDrain))
		r.logger.Debug("Address request", "remote", req.RemoteAddr, "body_bytes", n)
	}

	var res Result
	if r.limiter != nil && !r.limiter.Allow() {
		res = failure(ErrRateLimited)
		r.metrics.recordRequest(statusThrottled)
	} else {
		res = r.List(req.Context())
		r.metrics.recordRequest(statusOf(res))
	}

	body, err := sonic.Marshal(res)
	if err != nil {
		r.logger.Error("Encode address result failed", "error", err)
		body = []byte(`{"success":false,"error":"` + ErrPlatformAddress + `"}`)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		r.logger.Warn("Write address response failed", "error", err)
	}
}
