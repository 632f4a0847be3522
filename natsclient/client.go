// Package natsclient manages the NATS connection used by the JetStream engine:
// connection lifecycle with a circuit breaker, JetStream access, consumers and
// key-value buckets.
package natsclient

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/yoloz/kska/errors"
	"github.com/yoloz/kska/metric"
	"github.com/yoloz/kska/pkg/retry"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusCircuitOpen
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// Error messages
var (
	ErrNotConnected = stderrors.New("not connected to NATS")
	ErrCircuitOpen  = stderrors.New("circuit breaker is open")
	ErrClosed       = stderrors.New("client is closed")
)

// Client manages a NATS connection with a circuit breaker in front of every
// JetStream call.
type Client struct {
	url    string
	logger *slog.Logger
	status atomic.Value // ConnectionStatus

	conn *nats.Conn
	js   jetstream.JetStream

	// Circuit breaker
	failures         atomic.Int32
	lastFailure      atomic.Value // time.Time
	circuitThreshold int32
	circuitCooldown  time.Duration

	// Connection options
	maxReconnects int
	reconnectWait time.Duration
	pingInterval  time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration
	connectRetry  retry.Config

	// Authentication, cleared on close
	username string
	password string
	token    string

	tlsConfig   *tls.Config

	clientName string

	metrics        *metric.Metrics
	onHealthChange func(bool)

	mu     sync.RWMutex
	closed atomic.Bool
}

// NewClient creates a new NATS client with optional configuration
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:              url,
		logger:           slog.Default(),
		maxReconnects:    -1,
		reconnectWait:    2 * time.Second,
		pingInterval:     30 * time.Second,
		timeout:          5 * time.Second,
		drainTimeout:     30 * time.Second,
		circuitThreshold: 5,
		circuitCooldown:  30 * time.Second,
		connectRetry:     retry.DefaultConfig(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.logger = c.logger.With("component", "natsclient")
	c.status.Store(StatusDisconnected)
	c.lastFailure.Store(time.Time{})

	return c, nil
}

// URL returns the NATS server URL
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	if c.circuitOpen() {
		return StatusCircuitOpen
	}
	val := c.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

// IsHealthy returns true if the connection is established
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// Failures returns the number of consecutive failures
func (c *Client) Failures() int32 {
	return c.failures.Load()
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(status)
	if c.metrics != nil {
		c.metrics.RecordNATSConnected(status == StatusConnected)
	}
}

func (c *Client) circuitOpen() bool {
	if c.failures.Load() < c.circuitThreshold {
		return false
	}
	last, _ := c.lastFailure.Load().(time.Time)
	return time.Since(last) < c.circuitCooldown
}

func (c *Client) recordFailure() {
	n := c.failures.Add(1)
	c.lastFailure.Store(time.Now())
	if n == c.circuitThreshold {
		c.logger.Warn("Circuit breaker opened", "failures", n, "cooldown", c.circuitCooldown)
	}
}

func (c *Client) resetCircuit() {
	c.failures.Store(0)
	c.lastFailure.Store(time.Time{})
}

// guard returns the JetStream context when calls are allowed through
func (c *Client) guard() (jetstream.JetStream, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if c.circuitOpen() {
		return nil, ErrCircuitOpen
	}

	c.mu.RLock()
	js := c.js
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || js == nil {
		return nil, ErrNotConnected
	}
	return js, nil
}

// observe updates the circuit breaker from the outcome of a JetStream call.
// Not-found style errors are answers, not failures.
func (c *Client) observe(err error) {
	switch {
	case err == nil:
		c.resetCircuit()
	case stderrors.Is(err, jetstream.ErrStreamNotFound),
		stderrors.Is(err, jetstream.ErrBucketNotFound),
		stderrors.Is(err, jetstream.ErrKeyNotFound),
		stderrors.Is(err, jetstream.ErrConsumerNotFound):
	default:
		c.recordFailure()
	}
}

func (c *Client) connectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
		nats.ErrorHandler(c.handleError),
	}

	if c.username != "" && c.password != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}
	if c.tlsConfig != nil {
		opts = append(opts, nats.Secure(c.tlsConfig))
	}
	if c.clientName != "" {
		opts = append(opts, nats.Name(c.clientName))
	}

	return opts
}

// Connect establishes the connection, retrying with backoff until it succeeds,
// the retry budget runs out or ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.setStatus(StatusConnecting)
	c.logger.Info("Connecting to NATS", "url", c.url)

	err := retry.Do(ctx, c.connectRetry, func() error {
		if c.circuitOpen() {
			return retry.NonRetryable(ErrCircuitOpen)
		}
		err := c.connectOnce(ctx)
		if err != nil {
			c.logger.Warn("NATS connection attempt failed", "error", err)
		}
		return err
	})
	if err != nil {
		c.setStatus(StatusDisconnected)
		return errors.WrapTransient(err, "Client", "Connect", "establish connection")
	}

	c.setStatus(StatusConnected)
	c.resetCircuit()
	c.logger.Info("Connected to NATS", "url", c.url)

	c.mu.RLock()
	onHealthChange := c.onHealthChange
	c.mu.RUnlock()
	if onHealthChange != nil {
		onHealthChange(true)
	}

	return nil
}

type connectResult struct {
	conn *nats.Conn
	err  error
}

func (c *Client) connectOnce(ctx context.Context) error {
	opts := c.connectionOptions()

	done := make(chan connectResult, 1)
	go func() {
		conn, err := nats.Connect(c.url, opts...)
		done <- connectResult{conn: conn, err: err}
	}()

	var res connectResult
	select {
	case res = <-done:
	case <-ctx.Done():
		go func() {
			if late := <-done; late.conn != nil {
				late.conn.Close()
			}
		}()
		c.recordFailure()
		return ctx.Err()
	}

	if res.err != nil {
		c.recordFailure()
		return res.err
	}

	js, err := jetstream.New(res.conn)
	if err != nil {
		res.conn.Close()
		c.recordFailure()
		return fmt.Errorf("init jetstream: %w", err)
	}

	c.mu.Lock()
	c.conn = res.conn
	c.js = js
	c.mu.Unlock()
	return nil
}

// WaitForConnection blocks until the client is healthy or ctx is done
func (c *Client) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if c.IsHealthy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("connection timeout: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close drains and closes the connection. Safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.js = nil
	c.username = ""
	c.password = ""
	c.token = ""
	c.mu.Unlock()

	defer c.setStatus(StatusDisconnected)

	if conn == nil {
		return nil
	}

	drainTimeout := c.drainTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < drainTimeout {
			drainTimeout = remaining
		}
	}

	drainDone := make(chan error, 1)
	go func() {
		drainDone <- conn.Drain()
	}()

	var drainErr error
	select {
	case err := <-drainDone:
		if err != nil {
			drainErr = errors.Wrap(err, "Client", "Close", "drain connection")
		}
	case <-time.After(drainTimeout):
		drainErr = errors.WrapTransient(
			fmt.Errorf("drain timeout after %v", drainTimeout), "Client", "Close", "drain")
	case <-ctx.Done():
		drainErr = errors.Wrap(ctx.Err(), "Client", "Close", "drain")
	}

	conn.Close()
	if drainErr != nil {
		c.logger.Error("NATS drain failed", "error", drainErr)
	}
	return drainErr
}

// JetStream returns the JetStream context
func (c *Client) JetStream() (jetstream.JetStream, error) {
	js, err := c.guard()
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "JetStream", "get JetStream context")
	}
	return js, nil
}

// StreamNameBySubject returns the name of the stream that captures subject
func (c *Client) StreamNameBySubject(ctx context.Context, subject string) (string, error) {
	js, err := c.guard()
	if err != nil {
		return "", err
	}

	name, err := js.StreamNameBySubject(ctx, subject)
	c.observe(err)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrStreamNotFound) {
			return "", errors.WrapFatal(err, "Client", "StreamNameBySubject",
				fmt.Sprintf("no stream captures subject %s", subject))
		}
		return "", errors.WrapTransient(err, "Client", "StreamNameBySubject", "lookup stream")
	}
	return name, nil
}

// CreateStream creates or updates a JetStream stream
func (c *Client) CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	js, err := c.guard()
	if err != nil {
		return nil, err
	}

	stream, err := js.CreateOrUpdateStream(ctx, cfg)
	c.observe(err)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "CreateStream",
			fmt.Sprintf("create stream %s", cfg.Name))
	}
	return stream, nil
}

// Publish publishes data to a JetStream subject, with optional message headers
func (c *Client) Publish(ctx context.Context, subject string, data []byte, header nats.Header) error {
	js, err := c.guard()
	if err != nil {
		return err
	}

	msg := &nats.Msg{Subject: subject, Data: data, Header: header}
	_, err = js.PublishMsg(ctx, msg)
	c.observe(err)
	if err != nil {
		return errors.WrapTransient(err, "Client", "Publish", fmt.Sprintf("publish to %s", subject))
	}
	return nil
}

// CreateOrUpdateConsumer creates a consumer on stream, or updates it in place
func (c *Client) CreateOrUpdateConsumer(
	ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	js, err := c.guard()
	if err != nil {
		return nil, err
	}

	consumer, err := js.CreateOrUpdateConsumer(ctx, stream, cfg)
	c.observe(err)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "CreateOrUpdateConsumer",
			fmt.Sprintf("create consumer %s on %s", cfg.Durable, stream))
	}
	return consumer, nil
}

// CreateKeyValueBucket returns the bucket named in cfg, creating it when absent
func (c *Client) CreateKeyValueBucket(ctx context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	js, err := c.guard()
	if err != nil {
		return nil, err
	}

	bucket, err := js.KeyValue(ctx, cfg.Bucket)
	if err == nil {
		c.resetCircuit()
		return bucket, nil
	}

	bucket, err = js.CreateKeyValue(ctx, cfg)
	if err != nil && isAlreadyExistsError(err) {
		bucket, err = js.KeyValue(ctx, cfg.Bucket)
	}
	c.observe(err)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "CreateKeyValueBucket",
			fmt.Sprintf("create bucket %s", cfg.Bucket))
	}

	c.logger.Info("Created KV bucket", "bucket", cfg.Bucket)
	return bucket, nil
}

// GetKeyValueBucket gets an existing KV bucket
func (c *Client) GetKeyValueBucket(ctx context.Context, name string) (jetstream.KeyValue, error) {
	js, err := c.guard()
	if err != nil {
		return nil, err
	}

	bucket, err := js.KeyValue(ctx, name)
	c.observe(err)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrBucketNotFound) {
			return nil, errors.WrapInvalid(errors.ErrBucketNotFound, "Client", "GetKeyValueBucket", name)
		}
		return nil, errors.WrapTransient(err, "Client", "GetKeyValueBucket", name)
	}
	return bucket, nil
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	c.setStatus(StatusReconnecting)
	if err != nil {
		c.logger.Warn("Disconnected from NATS", "error", err)
	}
	c.notifyHealth(false)
}

func (c *Client) handleReconnect(conn *nats.Conn) {
	c.setStatus(StatusConnected)
	c.resetCircuit()
	if c.metrics != nil {
		c.metrics.RecordNATSReconnect()
	}
	c.logger.Info("Reconnected to NATS", "url", conn.ConnectedUrlRedacted())
	c.notifyHealth(true)
}

func (c *Client) handleClosed(_ *nats.Conn) {
	c.setStatus(StatusDisconnected)
	c.notifyHealth(false)
}

func (c *Client) handleError(_ *nats.Conn, _ *nats.Subscription, err error) {
	c.logger.Error("NATS error", "error", err)
}

func (c *Client) notifyHealth(healthy bool) {
	c.mu.RLock()
	fn := c.onHealthChange
	c.mu.RUnlock()
	if fn != nil {
		go fn(healthy)
	}
}

func isAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, jetstream.ErrBucketExists) || stderrors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "already in use") || strings.Contains(msg, "already exists")
}
