package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/yoloz/kska/errors"
	"github.com/yoloz/kska/pkg/tlsutil"
)

// Config represents the complete application configuration
type Config struct {
	Version       string              `json:"version,omitempty" yaml:"version,omitempty"`
	InstanceID    string              `json:"instance_id,omitempty" yaml:"instance_id,omitempty"`
	ApplicationID string              `json:"application_id" yaml:"application_id"`
	NATS          NATSConfig          `json:"nats" yaml:"nats"`
	HTTP          HTTPConfig          `json:"http" yaml:"http"`
	Metrics       MetricsConfig       `json:"metrics" yaml:"metrics"`
	Sources       []map[string]string `json:"sources,omitempty" yaml:"sources,omitempty"`
	SourceFiles   []string            `json:"source_files,omitempty" yaml:"source_files,omitempty"`
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs          []string      `json:"urls,omitempty" yaml:"urls,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty" yaml:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty" yaml:"reconnect_wait,omitempty"`
	Username      string        `json:"username,omitempty" yaml:"username,omitempty"`
	Password      string        `json:"password,omitempty" yaml:"password,omitempty"`
	Token         string        `json:"token,omitempty" yaml:"token,omitempty"`
	TLS           NATSTLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
	Name          string        `json:"name,omitempty" yaml:"name,omitempty"`
}

// NATSTLSConfig for secure NATS connections
type NATSTLSConfig struct {
	Enabled            bool   `json:"enabled" yaml:"enabled"`
	CertFile           string `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile            string `json:"key_file,omitempty" yaml:"key_file,omitempty"`
	CAFile             string `json:"ca_file,omitempty" yaml:"ca_file,omitempty"`
	MinVersion         string `json:"min_version,omitempty" yaml:"min_version,omitempty"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify,omitempty"`
}

// ClientConfig converts the settings for the NATS client.
func (t NATSTLSConfig) ClientConfig() tlsutil.ClientConfig {
	cfg := tlsutil.ClientConfig{
		CertFile:           t.CertFile,
		KeyFile:            t.KeyFile,
		MinVersion:         t.MinVersion,
		InsecureSkipVerify: t.InsecureSkipVerify,
	}
	if t.CAFile != "" {
		cfg.CAFiles = []string{t.CAFile}
	}
	return cfg
}

// HTTPConfig defines the HTTP listener
type HTTPConfig struct {
	Port            int           `json:"port" yaml:"port"`
	IPPath          string        `json:"ip_path,omitempty" yaml:"ip_path,omitempty"`
	ReadTimeout     time.Duration `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
	// RateLimit caps address requests per second; 0 disables the limit.
	RateLimit       float64       `json:"rate_limit" yaml:"rate_limit"`
	RateBurst       int           `json:"rate_burst" yaml:"rate_burst"`
	TLS             HTTPTLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// HTTPTLSConfig enables HTTPS, optionally with client certificates
type HTTPTLSConfig struct {
	Enabled           bool     `json:"enabled" yaml:"enabled"`
	CertFile          string   `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile           string   `json:"key_file,omitempty" yaml:"key_file,omitempty"`
	MinVersion        string   `json:"min_version,omitempty" yaml:"min_version,omitempty"`
	ClientCAFiles     []string `json:"client_ca_files,omitempty" yaml:"client_ca_files,omitempty"`
	RequireClientCert bool     `json:"require_client_cert,omitempty" yaml:"require_client_cert,omitempty"`
	AllowedClientCNs  []string `json:"allowed_client_cns,omitempty" yaml:"allowed_client_cns,omitempty"`
}

// ServerConfig converts the settings for the listener. Disabled yields the zero value.
func (t HTTPTLSConfig) ServerConfig() tlsutil.ServerConfig {
	if !t.Enabled {
		return tlsutil.ServerConfig{}
	}
	return tlsutil.ServerConfig{
		CertFile:          t.CertFile,
		KeyFile:           t.KeyFile,
		MinVersion:        t.MinVersion,
		ClientCAFiles:     t.ClientCAFiles,
		RequireClientCert: t.RequireClientCert,
		AllowedClientCNs:  t.AllowedClientCNs,
	}
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

var applicationIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Version != "" {
		if _, _, _, err := parseSemVer(c.Version); err != nil {
			return invalid(fmt.Sprintf("version: %v", err))
		}
	}

	if c.ApplicationID == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "application_id is required")
	}
	if !applicationIDPattern.MatchString(c.ApplicationID) {
		return invalid(fmt.Sprintf(
			"application_id '%s' must be alphanumeric with dots, dashes and underscores", c.ApplicationID))
	}

	if err := c.NATS.validate(); err != nil {
		return err
	}
	if err := c.HTTP.validate(); err != nil {
		return err
	}

	for i, src := range c.Sources {
		if len(src) == 0 {
			return invalid(fmt.Sprintf("sources[%d] is empty", i))
		}
	}
	for i, path := range c.SourceFiles {
		if strings.TrimSpace(path) == "" {
			return invalid(fmt.Sprintf("source_files[%d] is empty", i))
		}
	}
	return nil
}

func (n NATSConfig) validate() error {
	if len(n.URLs) == 0 {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "nats.urls is required")
	}
	for i, u := range n.URLs {
		if strings.TrimSpace(u) == "" {
			return invalid(fmt.Sprintf("nats.urls[%d] is empty", i))
		}
	}
	if n.ReconnectWait < 0 {
		return invalid("nats.reconnect_wait cannot be negative")
	}
	if n.Token != "" && n.Username != "" {
		return invalid("nats.token and nats.username are mutually exclusive")
	}
	if n.TLS.Enabled && (n.TLS.CertFile == "") != (n.TLS.KeyFile == "") {
		return invalid("nats.tls.cert_file and nats.tls.key_file must be set together")
	}
	if !tlsutil.ValidVersion(n.TLS.MinVersion) {
		return invalid(fmt.Sprintf("nats.tls.min_version %q must be 1.2 or 1.3", n.TLS.MinVersion))
	}
	return nil
}

func (h HTTPConfig) validate() error {
	if h.Port < 0 || h.Port > 65535 {
		return invalid(fmt.Sprintf("http.port %d out of range", h.Port))
	}
	if h.IPPath != "" && !strings.HasPrefix(h.IPPath, "/") {
		return invalid(fmt.Sprintf("http.ip_path '%s' must start with /", h.IPPath))
	}
	if h.ReadTimeout < 0 || h.ShutdownTimeout < 0 {
		return invalid("http timeouts cannot be negative")
	}
	if h.RateLimit < 0 {
		return invalid(fmt.Sprintf("http.rate_limit %v cannot be negative", h.RateLimit))
	}
	if h.RateLimit > 0 && h.RateBurst < 1 {
		return invalid("http.rate_burst must be at least 1 when http.rate_limit is set")
	}
	if h.TLS.Enabled {
		if h.TLS.CertFile == "" || h.TLS.KeyFile == "" {
			return invalid("http.tls.cert_file and http.tls.key_file are required when TLS is enabled")
		}
		if !tlsutil.ValidVersion(h.TLS.MinVersion) {
			return invalid(fmt.Sprintf("http.tls.min_version %q must be 1.2 or 1.3", h.TLS.MinVersion))
		}
	}
	return nil
}

func invalid(action string) error {
	return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", action)
}

// Defaults returns the configuration used before any file or environment layer applies.
func Defaults() *Config {
	return &Config{
		ApplicationID: "kska",
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			Name:          "kska",
		},
		HTTP: HTTPConfig{
			Port:            8080,
			IPPath:          "/ka/getLocalIp",
			ReadTimeout:     10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       100,
			RateBurst:       10,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// EnsureInstanceID assigns a random instance id when none is configured.
func (c *Config) EnsureInstanceID() string {
	if c.InstanceID == "" {
		c.InstanceID = uuid.NewString()
	}
	return c.InstanceID
}

// Redacted returns a copy safe for logging.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.NATS.Password != "" {
		cp.NATS.Password = "[REDACTED]"
	}
	if cp.NATS.Token != "" {
		cp.NATS.Token = "[REDACTED]"
	}
	return &cp
}

// String returns a JSON representation of the config with secrets redacted
func (c *Config) String() string {
	data, _ := sonic.ConfigStd.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}

// CompareVersions compares two semver version strings
// Returns:
//
//	-1 if v1 < v2
//	 0 if v1 == v2
//	 1 if v1 > v2
//	error if either version is invalid
func CompareVersions(v1, v2 string) (int, error) {
	a1, b1, c1, err := parseSemVer(v1)
	if err != nil {
		return 0, fmt.Errorf("invalid version '%s': %w", v1, err)
	}
	a2, b2, c2, err := parseSemVer(v2)
	if err != nil {
		return 0, fmt.Errorf("invalid version '%s': %w", v2, err)
	}

	for _, pair := range [][2]int{{a1, a2}, {b1, b2}, {c1, c2}} {
		switch {
		case pair[0] > pair[1]:
			return 1, nil
		case pair[0] < pair[1]:
			return -1, nil
		}
	}
	return 0, nil
}

// parseSemVer parses a semantic version string (e.g., "1.2.3")
func parseSemVer(version string) (int, int, int, error) {
	if version == "" {
		return 0, 0, 0, fmt.Errorf("version cannot be empty")
	}

	parts := strings.Split(strings.TrimPrefix(version, "v"), ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("version must be in format 'major.minor.patch', got '%s'", version)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid version part '%s': %w", p, err)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}
