package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/c360/rosgraph/errors"
)

// maxConfigSize bounds config files; anything larger is rejected
// before parsing.
const maxConfigSize = 1 << 20

// envPrefix is the prefix for environment variable overrides
const envPrefix = "ROSGRAPH"

// Duration is a time.Duration that (un)marshals as a string like "5s"
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or a number of
// nanoseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		parsed, perr := time.ParseDuration(asString)
		if perr != nil {
			return fmt.Errorf("parse duration %q: %w", asString, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var asNumber int64
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return fmt.Errorf("duration must be a string or nanosecond count: %s", data)
	}
	*d = Duration(asNumber)
	return nil
}

// MarshalJSON emits the string form
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the standard library representation
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the complete daemon configuration
type Config struct {
	DomainID   int              `json:"domain_id"`
	Enclave    string           `json:"enclave,omitempty"`
	NATS       NATSConfig       `json:"nats"`
	Liveliness LivelinessConfig `json:"liveliness,omitempty"`
	Metrics    MetricsConfig    `json:"metrics,omitempty"`
	Logging    LoggingConfig    `json:"logging,omitempty"`
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs          []string      `json:"urls,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait Duration      `json:"reconnect_wait,omitempty"`
	Timeout       Duration      `json:"timeout,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
	TLS           NATSTLSConfig `json:"tls,omitempty"`
}

// NATSTLSConfig for secure NATS connections
type NATSTLSConfig struct {
	Enabled  bool   `json:"enabled"`
	CertFile string `json:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty"`
	CAFile   string `json:"ca_file,omitempty"`
}

// LivelinessConfig tunes the liveliness substrate
type LivelinessConfig struct {
	BucketPrefix string `json:"bucket_prefix,omitempty"`

	// Post-dial liveness probe: attempts and interval. Zero attempts
	// disables the probe.
	ConnectionCheckAttempts int      `json:"connection_check_attempts,omitempty"`
	ConnectionCheckInterval Duration `json:"connection_check_interval,omitempty"`
}

// MetricsConfig controls the Prometheus scrape endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// LoggingConfig controls slog output
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info, warn, error
	Format string `json:"format,omitempty"` // text or json
}

// Default returns the configuration used when the file omits a field
func Default() *Config {
	return &Config{
		DomainID: 0,
		Enclave:  "/",
		NATS: NATSConfig{
			URLs:          []string{"nats://127.0.0.1:4222"},
			MaxReconnects: -1,
			ReconnectWait: Duration(2 * time.Second),
			Timeout:       Duration(5 * time.Second),
		},
		Liveliness: LivelinessConfig{
			BucketPrefix:            "ros2_lv",
			ConnectionCheckAttempts: 3,
			ConnectionCheckInterval: Duration(time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9104,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks semantic constraints the schema cannot express
func (c *Config) Validate() error {
	if c.DomainID < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "domain_id must be non-negative")
	}
	if len(c.NATS.URLs) == 0 {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "nats.urls must not be empty")
	}
	for _, url := range c.NATS.URLs {
		if !strings.HasPrefix(url, "nats://") && !strings.HasPrefix(url, "tls://") {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				fmt.Sprintf("nats url %q must use nats:// or tls://", url))
		}
	}
	if c.NATS.TLS.Enabled && c.NATS.TLS.CertFile != "" && c.NATS.TLS.KeyFile == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "tls cert_file requires key_file")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("unknown log level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("unknown log format %q", c.Logging.Format))
	}
	return nil
}

// Clone creates a deep copy through JSON round-tripping
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// Load reads, expands, validates, and merges a JSON config file over
// the defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Load", "read config file")
	}

	expanded := expandEnv(string(data))

	if err := validateSchema([]byte(expanded)); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Load", "parse config file")
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// safeReadFile reads a regular file with a size bound
func safeReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("%s exceeds maximum config size", path)
	}
	return os.ReadFile(path)
}

// expandEnv replaces ${VAR} references with environment values.
// Unset variables expand to the empty string.
func expandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		return os.Getenv(name)
	})
}

// applyEnvOverrides lets deployment environments override file values
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(envPrefix + "_DOMAIN_ID"); val != "" {
		if id, err := strconv.Atoi(val); err == nil {
			cfg.DomainID = id
		}
	}
	if val := os.Getenv(envPrefix + "_ENCLAVE"); val != "" {
		cfg.Enclave = val
	}
	if val := os.Getenv(envPrefix + "_NATS_URLS"); val != "" {
		cfg.NATS.URLs = strings.Split(val, ",")
	}
	if val := os.Getenv(envPrefix + "_NATS_USERNAME"); val != "" {
		cfg.NATS.Username = val
	}
	if val := os.Getenv(envPrefix + "_NATS_PASSWORD"); val != "" {
		cfg.NATS.Password = val
	}
	if val := os.Getenv(envPrefix + "_NATS_TOKEN"); val != "" {
		cfg.NATS.Token = val
	}
	if val := os.Getenv(envPrefix + "_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if val := os.Getenv(envPrefix + "_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "SafeConfig", "Update", "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}
