// Package config defines station configuration and its loader.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StationID names this station on records and published outcomes.
	StationID string `koanf:"station_id"`

	// Timezone is the IANA zone that defines the attendance day.
	Timezone string `koanf:"timezone"`

	// CodePrefix marks structured payloads, e.g. PERSON_42.
	CodePrefix string `koanf:"code_prefix"`

	// Scan coalescing and suppression windows.
	MinScanIntervalMS int `koanf:"min_scan_interval_ms"`
	DebounceWindowMS  int `koanf:"debounce_window_ms"`
	SuppressionTTLMS  int `koanf:"suppression_ttl_ms"`

	// SuppressionBackend is memory or redis.
	SuppressionBackend string `koanf:"suppression_backend"`

	// QueueSize bounds the candidate queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of check-in shards.
	WorkerCount int `koanf:"worker_count"`

	// StoreBackend is memory or postgres.
	StoreBackend string `koanf:"store_backend"`
	DatabaseURL  string `koanf:"database_url"`
	StoreMigrate bool   `koanf:"store_migrate"`
	SeedFile     string `koanf:"seed_file"`

	RedisAddr    string `koanf:"redis_addr"`
	AMQPURL      string `koanf:"amqp_url"`
	AMQPExchange string `koanf:"amqp_exchange"`

	// ScanInput selects the decode source: http or stdin.
	ScanInput string `koanf:"scan_input"`

	// ContextRequiredRoles is a comma separated list of roles that may only
	// check in to a class session or event.
	ContextRequiredRoles string `koanf:"context_required_roles"`

	// FixedClassID or FixedEventID pins the station to one context.
	FixedClassID int64 `koanf:"fixed_class_id"`
	FixedEventID int64 `koanf:"fixed_event_id"`

	// AuthSigningKey enables bearer tokens on mutating routes when set.
	AuthSigningKey string `koanf:"auth_signing_key"`
	AuthIssuer     string `koanf:"auth_issuer"`

	// RateLimitPerMin caps requests per client. Zero disables limiting.
	RateLimitPerMin int `koanf:"rate_limit_per_min"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		StationID:            "station-1",
		Timezone:             "Local",
		CodePrefix:           "PERSON_",
		MinScanIntervalMS:    800,
		DebounceWindowMS:     500,
		SuppressionTTLMS:     30_000,
		SuppressionBackend:   BackendMemory,
		QueueSize:            1024,
		WorkerCount:          runtime.NumCPU(),
		StoreBackend:         BackendMemory,
		AMQPExchange:         "rollcall",
		ScanInput:            InputHTTP,
		ContextRequiredRoles: "student",
		AuthIssuer:           "rollcall",
		RateLimitPerMin:      600,
	}
}

// Backend and input names.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	InputHTTP       = "http"
	InputStdin      = "stdin"
)

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// RequiredRoles splits ContextRequiredRoles.
func (c *Config) RequiredRoles() []string {
	var roles []string
	for _, r := range strings.Split(c.ContextRequiredRoles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

func (c *Config) MinScanInterval() time.Duration {
	return time.Duration(c.MinScanIntervalMS) * time.Millisecond
}

func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceWindowMS) * time.Millisecond
}

func (c *Config) SuppressionTTL() time.Duration {
	return time.Duration(c.SuppressionTTLMS) * time.Millisecond
}

// Validate checks field ranges and combinations.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MinScanIntervalMS < 0, c.DebounceWindowMS < 0:
		return fmt.Errorf("%w: scan windows must not be negative", ErrInvalidConfig)
	case c.SuppressionTTLMS <= 0:
		return fmt.Errorf("%w: suppression_ttl_ms must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.FixedClassID != 0 && c.FixedEventID != 0:
		return fmt.Errorf("%w: fixed_class_id and fixed_event_id are exclusive", ErrInvalidConfig)
	case c.FixedClassID < 0 || c.FixedEventID < 0:
		return fmt.Errorf("%w: fixed context ids must be positive", ErrInvalidConfig)
	case c.RateLimitPerMin < 0:
		return fmt.Errorf("%w: rate_limit_per_min must not be negative", ErrInvalidConfig)
	}

	switch c.SuppressionBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis suppression backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %w: suppression_backend %q", ErrInvalidConfig, ErrUnknownBackend, c.SuppressionBackend)
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %w: store_backend %q", ErrInvalidConfig, ErrUnknownBackend, c.StoreBackend)
	}

	if c.ScanInput != InputHTTP && c.ScanInput != InputStdin {
		return fmt.Errorf("%w: %w: scan_input %q", ErrInvalidConfig, ErrUnknownBackend, c.ScanInput)
	}
	_, err := c.Location()
	return err
}
