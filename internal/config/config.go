// Package config provides centralized configuration for csvexplorer.
//
// Values are resolved in three layers: struct tag defaults, an optional YAML
// file, then environment variables. The result is validated on startup so a
// misconfigured server fails before it accepts requests.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Upload   UploadConfig    `yaml:"upload"`
	Session  SessionConfig   `yaml:"session"`
	View     ViewConfig      `yaml:"view"`
	Rate     RateLimitConfig `yaml:"rate_limit"`
	Security SecurityConfig  `yaml:"security"`
	Logging  LoggingConfig   `yaml:"logging"`
	Metrics  MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080). PORT is read when
	// SERVER_PORT is unset, as most container platforms set it.
	Port int `yaml:"port" env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request, body included (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout bounds writing the response, exports included (default: 60s)
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is how long graceful shutdown may take (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds file upload limits.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted file size in bytes (default: 50MB)
	MaxFileSize int64 `yaml:"max_file_size" env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// MaxRows is the maximum number of data rows per table (default: 1000000)
	MaxRows int `yaml:"max_rows" env:"UPLOAD_MAX_ROWS" default:"1000000"`

	// MaxConcurrent is the number of uploads parsed in parallel (default: 4)
	MaxConcurrent int `yaml:"max_concurrent" env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long an upload waits for a parsing slot (default: 10s)
	MaxWaitTime time.Duration `yaml:"max_wait_time" env:"UPLOAD_MAX_WAIT_TIME" default:"10s"`

	// Timeout bounds parsing a single upload (default: 2m)
	Timeout time.Duration `yaml:"timeout" env:"UPLOAD_TIMEOUT" default:"2m"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	// TTL is how long an idle session keeps its table (default: 2h)
	TTL time.Duration `yaml:"ttl" env:"SESSION_TTL" default:"2h"`

	// MaxSessions caps live sessions, and so tables held in memory (default: 1000)
	MaxSessions int `yaml:"max_sessions" env:"SESSION_MAX" default:"1000"`

	// SweepInterval is how often expired sessions are evicted (default: 1m)
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SESSION_SWEEP_INTERVAL" default:"1m"`

	// CookieName names the session cookie (default: csvx_session)
	CookieName string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" default:"csvx_session"`

	// CookieSecure sets the Secure flag; enable behind TLS (default: false)
	CookieSecure bool `yaml:"cookie_secure" env:"SESSION_COOKIE_SECURE" default:"false"`
}

// ViewConfig holds table rendering settings.
type ViewConfig struct {
	// PageSize is the number of rows per rendered page (default: 100)
	PageSize int `yaml:"page_size" env:"VIEW_PAGE_SIZE" default:"100"`

	// MaxDistinctValues caps the options offered for an equality filter (default: 500)
	MaxDistinctValues int `yaml:"max_distinct_values" env:"VIEW_MAX_DISTINCT_VALUES" default:"500"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the general limit per IP (default: 300)
	RequestsPerMinute int `yaml:"requests_per_minute" env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// UploadLimit is requests per minute for the upload endpoint (default: 10)
	UploadLimit int `yaml:"upload_limit" env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `yaml:"enable_csp" env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"LOG_LEVEL" default:"info"`

	// Format is text, json, or auto (text on a terminal, json otherwise)
	Format string `yaml:"format" env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" default:"true"`
	Path    string `yaml:"path" env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
