// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Source   SourceConfig
	Session  SessionConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Ingest   IngestConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Required for the postgres
	// source and for ingestion. Supports DATABASE_URL and DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// SourceConfig selects where the indicator table is read from.
type SourceConfig struct {
	// Driver is postgres or sqlite (default: postgres)
	Driver string `env:"SOURCE_DRIVER" default:"postgres"`

	// Table is the indicator table name (default: core_economic_indicators)
	Table string `env:"SOURCE_TABLE" default:"core_economic_indicators"`

	// SQLitePath is the database file for the sqlite driver
	SQLitePath string `env:"SOURCE_SQLITE_PATH" default:"eurometrics.db"`

	// QueryTimeout bounds the single base-table query (default: 30s)
	QueryTimeout time.Duration `env:"SOURCE_QUERY_TIMEOUT" default:"30s"`
}

// SessionConfig holds per-visitor session settings.
type SessionConfig struct {
	// CookieName is the session cookie (default: eurometrics_session)
	CookieName string `env:"SESSION_COOKIE_NAME" default:"eurometrics_session"`

	// IdleTimeout evicts sessions not seen for this long (default: 30m)
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" default:"30m"`

	// SweepInterval is how often idle sessions are evicted (default: 5m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"5m"`

	// MaxConcurrentLoads bounds parallel base-table loads (default: 4)
	MaxConcurrentLoads int `env:"SESSION_MAX_CONCURRENT_LOADS" default:"4"`

	// LoadWaitTime is how long to wait for a load slot (default: 30s)
	LoadWaitTime time.Duration `env:"SESSION_LOAD_WAIT_TIME" default:"30s"`

	// SecureCookie sets the Secure attribute on the session cookie (default: false)
	SecureCookie bool `env:"SESSION_SECURE_COOKIE" default:"false"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// ExportLimit is requests per minute for export endpoints (default: 10)
	ExportLimit int `env:"RATE_LIMIT_EXPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// IngestConfig holds settings for the ingestion commands.
type IngestConfig struct {
	// ECBBaseURL is the ECB data API root
	ECBBaseURL string `env:"INGEST_ECB_BASE_URL" default:"https://data-api.ecb.europa.eu/service/data"`

	// EurostatBaseURL is the Eurostat dissemination API root
	EurostatBaseURL string `env:"INGEST_EUROSTAT_BASE_URL" default:"https://ec.europa.eu/eurostat/api/dissemination"`

	// HTTPTimeout bounds each fetch (default: 60s)
	HTTPTimeout time.Duration `env:"INGEST_HTTP_TIMEOUT" default:"60s"`

	// ArchiveDir keeps raw responses when set
	ArchiveDir string `env:"INGEST_ARCHIVE_DIR"`

	// BatchSize is rows per COPY batch (default: 1000)
	BatchSize int `env:"INGEST_BATCH_SIZE" default:"1000"`

	// Interval is the schedule period of the schedule command (default: 24h)
	Interval time.Duration `env:"INGEST_INTERVAL" default:"24h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
