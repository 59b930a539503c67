// Package config provides centralized configuration management for the
// cost-forecast service. It loads configuration from environment variables
// with sensible defaults and validates all settings on startup to fail fast
// on misconfiguration.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Source   SourceConfig
	Quote    QuoteConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to. The service is meant for a local
	// desktop client, so it defaults to loopback only.
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 5000)
	Port int `env:"SERVER_PORT" default:"5000"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 2m,
	// generation plus file download must fit inside it)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 90s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s"`
}

// DatabaseConfig holds remote store connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 8)
	MaxConns int `env:"DB_MAX_CONNS" default:"8"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// StatementTimeout bounds every store call so a hung network call
	// cannot block an operation indefinitely (default: 30s)
	StatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" default:"30s"`
}

// SourceConfig holds the spreadsheet and output filesystem layout.
type SourceConfig struct {
	// ProcessWorkbook is the cleaned process-log workbook consumed by sync.
	ProcessWorkbook string `env:"SOURCE_PROCESS_WORKBOOK" default:"data/cleaned_data.xlsx"`

	// TaxRateWorkbook is the secondary tax-rate workbook. Optional: sync
	// skips the tax-rate step when the file is absent.
	TaxRateWorkbook string `env:"SOURCE_TAXRATE_WORKBOOK" default:"data/taxFare.xlsx"`

	// Template is the cost-forecast template workbook. It is copied for
	// every generation and never opened for writing itself.
	Template string `env:"FORECAST_TEMPLATE" default:"data/Excel_base/base.xlsx"`

	// GeneratedRoot is the directory generated documents are written under,
	// one subdirectory per process.
	GeneratedRoot string `env:"GENERATED_ROOT" default:"generated"`

	// CodeMapFile is an optional YAML file merged over the built-in
	// destination/currency/supplier translation table.
	CodeMapFile string `env:"CODE_MAP_FILE"`
}

// QuoteConfig holds external exchange-quote service settings.
type QuoteConfig struct {
	// BaseURL is the daily-quote service endpoint.
	BaseURL string `env:"QUOTE_BASE_URL" default:"https://olinda.bcb.gov.br/olinda/servico/PTAX/versao/v1/odata"`

	// MaxDaysBack is how many days the lookup walks backward, inclusive of
	// the reference day itself (default: 10)
	MaxDaysBack int `env:"QUOTE_MAX_DAYS_BACK" default:"10"`

	// Timeout bounds each individual probe request (default: 10s)
	Timeout time.Duration `env:"QUOTE_TIMEOUT" default:"10s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.StatementTimeout <= 0 {
		errs = append(errs, "DB_STATEMENT_TIMEOUT must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Source.ProcessWorkbook == "" {
		errs = append(errs, "SOURCE_PROCESS_WORKBOOK is required")
	}
	if c.Source.Template == "" {
		errs = append(errs, "FORECAST_TEMPLATE is required")
	}
	if c.Source.GeneratedRoot == "" {
		errs = append(errs, "GENERATED_ROOT is required")
	}

	if c.Quote.BaseURL == "" {
		errs = append(errs, "QUOTE_BASE_URL is required")
	}
	if c.Quote.MaxDaysBack <= 0 {
		errs = append(errs, "QUOTE_MAX_DAYS_BACK must be positive")
	}
	if c.Quote.Timeout <= 0 {
		errs = append(errs, "QUOTE_TIMEOUT must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Source: {ProcessWorkbook: %q, Template: %q, GeneratedRoot: %q}, ",
		c.Source.ProcessWorkbook, c.Source.Template, c.Source.GeneratedRoot))
	b.WriteString(fmt.Sprintf("Quote: {BaseURL: %q, MaxDaysBack: %d}, ",
		c.Quote.BaseURL, c.Quote.MaxDaysBack))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
