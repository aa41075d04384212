// Package config handles loading and validating the storefront server
// configuration from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Loader        LoaderConfig        `yaml:"loader"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	Storefront    StorefrontConfig    `yaml:"storefront"`
	Database      DatabaseConfig      `yaml:"database"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CatalogConfig defines the upstream catalog service settings.
type CatalogConfig struct {
	Endpoint    string          `yaml:"endpoint"`
	Timeout     time.Duration   `yaml:"timeout"`
	SuccessCode int             `yaml:"success_code"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines the outbound token bucket shared by all sessions.
// A per_second of zero disables limiting.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// LoaderConfig defines per-session loader behavior.
type LoaderConfig struct {
	PageSize     int           `yaml:"page_size"`
	Debounce     time.Duration `yaml:"debounce"`
	Threshold    *float64      `yaml:"threshold"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// ThresholdValue returns the near-bottom threshold.
func (l *LoaderConfig) ThresholdValue() float64 {
	if l.Threshold == nil {
		return defaultThreshold
	}
	return *l.Threshold
}

// SessionsConfig defines session limits and idle cleanup.
type SessionsConfig struct {
	Max           int           `yaml:"max"`
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// StorefrontConfig holds the header branding shown on storefront pages.
type StorefrontConfig struct {
	Name    string `yaml:"name"`
	LogoURL string `yaml:"logo_url"`
	Address string `yaml:"address"`
	Email   string `yaml:"email"`
	Phone   string `yaml:"phone"`

	// ImageHosts restricts the image download proxy. Empty allows any
	// public host.
	ImageHosts []string `yaml:"image_hosts"`
	// ImagePrivateNetworks lets the proxy reach loopback and private
	// addresses, for local fixture servers.
	ImagePrivateNetworks bool `yaml:"image_private_networks"`
}

// Brand returns the header branding for storefront pages.
func (s *StorefrontConfig) Brand() domain.Brand {
	return domain.Brand{
		Name:    s.Name,
		LogoURL: s.LogoURL,
		Address: s.Address,
		Email:   s.Email,
		Phone:   s.Phone,
	}
}

// DatabaseConfig defines the optional PostgreSQL audit store.
type DatabaseConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	Name      string        `yaml:"name"`
	User      string        `yaml:"user"`
	Password  string        `yaml:"password"`
	SSLMode   string        `yaml:"sslmode"`
	PoolSize  int           `yaml:"pool_size"`
	Retention time.Duration `yaml:"retention"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Discord DiscordConfig `yaml:"discord"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// TelemetryConfig defines OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

const defaultThreshold = 100

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyCatalogDefaults(&cfg.Catalog)
	applyLoaderDefaults(&cfg.Loader)
	applySessionsDefaults(&cfg.Sessions)
	applyStorefrontDefaults(&cfg.Storefront)
	applyDatabaseDefaults(&cfg.Database)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyCatalogDefaults(c *CatalogConfig) {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.SuccessCode == 0 {
		c.SuccessCode = 200
	}
	if c.RateLimit.PerSecond > 0 && c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 1
	}
}

func applyLoaderDefaults(l *LoaderConfig) {
	if l.PageSize == 0 {
		l.PageSize = 10
	}
	if l.Debounce == 0 {
		l.Debounce = 200 * time.Millisecond
	}
	if l.Threshold == nil {
		t := float64(defaultThreshold)
		l.Threshold = &t
	}
	if l.FetchTimeout == 0 {
		l.FetchTimeout = 15 * time.Second
	}
}

func applySessionsDefaults(s *SessionsConfig) {
	if s.Max == 0 {
		s.Max = 1000
	}
	if s.IdleTTL == 0 {
		s.IdleTTL = 30 * time.Minute
	}
	if s.SweepInterval == 0 {
		s.SweepInterval = time.Minute
	}
}

func applyStorefrontDefaults(s *StorefrontConfig) {
	if s.Name == "" {
		s.Name = "Storefront"
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
	if d.Retention == 0 {
		d.Retention = 30 * 24 * time.Hour
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Endpoint == "" {
		t.Endpoint = "localhost:4317"
	}
	if t.ServiceName == "" {
		t.ServiceName = "tenant-storefront"
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = 1.0
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateCatalog(&cfg.Catalog)...)

	if cfg.Loader.PageSize < 0 {
		errs = append(errs, fmt.Errorf("loader.page_size must be > 0 (got %d)", cfg.Loader.PageSize))
	}
	if cfg.Loader.ThresholdValue() < 0 {
		errs = append(errs, fmt.Errorf("loader.threshold must be >= 0 (got %v)", cfg.Loader.ThresholdValue()))
	}
	if cfg.Loader.Debounce < 0 {
		errs = append(errs, fmt.Errorf("loader.debounce must be >= 0 (got %s)", cfg.Loader.Debounce))
	}
	if cfg.Sessions.Max < 0 {
		errs = append(errs, fmt.Errorf("sessions.max must be > 0 (got %d)", cfg.Sessions.Max))
	}

	if cfg.Database.Enabled {
		if cfg.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required when database is enabled"))
		}
		if cfg.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required when database is enabled"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, errors.New("database.user is required when database is enabled"))
		}
	}

	if cfg.Notifications.Discord.Enabled && cfg.Notifications.Discord.WebhookURL == "" {
		errs = append(errs, errors.New("notifications.discord.webhook_url is required when discord is enabled"))
	}

	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio must be within [0, 1] (got %v)", cfg.Telemetry.SampleRatio))
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be one of: text, json (got %q)", cfg.Logging.Format))
	}

	return errors.Join(errs...)
}

func validateCatalog(c *CatalogConfig) []error {
	if c.Endpoint == "" {
		return []error{errors.New("catalog.endpoint is required")}
	}

	var errs []error
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("catalog.endpoint must be an absolute http(s) URL (got %q)", c.Endpoint))
	}
	if c.RateLimit.PerSecond < 0 {
		errs = append(errs, fmt.Errorf("catalog.rate_limit.per_second must be >= 0 (got %v)", c.RateLimit.PerSecond))
	}
	return errs
}
