package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"

	"github.com/sabio/salesforce-reports-mcp-go/pkg/salesforce"
)

// Config holds the MCP server configuration.
type Config struct {
	// Server
	Transport   string `env:"MCP_TRANSPORT" envDefault:"stdio"`
	Host        string `env:"MCP_HOST" envDefault:"0.0.0.0"`
	Port        int    `env:"MCP_PORT" envDefault:"8080"`
	MetricsPort int    `env:"MCP_METRICS_PORT" envDefault:"9090"`

	// Rate limiting
	RateLimitRPS   float64 `env:"MCP_RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"MCP_RATE_LIMIT_BURST" envDefault:"10"`

	// Observability
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Salesforce SalesforceConfig
}

// SalesforceConfig holds the org connection settings.
type SalesforceConfig struct {
	LoginURL      string        `env:"SALESFORCE_LOGIN_URL" envDefault:"https://login.salesforce.com"`
	InstanceURL   string        `env:"SALESFORCE_INSTANCE_URL"`
	AccessToken   string        `env:"SALESFORCE_ACCESS_TOKEN"`
	ClientID      string        `env:"SALESFORCE_CLIENT_ID"`
	ClientSecret  string        `env:"SALESFORCE_CLIENT_SECRET"`
	Username      string        `env:"SALESFORCE_USERNAME"`
	Password      string        `env:"SALESFORCE_PASSWORD"`
	SecurityToken string        `env:"SALESFORCE_SECURITY_TOKEN"`
	APIVersion    string        `env:"SALESFORCE_API_VERSION" envDefault:"60.0"`
	Timeout       time.Duration `env:"SALESFORCE_TIMEOUT" envDefault:"60s"`
	SessionTTL    time.Duration `env:"SALESFORCE_SESSION_TTL" envDefault:"2h"`
}

// Client returns the settings in the form the Salesforce client takes.
func (s SalesforceConfig) Client() salesforce.Config {
	return salesforce.Config{
		LoginURL:      s.LoginURL,
		InstanceURL:   s.InstanceURL,
		AccessToken:   s.AccessToken,
		ClientID:      s.ClientID,
		ClientSecret:  s.ClientSecret,
		Username:      s.Username,
		Password:      s.Password,
		SecurityToken: s.SecurityToken,
		APIVersion:    s.APIVersion,
		Timeout:       s.Timeout,
		SessionTTL:    s.SessionTTL,
	}
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	return loadFromEnv(nil)
}

func loadFromEnv(environment map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{
		Environment: environment,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Transport != "stdio" && c.Transport != "sse" {
		return fmt.Errorf("unknown transport mode: %s (must be stdio or sse)", c.Transport)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}
	if c.Transport == "sse" && c.MetricsPort == c.Port {
		return fmt.Errorf("metrics port %d collides with the SSE port", c.MetricsPort)
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	if c.Salesforce.Timeout <= 0 {
		return fmt.Errorf("salesforce timeout must be positive, got %s", c.Salesforce.Timeout)
	}
	if c.Salesforce.SessionTTL <= 0 {
		return fmt.Errorf("salesforce session TTL must be positive, got %s", c.Salesforce.SessionTTL)
	}

	if _, err := c.Salesforce.Client().Mode(); err != nil {
		return fmt.Errorf("invalid Salesforce credentials: %w", err)
	}

	return nil
}

// ParseLogLevel maps a LOG_LEVEL value onto a logger level.
func ParseLogLevel(level string) (log.Level, error) {
	switch level {
	case "debug":
		return log.Debug, nil
	case "info":
		return log.Info, nil
	case "warn":
		return log.Warn, nil
	case "error":
		return log.Error, nil
	default:
		return log.NoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}
