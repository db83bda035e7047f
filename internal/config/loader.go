package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "credvault.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "CREDVAULT_PORT")
	setString(&cfg.Server.CORSOrigin, "CREDVAULT_CORS_ORIGIN")
	setString(&cfg.Server.PublicBaseURL, "CREDVAULT_PUBLIC_BASE_URL")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "CREDVAULT_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "CREDVAULT_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "CREDVAULT_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "CREDVAULT_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "CREDVAULT_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Bucket, "CREDVAULT_RATE_BUCKET")
	setString(&cfg.Vault.EncryptionKey, "CREDENTIAL_ENCRYPTION_KEY")
	setDuration(&cfg.Vault.RefreshBuffer, "CREDVAULT_REFRESH_BUFFER")
	setString(&cfg.Vault.PlatformOpenAIKey, "PLATFORM_OPENAI_KEY")
	setString(&cfg.Vault.PlatformAnthropicKey, "PLATFORM_ANTHROPIC_KEY")
	setDuration(&cfg.OAuth.StateTTL, "CREDVAULT_STATE_TTL")
	setDuration(&cfg.OAuth.SweepInterval, "CREDVAULT_STATE_SWEEP_INTERVAL")
	setString(&cfg.Providers.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&cfg.Providers.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&cfg.Providers.Slack.ClientID, "SLACK_CLIENT_ID")
	setString(&cfg.Providers.Slack.ClientSecret, "SLACK_CLIENT_SECRET")
	setString(&cfg.Providers.Notion.ClientID, "NOTION_CLIENT_ID")
	setString(&cfg.Providers.Notion.ClientSecret, "NOTION_CLIENT_SECRET")
	setString(&cfg.Providers.HubSpot.ClientID, "HUBSPOT_CLIENT_ID")
	setString(&cfg.Providers.HubSpot.ClientSecret, "HUBSPOT_CLIENT_SECRET")
	setString(&cfg.Providers.Stripe.ClientID, "STRIPE_CLIENT_ID")
	setString(&cfg.Providers.Stripe.ClientSecret, "STRIPE_SECRET_KEY")
	setString(&cfg.Mirror.BaseURL, "N8N_BASE_URL")
	setString(&cfg.Mirror.APIKey, "N8N_API_KEY")
	setDuration(&cfg.Mirror.Timeout, "CREDVAULT_MIRROR_TIMEOUT")
	setString(&cfg.Auth.JWTSecret, "CREDVAULT_JWT_SECRET")
	setString(&cfg.Auth.DevTenant, "CREDVAULT_DEV_TENANT")
	setInt(&cfg.Rate.RequestsPerWindow, "CREDVAULT_RATE_LIMIT")
	setDuration(&cfg.Rate.Window, "CREDVAULT_RATE_WINDOW")
	setString(&cfg.Logging.Level, "CREDVAULT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CREDVAULT_LOG_SERVICE")
	setBool(&cfg.Tracing.Enabled, "CREDVAULT_TRACING_ENABLED")
	setString(&cfg.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate checks that required fields are set. The encryption key is
// checked here so a misconfigured deployment fails at startup, not on the
// first connect.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if len(cfg.Vault.EncryptionKey) != 64 {
		return errors.New("vault.encryption_key must be 64 hex characters")
	}
	if cfg.OAuth.StateTTL <= 0 {
		return errors.New("oauth.state_ttl must be positive")
	}
	if cfg.Rate.RequestsPerWindow < 1 {
		return errors.New("rate.requests_per_window must be >= 1")
	}
	if cfg.Rate.Window <= 0 {
		return errors.New("rate.window must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
