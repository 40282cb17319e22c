package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/rbeiter/authcore/pkg/config"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the auth service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"AUTH_HTTP_PORT" envDefault:"8001"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"authcore"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"authcore_secret"`
	PostgresDB   string `env:"AUTH_DB_NAME" envDefault:"auth_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis (revocation store)
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT. JWT_KEYS holds kid:secret pairs; JWT_SECRET is a convenience for
	// single-key deployments and maps to kid "default".
	JWTSecret        string            `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTKeys          map[string]string `env:"JWT_KEYS" envSeparator:","`
	JWTActiveKID     string            `env:"JWT_ACTIVE_KID" envDefault:"default"`
	JWTAccessExpiry  time.Duration     `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration     `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"168h"`

	// Password hashing
	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`

	// Revocation sweep
	SweepInterval time.Duration `env:"REVOCATION_SWEEP_INTERVAL" envDefault:"10m"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Tracing
	TracingEnabled  bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint    string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSampleRate float64 `env:"TRACE_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load auth config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.JWTRefreshExpiry <= cfg.JWTAccessExpiry {
		return nil, fmt.Errorf("JWT_REFRESH_TOKEN_EXPIRY (%s) must exceed JWT_ACCESS_TOKEN_EXPIRY (%s)",
			cfg.JWTRefreshExpiry, cfg.JWTAccessExpiry)
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("invalid REVOCATION_SWEEP_INTERVAL: %s", cfg.SweepInterval)
	}

	// In non-development environments, require explicitly set, strong secrets.
	if cfg.Environment != "development" {
		for kid, secret := range cfg.KeySet() {
			if secret == defaultJWTSecret {
				return nil, fmt.Errorf("JWT secret for key %q must be explicitly set in %q mode", kid, cfg.Environment)
			}
			if len(secret) < 32 {
				return nil, fmt.Errorf("JWT secret for key %q must be at least 32 characters long, got %d", kid, len(secret))
			}
		}
	}

	keys := cfg.KeySet()
	if _, ok := keys[cfg.JWTActiveKID]; !ok {
		return nil, fmt.Errorf("JWT_ACTIVE_KID %q not present in key set", cfg.JWTActiveKID)
	}

	return cfg, nil
}

// KeySet returns the JWT signing keys by kid. When JWT_KEYS is unset the
// single JWT_SECRET is exposed under kid "default".
func (c *Config) KeySet() map[string]string {
	if len(c.JWTKeys) > 0 {
		return c.JWTKeys
	}
	return map[string]string{"default": c.JWTSecret}
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
