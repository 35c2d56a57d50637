package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/healthfirst/portal-api/internal/email"
	"github.com/healthfirst/portal-api/internal/middleware"
	authsvc "github.com/healthfirst/portal-api/internal/service/auth"
	"github.com/healthfirst/portal-api/internal/session"
	"github.com/healthfirst/portal-api/internal/upstream"
	"github.com/healthfirst/portal-api/pkg/logger"
)

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// AuthConfig selects the backend the portal talks to. In simulated mode an
// in-process directory answers with the demo accounts and a signed token.
type AuthConfig struct {
	Mode        string                  `mapstructure:"mode"`
	TokenSecret string                  `mapstructure:"token_secret"`
	TokenTTL    time.Duration           `mapstructure:"token_ttl"`
	Directory   authsvc.DirectoryConfig `mapstructure:"directory"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// ExpiryConfig bounds how long idle per-session state is kept in memory.
type ExpiryConfig struct {
	IdleTTL         time.Duration `mapstructure:"idle_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

type Config struct {
	Server    ServerConfig          `mapstructure:"server"`
	Log       logger.Config         `mapstructure:"log"`
	Auth      AuthConfig            `mapstructure:"auth"`
	Upstream  upstream.Config       `mapstructure:"upstream"`
	Session   session.Config        `mapstructure:"session"`
	Email     email.Config          `mapstructure:"email"`
	RateLimit RateLimitConfig       `mapstructure:"rate_limit"`
	CORS      middleware.CORSConfig `mapstructure:"cors"`
	Flows     ExpiryConfig          `mapstructure:"flows"`
	Drafts    ExpiryConfig          `mapstructure:"drafts"`
	Metrics   MetricsConfig         `mapstructure:"metrics"`
}

// secrets are read from PORTAL_* variables and win over the config file.
type secrets struct {
	Port            int    `envconfig:"PORT"`
	TokenSecret     string `envconfig:"TOKEN_SECRET"`
	UpstreamBaseURL string `envconfig:"UPSTREAM_BASE_URL"`
	RedisURL        string `envconfig:"REDIS_URL"`
	SessionDSN      string `envconfig:"SESSION_DSN"`
	SMTPPassword    string `envconfig:"SMTP_PASSWORD"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("auth.mode", authsvc.ModeSimulated)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.directory.login_delay", 2*time.Second)
	v.SetDefault("auth.directory.register_delay", 3*time.Second)

	v.SetDefault("upstream.timeout", 15*time.Second)
	v.SetDefault("upstream.breaker.max_requests", 1)
	v.SetDefault("upstream.breaker.interval", time.Minute)
	v.SetDefault("upstream.breaker.timeout", 30*time.Second)
	v.SetDefault("upstream.breaker.failure_threshold", 5)

	v.SetDefault("session.backend", session.BackendMemory)
	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("email.port", 587)
	v.SetDefault("email.from", "no-reply@healthfirst.com")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cors.allow_origins", []string{"*"})
	v.SetDefault("cors.max_age", 12*time.Hour)

	v.SetDefault("flows.idle_ttl", 30*time.Minute)
	v.SetDefault("flows.cleanup_interval", 10*time.Minute)
	v.SetDefault("drafts.idle_ttl", 2*time.Hour)
	v.SetDefault("drafts.cleanup_interval", 10*time.Minute)

	v.SetDefault("metrics.namespace", "portal")
}

// LoadConfig reads config.yml from path, or from the usual locations when
// path is empty. A missing file leaves the defaults in place.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Warn().Msg("no config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var env secrets
	if err := envconfig.Process("portal", &env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	env.apply(&cfg)
	cfg.Auth.Mode = strings.ToLower(cfg.Auth.Mode)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s secrets) apply(cfg *Config) {
	if s.Port != 0 {
		cfg.Server.Port = s.Port
	}
	if s.TokenSecret != "" {
		cfg.Auth.TokenSecret = s.TokenSecret
	}
	if s.UpstreamBaseURL != "" {
		cfg.Upstream.BaseURL = s.UpstreamBaseURL
	}
	if s.RedisURL != "" {
		cfg.Session.RedisURL = s.RedisURL
	}
	if s.SessionDSN != "" {
		cfg.Session.DSN = s.SessionDSN
	}
	if s.SMTPPassword != "" {
		cfg.Email.Password = s.SMTPPassword
	}
}

// Validate checks the settings the selected modes depend on.
func (c *Config) Validate() error {
	switch c.Auth.Mode {
	case authsvc.ModeSimulated:
		if c.Auth.TokenSecret == "" {
			return errors.New("auth.token_secret is required in simulated mode")
		}
	case authsvc.ModeRemote:
		if c.Upstream.BaseURL == "" {
			return errors.New("upstream.base_url is required in remote mode")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.Auth.Mode)
	}

	switch c.Session.Backend {
	case session.BackendRedis:
		if c.Session.RedisURL == "" {
			return errors.New("session.redis_url is required for the redis backend")
		}
	case session.BackendSQLite, session.BackendPostgres:
		if c.Session.DSN == "" {
			return fmt.Errorf("session.dsn is required for the %s backend", c.Session.Backend)
		}
	}
	return nil
}
