package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	ServerPort           string        `mapstructure:"SERVER_PORT"`
	GinMode              string        `mapstructure:"GIN_MODE"`
	LogMode              string        `mapstructure:"LOG_MODE"`
	DatabaseURL          string        `mapstructure:"DATABASE_URL"`
	CatalogPath          string        `mapstructure:"CATALOG_PATH"`
	CORSOrigins          []string      `mapstructure:"CORS_ORIGINS"`
	SessionSweepInterval time.Duration `mapstructure:"SESSION_SWEEP_INTERVAL"`
	SessionRetention     time.Duration `mapstructure:"SESSION_RETENTION"`
	ProfileTTL           time.Duration `mapstructure:"PROFILE_TTL"`
	Auth                 AuthConfig    `mapstructure:"AUTH"`
	ExamAPI              ExamAPIConfig `mapstructure:"EXAM_API"`
	Store                StoreConfig   `mapstructure:"STORE"`
	Redis                RedisConfig   `mapstructure:"REDIS"`
	AMQP                 AMQPConfig    `mapstructure:"AMQP"`

	// ConfigFile is the config.yaml that was read, empty when none was found.
	ConfigFile string `mapstructure:"-"`
}

// AuthConfig holds bearer-token validation settings
type AuthConfig struct {
	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`
	Issuer        string `mapstructure:"ISSUER"`
}

// ExamAPIConfig points at the upstream exam backend
type ExamAPIConfig struct {
	BaseURL string        `mapstructure:"BASE_URL"`
	Timeout time.Duration `mapstructure:"TIMEOUT"`
}

// StoreConfig selects where advisory client state is persisted: memory, redis or postgres
type StoreConfig struct {
	Backend string `mapstructure:"BACKEND"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"ADDR"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// AMQPConfig is optional; an empty URL disables event publishing
type AMQPConfig struct {
	URL      string `mapstructure:"URL"`
	Exchange string `mapstructure:"EXCHANGE"`
}

// LoadConfig loads configuration from .env, environment variables and config.yaml
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("SERVER_PORT", ":8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_MODE", "development")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("CATALOG_PATH", "./catalog.yaml")
	v.SetDefault("CORS_ORIGINS", []string{"http://localhost:3000"})
	v.SetDefault("SESSION_SWEEP_INTERVAL", "1m")
	v.SetDefault("SESSION_RETENTION", "30m")
	v.SetDefault("PROFILE_TTL", "5m")
	v.SetDefault("AUTH.JWT_SIGNING_KEY", "change-me-medprep-jwt-key") // IMPORTANT: Change this in production
	v.SetDefault("AUTH.ISSUER", "")
	v.SetDefault("EXAM_API.BASE_URL", "http://localhost:5000/api")
	v.SetDefault("EXAM_API.TIMEOUT", "15s")
	v.SetDefault("STORE.BACKEND", "memory")
	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("AMQP.URL", "")
	v.SetDefault("AMQP.EXCHANGE", "medprep.events")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	// MEDPREP_SERVER_PORT, MEDPREP_EXAM_API_BASE_URL, ...
	v.SetEnvPrefix("MEDPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "redis":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: STORE.BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown STORE.BACKEND %q", c.Store.Backend)
	}
	if c.ExamAPI.BaseURL == "" {
		return fmt.Errorf("config: EXAM_API.BASE_URL is required")
	}
	if c.Auth.JWTSigningKey == "" {
		return fmt.Errorf("config: AUTH.JWT_SIGNING_KEY is required")
	}
	return nil
}
