// Package config loads process configuration for the arena servers:
// defaults, then an optional YAML file, then environment variables (with a
// .env file loaded first when present).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	Environment string         `yaml:"environment"`
	API         APIConfig      `yaml:"api"`
	Web         WebConfig      `yaml:"web"`
	Redis       RedisConfig    `yaml:"redis"`
	Database    DatabaseConfig `yaml:"database"`
	Auth        AuthConfig     `yaml:"auth"`
	Mail        MailConfig     `yaml:"mail"`
	Search      SearchConfig   `yaml:"search"`
	Log         LogConfig      `yaml:"log"`
}

type APIConfig struct {
	Addr               string `yaml:"addr"`
	CookieDomain       string `yaml:"cookie_domain"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

type WebConfig struct {
	Addr            string        `yaml:"addr"`
	BackendURL      string        `yaml:"backend_url"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	// RequireOnboarding keeps users who have not finished onboarding out of
	// protected pages other than /onboarding.
	RequireOnboarding bool   `yaml:"require_onboarding"`
	RoutesFile        string `yaml:"routes_file"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	Issuer         string        `yaml:"issuer"`
	GoogleClientID string        `yaml:"google_client_id"`
	FrontendURL    string        `yaml:"frontend_url"`
	ResetTTL       time.Duration `yaml:"reset_ttl"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type SearchConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Limit    int           `yaml:"limit"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration suitable for local development.
func Default() Config {
	return Config{
		Environment: EnvDevelopment,
		API: APIConfig{
			Addr:               ":5000",
			RateLimitPerMinute: 300,
		},
		Web: WebConfig{
			Addr:              ":3000",
			BackendURL:        "http://localhost:5000",
			UpstreamTimeout:   10 * time.Second,
			RequireOnboarding: true,
		},
		Redis:    RedisConfig{URL: "redis://localhost:6379/0"},
		Database: DatabaseConfig{URL: "", MaxConns: 10},
		Auth: AuthConfig{
			TokenTTL:    7 * 24 * time.Hour,
			Issuer:      "arena",
			FrontendURL: "http://localhost:3000",
			ResetTTL:    time.Hour,
		},
		Mail:   MailConfig{Host: "smtp.gmail.com", Port: 587},
		Search: SearchConfig{CacheTTL: 30 * time.Second, Limit: 10},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds a Config. A .env file in the working directory is loaded into
// the environment first (existing variables win); path, if non-empty, is a
// YAML file overlaid on the defaults; environment variables override both.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	c.Environment = getEnv("ENVIRONMENT", getEnv("APP_ENV", c.Environment))

	c.API.Addr = getEnv("API_ADDR", c.API.Addr)
	c.API.CookieDomain = getEnv("COOKIE_DOMAIN", c.API.CookieDomain)
	c.Web.Addr = getEnv("WEB_ADDR", c.Web.Addr)
	c.Web.BackendURL = strings.TrimRight(getEnv("BACKEND_URL", c.Web.BackendURL), "/")
	c.Web.RoutesFile = getEnv("ROUTES_FILE", c.Web.RoutesFile)
	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.Issuer = getEnv("JWT_ISSUER", c.Auth.Issuer)
	c.Auth.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", c.Auth.GoogleClientID)
	c.Auth.FrontendURL = strings.TrimRight(getEnv("FRONTEND_URL", c.Auth.FrontendURL), "/")
	c.Mail.Host = getEnv("SMTP_HOST", c.Mail.Host)
	c.Mail.Username = getEnv("EMAIL_USER", c.Mail.Username)
	c.Mail.Password = getEnv("EMAIL_PASS", c.Mail.Password)
	c.Mail.From = getEnv("EMAIL_FROM", c.Mail.From)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	var err error
	if c.API.RateLimitPerMinute, err = getEnvInt("RATE_LIMIT_PER_MINUTE", c.API.RateLimitPerMinute); err != nil {
		return err
	}
	if c.Mail.Port, err = getEnvInt("SMTP_PORT", c.Mail.Port); err != nil {
		return err
	}
	if c.Search.Limit, err = getEnvInt("SEARCH_LIMIT", c.Search.Limit); err != nil {
		return err
	}
	if c.Web.RequireOnboarding, err = getEnvBool("REQUIRE_ONBOARDING", c.Web.RequireOnboarding); err != nil {
		return err
	}
	if c.Web.UpstreamTimeout, err = getEnvDuration("UPSTREAM_TIMEOUT", c.Web.UpstreamTimeout); err != nil {
		return err
	}
	if c.Auth.TokenTTL, err = getEnvDuration("TOKEN_TTL", c.Auth.TokenTTL); err != nil {
		return err
	}
	if c.Auth.ResetTTL, err = getEnvDuration("RESET_TTL", c.Auth.ResetTTL); err != nil {
		return err
	}
	if c.Search.CacheTTL, err = getEnvDuration("SEARCH_CACHE_TTL", c.Search.CacheTTL); err != nil {
		return err
	}
	return nil
}

// Validate checks the settings both servers depend on. Server-specific
// requirements (a database for the API, a backend URL for the web server)
// are checked by the server constructors.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("config: unknown environment %q", c.Environment)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("config: auth.token_ttl must be positive")
	}
	if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		return errors.New("config: JWT_SECRET must be at least 32 bytes in production")
	}
	if c.Web.UpstreamTimeout <= 0 {
		return errors.New("config: web.upstream_timeout must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}
