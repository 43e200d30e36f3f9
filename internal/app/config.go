package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

// Config holds the API server configuration, loadable from environment
// variables (GAMESTORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (GAMESTORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL    string `default:"redis://localhost:6379/0" usage:"Redis connection URL (GAMESTORE_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	BcryptCost  int    `default:"12" usage:"bcrypt cost for password hashing" flag:"bcrypt-cost"`
	Session     SessionConfig
	LoginLimit  LoginLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// SessionConfig controls the session cookie and its Redis storage.
type SessionConfig struct {
	TTL          time.Duration `default:"24h" usage:"Session lifetime, refreshed on access"`
	CookieName   string        `default:"sid" usage:"Session cookie name" flag:"session-cookie"`
	CookieSecure bool          `default:"false" usage:"Mark the session cookie Secure" flag:"session-secure"`
	KeyPrefix    string        `default:"gamestore:sess" usage:"Redis key prefix for sessions" flag:"session-prefix"`
}

// LoginLimitConfig controls the per-client login rate limit.
type LoginLimitConfig struct {
	Max    int           `default:"10" usage:"Max login attempts per window"`
	Window time.Duration `default:"1m" usage:"Login rate limit window"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (session cookie)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig reads an optional .env file, then environment variables, YAML
// config files and flags.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "GAMESTORE",
		Files:     []string{"config.yaml", "/etc/gamestore/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the unprefixed DATABASE_URL, REDIS_URL and PORT
// variables set by hosting platforms.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if v := os.Getenv("REDIS_URL"); v != "" && os.Getenv("GAMESTORE_REDIS_URL") == "" {
		c.RedisURL = v
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set GAMESTORE_DATABASE_URL or DATABASE_URL")
	case c.RedisURL == "":
		return errors.New("redis URL is required: set GAMESTORE_REDIS_URL or REDIS_URL")
	case c.Session.TTL <= 0:
		return errors.New("session TTL must be positive")
	case c.LoginLimit.Max <= 0 || c.LoginLimit.Window < time.Millisecond:
		return errors.New("login limit requires a positive max and a window of at least 1ms")
	}
	return nil
}
