// Package config loads process configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const devSecret = "dev-secret-change-me"

type Config struct {
	Mode      Mode   `env:"MODE" envDefault:"offline"`
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	PublicURL string `env:"PUBLIC_URL"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN"`

	BlobBasePath string `env:"BLOB_BASE_PATH" envDefault:"./data"`

	AuthHMACSecret  string        `env:"AUTH_HMAC_SECRET" envDefault:"dev-secret-change-me"`
	AuthTokenTTL    time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"8h"`
	EnableLocalAuth bool          `env:"ENABLE_LOCAL_AUTH" envDefault:"true"`
	EnableGuestAuth bool          `env:"ENABLE_GUEST_AUTH" envDefault:"false"`

	AdminUser     string `env:"ADMIN_USER" envDefault:"admin"`
	AdminPassHash string `env:"ADMIN_PASS_HASH"` // bcrypt; no bootstrap admin when empty

	EnableGoogleAuth   bool   `env:"ENABLE_GOOGLE_AUTH" envDefault:"false"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `env:"GOOGLE_REDIRECT_URI"`
	GoogleAllowedHD    string `env:"GOOGLE_ALLOWED_HD" envDefault:"asu.edu"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	InsightsCacheTTL time.Duration `env:"INSIGHTS_CACHE_TTL" envDefault:"30m"`

	CreateAIURL           string        `env:"CREATEAI_URL"`
	CreateAIToken         string        `env:"CREATEAI_TOKEN"`
	CreateAIModelProvider string        `env:"CREATEAI_MODEL_PROVIDER" envDefault:"openai"`
	CreateAIModelName     string        `env:"CREATEAI_MODEL_NAME" envDefault:"gpt4o"`
	CreateAITimeout       time.Duration `env:"CREATEAI_TIMEOUT" envDefault:"60s"`
	CreateAIMaxRetries    int           `env:"CREATEAI_MAX_RETRIES" envDefault:"3"`

	LogMode     string `env:"LOG_MODE" envDefault:"dev"`
	LogLevel    string `env:"LOG_LEVEL"`
	LogHashSalt string `env:"LOG_HASH_SALT"`
}

// Load reads the given .env files (default ".env"; missing files are fine)
// and then parses the environment. Real environment variables win over
// values from the files.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.GoogleRedirectURI == "" && cfg.PublicURL != "" {
		cfg.GoogleRedirectURI = strings.TrimSuffix(cfg.PublicURL, "/") + "/auth/google/callback"
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("MODE must be offline or online, got %q", c.Mode)
	}
	if c.Mode == ModeOnline && (c.AuthHMACSecret == "" || c.AuthHMACSecret == devSecret) {
		return errors.New("AUTH_HMAC_SECRET must be set in online mode")
	}
	if c.EnableGoogleAuth && (c.GoogleClientID == "" || c.GoogleClientSecret == "" || c.GoogleRedirectURI == "") {
		return errors.New("google auth needs GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and a redirect URI")
	}
	if c.CreateAIMaxRetries < 0 {
		return errors.New("CREATEAI_MAX_RETRIES must not be negative")
	}
	return nil
}

// Online reports whether the server runs as a hosted deployment.
func (c Config) Online() bool { return c.Mode == ModeOnline }
