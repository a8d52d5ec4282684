// Package config loads process configuration from the environment and the
// site copy from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Mail providers understood by the notification gateway.
const (
	MailProviderSMTP   = "smtp"
	MailProviderResend = "resend"
)

// Config holds all application configuration.
type Config struct {
	ServerAddr  string `env:"SERVER_ADDR" envDefault:":8080"`
	BaseURL     string `env:"BASE_URL"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	StaticDir   string `env:"STATIC_DIR" envDefault:"static"`
	ContentPath string `env:"SITE_CONTENT" envDefault:"data/site.yaml"`

	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"data/portfolio.db"`

	Redis   RedisConfig   `envPrefix:"REDIS_"`
	Session SessionConfig `envPrefix:"SESSION_"`
	Upload  UploadConfig  `envPrefix:"UPLOAD_"`
	Mail    MailConfig    `envPrefix:"MAIL_"`

	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`

	ResendAPIKey     string `env:"RESEND_API_KEY"`
	ContactRecipient string `env:"CONTACT_RECIPIENT"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	RateLimitRPS       float64  `env:"RATE_LIMIT_RPS" envDefault:"1"`
	RateLimitBurst     int      `env:"RATE_LIMIT_BURST" envDefault:"5"`
}

// RedisConfig selects the session backend. An empty Addr keeps sessions in process.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// SessionConfig controls the admin session cookie.
type SessionConfig struct {
	Secret       string        `env:"SECRET"`
	TTL          time.Duration `env:"TTL" envDefault:"24h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

// UploadConfig bounds image uploads sent to the asset host.
type UploadConfig struct {
	Folder   string        `env:"FOLDER" envDefault:"portfolio_projects"`
	MaxBytes int64         `env:"MAX_BYTES" envDefault:"10485760"`
	MaxWidth int           `env:"MAX_WIDTH" envDefault:"1920"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// MailConfig describes the outbound mail transport.
type MailConfig struct {
	Provider      string `env:"PROVIDER" envDefault:"smtp"`
	Server        string `env:"SERVER"`
	Port          int    `env:"PORT" envDefault:"587"`
	UseTLS        bool   `env:"USE_TLS" envDefault:"true"`
	Username      string `env:"USERNAME"`
	Password      string `env:"PASSWORD"`
	DefaultSender string `env:"DEFAULT_SENDER"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads an optional .env file and then the process environment.
func Load(logger *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, reading from environment")
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.Mail.Provider = strings.ToLower(strings.TrimSpace(cfg.Mail.Provider))
	return &cfg, nil
}

// UsesPostgres reports whether DATABASE_URL points at PostgreSQL.
func (c *Config) UsesPostgres() bool {
	u := strings.ToLower(c.DatabaseURL)
	return strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://")
}

// Validate checks the settings the web server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Session.Secret) == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	} else if len(c.Session.Secret) < 16 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 16 bytes"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	switch c.Mail.Provider {
	case MailProviderSMTP, MailProviderResend:
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_PROVIDER %q", c.Mail.Provider))
	}
	if c.DatabaseURL != "" && !c.UsesPostgres() {
		errs = append(errs, errors.New("DATABASE_URL must be a postgres:// URL; use SQLITE_PATH for sqlite"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

// ParseLogLevel maps LOG_LEVEL onto slog levels, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
