package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config is the immutable runtime configuration. The store and codec get
// their file paths and lock timeout from here, never from ambient globals.
type Config struct {
	Port      string `env:"PORT" envDefault:"8585"`
	DataDir   string `env:"DATA_DIR" envDefault:"./data"`
	PhotosDir string `env:"PHOTOS_DIR" envDefault:"./photos"`
	ThumbsDir string `env:"THUMBS_DIR" envDefault:"./static/thumbs"`
	AppDBPath string `env:"APP_DB_PATH" envDefault:"./data/galerie.db"`

	BaseURL      string `env:"BASE_URL" envDefault:"http://localhost:8585"`
	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"false"`

	LockTimeout      time.Duration `env:"LOCK_TIMEOUT" envDefault:"10s"`
	ArchiveAfterDays int           `env:"ARCHIVE_AFTER_DAYS" envDefault:"60"`

	PhotoPrice float64 `env:"PHOTO_PRICE" envDefault:"2.00"`
	USBPrice   float64 `env:"USB_PRICE" envDefault:"15.00"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"`

	CSRFKey    []byte `env:"-"`
	SessionKey []byte `env:"-"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.CSRFKey = loadKey("CSRF_KEY")
	cfg.SessionKey = loadKey("SESSION_KEY")

	return cfg, nil
}

// Paths of the three backing files, all under DataDir.

func (c *Config) LiveOrdersPath() string {
	return filepath.Join(c.DataDir, "commandes.csv")
}

func (c *Config) ArchiveOrdersPath() string {
	return filepath.Join(c.DataDir, "commandes_archive.csv")
}

func (c *Config) PreparationPath() string {
	return filepath.Join(c.DataDir, "preparation.csv")
}

// loadKey reads a base64 key from the environment, falling back to a random
// one. A generated key changes on restart, which invalidates sessions and
// CSRF tokens, hence the loud warning.
func loadKey(name string) []byte {
	raw := os.Getenv(name)
	if raw == "" {
		slog.Warn("Key not set; generating a random one for development. PLEASE SET IT IN PRODUCTION!", "env", name)
		return generateRandomBytes(32)
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(decoded) < 32 {
		slog.Warn("Key invalid or too short (min 32 bytes); generating a random one for development. PLEASE SET A SECURE KEY IN PRODUCTION!", "env", name)
		return generateRandomBytes(32)
	}
	return decoded
}

// generateRandomBytes generates a random byte slice of specified length
// Uses crypto/rand for secure random numbers.
func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Failed to read random bytes", "error", err)
		// Fallback to a less secure key if crypto/rand fails; panic
		// prevention only, never acceptable in production.
		fallbackKey := fmt.Sprintf("fallback-insecure-key-%d", time.Now().UnixNano())
		padded := make([]byte, n)
		copy(padded, fallbackKey)
		return padded
	}
	return b
}
