// Package config reads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type PostgresConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	DB       string `env:"DB" envDefault:"livepoll"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// ConnString builds a lib/pq URL, escaping credentials.
func (c PostgresConfig) ConnString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.DB,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

type Config struct {
	HTTPAddr          string         `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	DBDriver          string         `env:"DB_DRIVER" envDefault:"postgres"`
	Postgres          PostgresConfig `envPrefix:"POSTGRES_"`
	SQLitePath        string         `env:"SQLITE_PATH" envDefault:"livepoll.db"`
	AutoMigrate       bool           `env:"AUTO_MIGRATE" envDefault:"true"`
	AllowedOrigins    []string       `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	TrustForwardedFor bool           `env:"TRUST_FORWARDED_FOR" envDefault:"true"`
	VoteRateLimit     float64        `env:"VOTE_RATE_LIMIT" envDefault:"5"`
	VoteRateBurst     int            `env:"VOTE_RATE_BURST" envDefault:"10"`
	ShutdownTimeout   time.Duration  `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	LogLevel          string         `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	var origins []string
	for _, origin := range c.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	c.AllowedOrigins = origins

	if c.VoteRateLimit < 0 {
		return fmt.Errorf("VOTE_RATE_LIMIT must not be negative")
	}
	return nil
}

func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Logger returns the JSON logger used by the server.
func (c Config) Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: c.SlogLevel()}))
}
