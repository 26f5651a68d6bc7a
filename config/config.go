// Package config reads entrybook settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arllen133/entrybook/store"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultDBName is the store file created next to the executable when no
// path is configured.
const DefaultDBName = "data.db"

// Config holds the command's settings.
type Config struct {
	DBPath      string        `env:"ENTRYBOOK_DB_PATH"`
	Driver      string        `env:"ENTRYBOOK_DRIVER" envDefault:"sqlite3"`
	BusyTimeout time.Duration `env:"ENTRYBOOK_BUSY_TIMEOUT" envDefault:"5s"`
	LogLevel    string        `env:"ENTRYBOOK_LOG_LEVEL" envDefault:"warn"`
	LogFormat   string        `env:"ENTRYBOOK_LOG_FORMAT" envDefault:"text"`
	LogQueries  bool          `env:"ENTRYBOOK_LOG_QUERIES" envDefault:"false"`
	SlowQuery   time.Duration `env:"ENTRYBOOK_SLOW_QUERY" envDefault:"200ms"`
}

// Load reads envFile into the environment when it exists, then parses the
// environment. Variables already set win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if _, err := store.DialectByName(c.Driver); err != nil {
		return fmt.Errorf("ENTRYBOOK_DRIVER: %w", err)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("ENTRYBOOK_LOG_FORMAT: unknown format %q", c.LogFormat)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("ENTRYBOOK_BUSY_TIMEOUT: must not be negative")
	}
	return nil
}

// Dialect returns the store dialect for the configured driver.
func (c Config) Dialect() store.Dialect {
	d, err := store.DialectByName(c.Driver)
	if err != nil {
		return store.SQLite
	}
	return d
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("ENTRYBOOK_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// Logger builds the handler selected by LogFormat at LogLevel.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func defaultDBPath() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultDBName
	}
	return filepath.Join(filepath.Dir(exe), DefaultDBName)
}
