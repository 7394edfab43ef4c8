// Package config loads zbday settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/zarlcorp/zbday/internal/render"
	"github.com/zarlcorp/zbday/internal/schedule"
)

// Delivery modes.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Config holds every runtime setting. Zero values are filled from envDefault
// tags and DataDir.
type Config struct {
	DataDir   string `env:"ZBDAY_DATA_DIR"`
	CodesFile string `env:"ZBDAY_CODES_FILE"`

	BotToken      string `env:"ZBDAY_BOT_TOKEN"`
	VaultPassword string `env:"ZBDAY_VAULT_PASSWORD"`

	Timezone        string `env:"ZBDAY_TIMEZONE" envDefault:"Europe/Moscow"`
	DailySchedule   string `env:"ZBDAY_DAILY_SCHEDULE" envDefault:"0 9 * * *"`
	MonthlySchedule string `env:"ZBDAY_MONTHLY_SCHEDULE" envDefault:"0 10 1 * *"`
	Lang            string `env:"ZBDAY_LANG" envDefault:"ru"`

	Mode          string `env:"ZBDAY_MODE" envDefault:"polling"`
	HTTPAddr      string `env:"ZBDAY_HTTP_ADDR" envDefault:":8080"`
	WebhookURL    string `env:"ZBDAY_WEBHOOK_URL"`
	WebhookSecret string `env:"ZBDAY_WEBHOOK_SECRET"`

	LogLevel  string `env:"ZBDAY_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"ZBDAY_LOG_FORMAT" envDefault:"text"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = DataDir()
	}
	if cfg.CodesFile == "" {
		cfg.CodesFile = filepath.Join(cfg.DataDir, "codes.yaml")
	}
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))

	return cfg, nil
}

// Validate checks the settings that cannot be checked by parsing alone.
func (c Config) Validate() error {
	var errs []error

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if err := schedule.Validate(c.DailySchedule); err != nil {
		errs = append(errs, fmt.Errorf("daily: %w", err))
	}
	if err := schedule.Validate(c.MonthlySchedule); err != nil {
		errs = append(errs, fmt.Errorf("monthly: %w", err))
	}

	switch c.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.WebhookURL == "" {
			errs = append(errs, errors.New("webhook mode requires ZBDAY_WEBHOOK_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}

	if !render.Supported(c.Lang) {
		errs = append(errs, fmt.Errorf("unknown language %q: want ru or en", c.Lang))
	}

	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location returns the time zone used for schedules and "today".
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Level returns the configured slog level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// Logger builds the process logger from LogLevel and LogFormat.
func (c Config) Logger() *slog.Logger {
	level, _ := c.Level()
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// VaultDir is where the encrypted token vault lives.
func (c Config) VaultDir() string {
	return filepath.Join(c.DataDir, "vault")
}

// DataDir returns the default data directory for zbday.
func DataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return d + "/zbday"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zbday"
	}
	return home + "/.local/share/zbday"
}
