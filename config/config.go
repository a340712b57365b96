// Package config loads the notifier configuration: a YAML file listing the
// receivers and senders, with process settings overridable from the
// environment (and a .env file, when present).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/store"
)

const (
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultEventBuffer = 64
)

var ErrNoComponents = errors.New("at least one receiver and one sender are required")

// Settings can be set in the file and overridden by environment variables.
type Settings struct {
	LogLevel       string `yaml:"logLevel" env:"NOTIFIER_LOG_LEVEL"`
	LogFormat      string `yaml:"logFormat" env:"NOTIFIER_LOG_FORMAT"`
	SnackbarHeight int    `yaml:"snackbarHeight" env:"NOTIFIER_SNACKBAR_HEIGHT"`
	EventBuffer    int    `yaml:"eventBuffer" env:"NOTIFIER_EVENT_BUFFER"`
}

type Config struct {
	Settings  `yaml:",inline"`
	Receivers []abstraction.AbstractChannelComponentConfig `yaml:"receivers"`
	Senders   []abstraction.AbstractChannelComponentConfig `yaml:"senders"`
}

// Load reads path, then applies environment overrides.
func Load(path string) (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	return parse(data)
}

func parse(data []byte) (*Config, error) {
	var cfg Config

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config failed: %w", err)
	}

	if err := env.Parse(&cfg.Settings); err != nil {
		return nil, fmt.Errorf("parse environment failed: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.SnackbarHeight == 0 {
		c.SnackbarHeight = store.DefaultSnackbarHeight
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = DefaultEventBuffer
	}
}

func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("logFormat %q is invalid", c.LogFormat)
	}

	if c.SnackbarHeight < 0 {
		return fmt.Errorf("snackbarHeight should not be negative")
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("eventBuffer should not be negative")
	}

	if len(c.Receivers) == 0 || len(c.Senders) == 0 {
		return ErrNoComponents
	}
	return nil
}

func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("logLevel %q is invalid", c.LogLevel)
	}
	return level, nil
}

// Logger builds the root logger described by the settings.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
