// Package config holds nusbridge settings loaded from defaults, an optional
// YAML file and command-line overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/devicefactory"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Name             string        `yaml:"name"`
	Payload          string        `yaml:"payload" default:"Hello from Rust!"`
	Backend          string        `yaml:"backend" default:"goble"`
	ScanTimeout      time.Duration `yaml:"scan_timeout"`                   // 0 = scan until match or Ctrl+C
	MaxWriteFailures int           `yaml:"max_write_failures" default:"3"` // 0 = never stop the uplink
	LogLevel         string        `yaml:"log_level" default:"warn"`
	NoColor          bool          `yaml:"no_color"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML file on top of the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can drive a session
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("device name is required")
	}
	if c.Payload == "" {
		return errors.New("payload must not be empty")
	}
	if _, ok := devicefactory.Backends[strings.ToLower(strings.TrimSpace(c.Backend))]; !ok {
		return fmt.Errorf("unknown backend %q (available: %s)", c.Backend, strings.Join(devicefactory.Names(), ", "))
	}
	if c.ScanTimeout < 0 {
		return fmt.Errorf("scan timeout must not be negative: %s", c.ScanTimeout)
	}
	if c.MaxWriteFailures < 0 {
		return fmt.Errorf("max write failures must not be negative: %d", c.MaxWriteFailures)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel
func (c *Config) Level() (logrus.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.PanicLevel, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}
}

// NewLogger creates a configured logger instance writing to out
func (c *Config) NewLogger(out io.Writer) *logrus.Logger {
	level, err := c.Level()
	if err != nil {
		level = logrus.WarnLevel
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableColors:   c.NoColor,
	})

	return logger
}
