// Package config loads the alarm clock daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultStorePath            = "alarms.db"
	DefaultNamespace            = "alarm_clock"
	DefaultNotificationDuration = 5 * time.Second
)

// Config is the daemon and CLI configuration. Keys missing from a file keep
// their Default values.
type Config struct {
	Store        StoreConfig        `yaml:"store"`
	Notification NotificationConfig `yaml:"notification"`
	Log          LogConfig          `yaml:"log"`
	Metrics      MetricsConfig      `yaml:"metrics"`

	// Location resolves hour/minute voice commands. Empty means local time.
	Location string `yaml:"location"`
}

// StoreConfig locates the SQLite settings namespace holding the alarms.
type StoreConfig struct {
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// NotificationConfig controls how fired alarms are shown.
type NotificationConfig struct {
	Duration time.Duration `yaml:"duration"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is where /metrics is served. Empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Path:      DefaultStorePath,
			Namespace: DefaultNamespace,
		},
		Notification: NotificationConfig{
			Duration: DefaultNotificationDuration,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path on top of Default and validates it.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data on top of Default and validates it.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if c.Store.Namespace == "" {
		errs = append(errs, errors.New("store.namespace is required"))
	}
	if c.Notification.Duration <= 0 {
		errs = append(errs, errors.New("notification.duration must be positive"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	if _, err := c.TimeLocation(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LogLevel parses Log.Level.
func (c Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// TimeLocation loads Location.
func (c Config) TimeLocation() (*time.Location, error) {
	if c.Location == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("location: %w", err)
	}
	return loc, nil
}

// NewLogger builds the logger described by Log.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.LogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
