// Package config loads logdash settings from defaults, an optional YAML
// file, the environment and command-line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v2"

	"github.com/coffersTech/logdash/internal/engine"
)

// Environment variables read by Load.
const (
	EnvWebhookURL      = "LOGDASH_WEBHOOK_URL"
	EnvRefreshInterval = "LOGDASH_REFRESH_INTERVAL"
)

// Duration is a time.Duration that reads "5m" style strings from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

type Server struct {
	Port            int      `yaml:"port"`
	WebDir          string   `yaml:"web_dir"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

type Webhook struct {
	URL           string   `yaml:"url"`
	FetchURL      string   `yaml:"fetch_url"`
	Timeout       Duration `yaml:"timeout"`
	FetchAttempts int      `yaml:"fetch_attempts"`
	RetryDelay    Duration `yaml:"retry_delay"`
}

type Refresh struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
}

type Upload struct {
	// MaxSize is a human size such as "10MB".
	MaxSize string `yaml:"max_size"`
}

type Chart struct {
	Granularity      string `yaml:"granularity"`
	PlaceholderSlots int    `yaml:"placeholder_slots"`
}

type Sessions struct {
	Timeout         Duration `yaml:"timeout"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
}

type Auth struct {
	// TokenHash is a bcrypt hash; empty disables auth.
	TokenHash string `yaml:"token_hash"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full service configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Webhook  Webhook  `yaml:"webhook"`
	Refresh  Refresh  `yaml:"refresh"`
	Upload   Upload   `yaml:"upload"`
	Chart    Chart    `yaml:"chart"`
	Sessions Sessions `yaml:"sessions"`
	Auth     Auth     `yaml:"auth"`
	Log      Log      `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{
			Port:            8088,
			WebDir:          "./web",
			ShutdownTimeout: Duration(5 * time.Second),
		},
		Webhook: Webhook{
			Timeout:       Duration(5 * time.Minute),
			FetchAttempts: 3,
			RetryDelay:    Duration(2 * time.Second),
		},
		Refresh: Refresh{
			Interval: Duration(30 * time.Second),
		},
		Upload: Upload{MaxSize: "10MB"},
		Chart: Chart{
			Granularity:      string(engine.GranularityMinute),
			PlaceholderSlots: 7,
		},
		Sessions: Sessions{
			Timeout:         Duration(30 * time.Minute),
			CleanupInterval: Duration(time.Minute),
		},
		Log: Log{Level: "INFO"},
	}
}

// Load reads path (if non-empty) over the defaults and applies the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvWebhookURL); ok && v != "" {
		c.Webhook.URL = v
	}
	if v, ok := lookup(EnvRefreshInterval); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRefreshInterval, err)
		}
		c.Refresh.Interval = Duration(d)
		c.Refresh.Enabled = d > 0
	}
	return nil
}

// MaxUploadBytes parses Upload.MaxSize.
func (c *Config) MaxUploadBytes() (int64, error) {
	n, err := humanize.ParseBytes(c.Upload.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("upload.max_size: %w", err)
	}
	return int64(n), nil
}

// Validate reports every unusable setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Webhook.URL == "" {
		errs = append(errs, fmt.Errorf("webhook.url is required (or set %s)", EnvWebhookURL))
	}
	if c.Webhook.Timeout.D() <= 0 {
		errs = append(errs, errors.New("webhook.timeout must be positive"))
	}
	if c.Webhook.FetchAttempts < 1 {
		errs = append(errs, errors.New("webhook.fetch_attempts must be at least 1"))
	}
	if c.Refresh.Enabled && c.Refresh.Interval.D() <= 0 {
		errs = append(errs, errors.New("refresh.interval must be positive when refresh is enabled"))
	}
	if n, err := c.MaxUploadBytes(); err != nil {
		errs = append(errs, err)
	} else if n == 0 {
		errs = append(errs, errors.New("upload.max_size must be positive"))
	}
	if _, err := engine.ParseGranularity(c.Chart.Granularity); err != nil {
		errs = append(errs, fmt.Errorf("chart.granularity: %w", err))
	}
	if c.Sessions.Timeout.D() <= 0 || c.Sessions.CleanupInterval.D() <= 0 {
		errs = append(errs, errors.New("sessions.timeout and sessions.cleanup_interval must be positive"))
	}
	return errors.Join(errs...)
}
