package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. OVERWATCH_API_KEY or
// OVERWATCH_DAEMON_RECONNECT_DELAY.
const EnvPrefix = "OVERWATCH"

type Config struct {
	APIKey    string          `mapstructure:"api_key"`
	Debug     bool            `mapstructure:"debug"`
	Daemon    DaemonConfig    `mapstructure:"daemon"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// DaemonConfig locates the analytics daemon and tunes the live connection.
type DaemonConfig struct {
	WSURL             string        `mapstructure:"ws_url"`
	BaseURL           string        `mapstructure:"base_url"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	SnapshotRetries   uint          `mapstructure:"snapshot_retries"`
}

// TelemetryConfig controls outbound visitor tracking. Disabled means the
// client runs without a tracking sink.
type TelemetryConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Collector string  `mapstructure:"collector"`
	Rate      float64 `mapstructure:"rate"`
	Burst     int     `mapstructure:"burst"`
	PageTitle string  `mapstructure:"page_title"`
	PagePath  string  `mapstructure:"page_path"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// MetricsConfig enables the Prometheus/debug endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("debug", false)

	v.SetDefault("daemon.ws_url", "wss://overwatch-daemon.fly.dev/ws/realtime")
	v.SetDefault("daemon.base_url", "https://overwatch-daemon.fly.dev")
	v.SetDefault("daemon.heartbeat_interval", 15*time.Second)
	v.SetDefault("daemon.reconnect_delay", 5*time.Second)
	v.SetDefault("daemon.read_timeout", 60*time.Second)
	v.SetDefault("daemon.http_timeout", 10*time.Second)
	v.SetDefault("daemon.snapshot_retries", 2)

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.collector", "https://overwatch-daemon.fly.dev")
	v.SetDefault("telemetry.rate", 5.0)
	v.SetDefault("telemetry.burst", 10)
	v.SetDefault("telemetry.page_title", "Overwatch Live")
	v.SetDefault("telemetry.page_path", "/live")

	v.SetDefault("log.file", defaultLogFile())
	v.SetDefault("log.level", "info")

	v.SetDefault("metrics.addr", "")
}

func defaultLogFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".overwatch", "logs", "overwatch-live.log")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Debug {
		cfg.Log.Level = "debug"
	}
	return &cfg, nil
}

// Load reads the YAML file at path, layered over defaults and under
// environment overrides. A missing file is an error.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

// LoadOrDefault is Load, except that a missing file yields defaults plus
// environment overrides. An empty path searches ./overwatch.yaml and
// $HOME/.config/overwatch/overwatch.yaml.
func LoadOrDefault(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("overwatch")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "overwatch"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

// ErrMissingAPIKey is returned by Validate when no API key is configured.
var ErrMissingAPIKey = errors.New("api key is required (set api_key or OVERWATCH_API_KEY)")

// Validate checks the settings the live client cannot run without.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Daemon.WSURL == "" || c.Daemon.BaseURL == "" {
		return errors.New("daemon ws_url and base_url are required")
	}
	if c.Daemon.ReconnectDelay <= 0 {
		return fmt.Errorf("daemon.reconnect_delay must be positive, got %s", c.Daemon.ReconnectDelay)
	}
	if c.Daemon.HeartbeatInterval <= 0 {
		return fmt.Errorf("daemon.heartbeat_interval must be positive, got %s", c.Daemon.HeartbeatInterval)
	}
	return nil
}
