// Package config loads taskctx settings from ~/.config/taskctx/config.yaml.
// Every key can be overridden from the environment as TASKCTX_<SECTION>_<KEY>,
// e.g. TASKCTX_STORAGE_BACKEND=sqlite.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrisonrobin/taskctx/pkg/stats"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	xdgAppName = "taskctx"
	configFile = "config.yaml"
	envPrefix  = "TASKCTX"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Calendar CalendarConfig `mapstructure:"calendar" yaml:"calendar"`
	Stats    StatsConfig    `mapstructure:"stats" yaml:"stats"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Path defaults to slots.json or slots.db in the config directory.
	Path       string `mapstructure:"path" yaml:"path,omitempty"`
	Key        string `mapstructure:"key" yaml:"key"`
	QuotaBytes int64  `mapstructure:"quota_bytes" yaml:"quota_bytes"`
}

type CalendarConfig struct {
	// Name is "primary" or the summary of one of the user's calendars.
	Name         string `mapstructure:"name" yaml:"name"`
	TimeZone     string `mapstructure:"timezone" yaml:"timezone,omitempty"`
	EventMinutes int    `mapstructure:"event_minutes" yaml:"event_minutes"`
}

type StatsConfig struct {
	WeekStart string `mapstructure:"week_start" yaml:"week_start"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:    BackendFile,
			Key:        "task-context-restorer-tasks",
			QuotaBytes: 5 << 20,
		},
		Calendar: CalendarConfig{
			Name:         "primary",
			EventMinutes: 30,
		},
		Stats: StatsConfig{WeekStart: "sunday"},
	}
}

// GetXdgHome returns the directory holding config, credentials and token files.
func GetXdgHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetXdgHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("storage.backend", def.Storage.Backend)
	v.SetDefault("storage.path", def.Storage.Path)
	v.SetDefault("storage.key", def.Storage.Key)
	v.SetDefault("storage.quota_bytes", def.Storage.QuotaBytes)
	v.SetDefault("calendar.name", def.Calendar.Name)
	v.SetDefault("calendar.timezone", def.Calendar.TimeZone)
	v.SetDefault("calendar.event_minutes", def.Calendar.EventMinutes)
	v.SetDefault("stats.week_start", def.Stats.WeekStart)

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg as YAML to path, or the default location when path is empty.
func Save(path string, cfg *Config) error {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return os.Rename(tmp, path)
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage.quota_bytes must not be negative")
	}
	if c.Calendar.EventMinutes < 0 {
		return fmt.Errorf("calendar.event_minutes must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.WeekStart(); err != nil {
		return err
	}
	return nil
}

// StoragePath returns the configured slot store path, defaulting by backend.
func (c *Config) StoragePath(dir string) string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.Storage.Backend == BackendSQLite {
		return filepath.Join(dir, "slots.db")
	}
	return filepath.Join(dir, "slots.json")
}

// EventDuration is the length of a resume reminder.
func (c *Config) EventDuration() time.Duration {
	if c.Calendar.EventMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Calendar.EventMinutes) * time.Minute
}

// Location resolves calendar.timezone. Empty means local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Calendar.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Calendar.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar.timezone %q: %w", c.Calendar.TimeZone, err)
	}
	return loc, nil
}

// WeekStart parses stats.week_start.
func (c *Config) WeekStart() (time.Weekday, error) {
	if strings.TrimSpace(c.Stats.WeekStart) == "" {
		return time.Sunday, nil
	}
	d, err := stats.ParseWeekday(c.Stats.WeekStart)
	if err != nil {
		return time.Sunday, fmt.Errorf("invalid stats.week_start: %w", err)
	}
	return d, nil
}
