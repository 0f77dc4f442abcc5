package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"peoplepulse/internal/ics"
)

var (
	ErrEmptyPath = errors.New("config path is empty")
	ErrNilConfig = errors.New("config is nil")
)

// ICSConfig describes a single ICS subscription (holiday calendars and the
// like) merged into the calendar.
type ICSConfig struct {
	URL  string `yaml:"url" json:"url"`
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	// Type is the event type assigned to the feed's events, e.g. "Holiday".
	Type  string `yaml:"type" json:"type"`
	Color string `yaml:"color" json:"color"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone calendar days are bucketed in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// MaxOccurrences caps recurrence expansion per event and query.
	MaxOccurrences int `yaml:"max_occurrences" json:"max_occurrences"`

	// RefreshCron is a cron spec (e.g. "*/15 * * * *") for reloading feeds
	// and the HR dataset.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	LogLevel    string `yaml:"log_level" json:"log_level"`
	Environment string `yaml:"environment" json:"environment"`

	// Dataset is the path of the HR JSON export (timesheets, holidays,
	// leaves). Empty disables it.
	Dataset string `yaml:"dataset" json:"dataset"`

	// ViewerID is the employee whose own timesheets stay editable.
	ViewerID string `yaml:"viewer_id" json:"viewer_id"`

	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// envOverrides are the PEOPLEPULSE_* variables applied on top of the file.
type envOverrides struct {
	Listen         string `env:"LISTEN"`
	Timezone       string `env:"TIMEZONE"`
	WeekStart      string `env:"WEEK_START"`
	MaxOccurrences int    `env:"MAX_OCCURRENCES"`
	RefreshCron    string `env:"REFRESH"`
	LogLevel       string `env:"LOG_LEVEL"`
	Environment    string `env:"ENVIRONMENT"`
	Dataset        string `env:"DATASET"`
	ViewerID       string `env:"VIEWER_ID"`
	CacheDir       string `env:"CACHE_DIR"`
	AuthUser       string `env:"BASIC_AUTH_USERNAME"`
	AuthPassword   string `env:"BASIC_AUTH_PASSWORD"`
}

const envPrefix = "PEOPLEPULSE_"

const (
	defaultListen         = "127.0.0.1:8080"
	defaultTimezone       = "UTC"
	defaultWeekStart      = "sunday"
	defaultMaxOccurrences = 50
	defaultRefreshCron    = "*/15 * * * *"
	defaultLogLevel       = "info"
	defaultEnvironment    = "production"
	defaultCacheDir       = "./var/ics-cache"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		Timezone:       defaultTimezone,
		WeekStart:      defaultWeekStart,
		MaxOccurrences: defaultMaxOccurrences,
		RefreshCron:    defaultRefreshCron,
		LogLevel:       defaultLogLevel,
		Environment:    defaultEnvironment,
		CacheDir:       defaultCacheDir,
		ICS:            []ICSConfig{},
	}
}

// Normalize fills in missing/zero values so partially-filled configs still
// behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "monday", "sunday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		c.WeekStart = defaultWeekStart
	}
	if c.MaxOccurrences <= 0 {
		c.MaxOccurrences = defaultMaxOccurrences
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Environment == "" {
		c.Environment = defaultEnvironment
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].ID == "" {
			if c.ICS[i].Name != "" {
				c.ICS[i].ID = c.ICS[i].Name
			} else {
				c.ICS[i].ID = c.ICS[i].URL
			}
		}
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		c.BasicAuth = nil
	}
}

// LoadEnvFiles loads whichever of the given .env files exist. It returns the
// number of files loaded.
func LoadEnvFiles(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads the YAML config at path, applies PEOPLEPULSE_* environment
// overrides and normalizes it.
//
// On first run (file missing) a default config is written with 0600 perms
// and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(err, "read config")
		}
		cfg := DefaultConfig()
		if err := Save(path, cfg); err != nil {
			// Return cfg with the error so the caller can decide.
			return cfg, err
		}
		return cfg, applyEnv(cfg)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

func applyEnv(c *Config) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: envPrefix}); err != nil {
		return errors.Wrap(err, "parse environment")
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Listen, o.Listen)
	set(&c.Timezone, o.Timezone)
	set(&c.WeekStart, o.WeekStart)
	set(&c.RefreshCron, o.RefreshCron)
	set(&c.LogLevel, o.LogLevel)
	set(&c.Environment, o.Environment)
	set(&c.Dataset, o.Dataset)
	set(&c.ViewerID, o.ViewerID)
	set(&c.CacheDir, o.CacheDir)
	if o.MaxOccurrences > 0 {
		c.MaxOccurrences = o.MaxOccurrences
	}
	if o.AuthUser != "" && o.AuthPassword != "" {
		c.BasicAuth = &BasicAuthConfig{Username: o.AuthUser, Password: o.AuthPassword}
	}
	c.Normalize()
	return nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return ErrNilConfig
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "create config dir")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}

	tmp, err := os.CreateTemp(dir, ".peoplepulse-config-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp config")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// Location resolves Timezone. An empty Timezone means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", c.Timezone)
	}
	return loc, nil
}

// Sources converts the configured feeds, skipping entries without a URL.
func (c *Config) Sources() []ics.Source {
	out := make([]ics.Source, 0, len(c.ICS))
	for _, s := range c.ICS {
		if s.URL == "" {
			continue
		}
		out = append(out, ics.Source{ID: s.ID, URL: s.URL, Name: s.Name, Type: s.Type, Color: s.Color})
	}
	return out
}
