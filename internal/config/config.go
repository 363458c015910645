package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListen          = "127.0.0.1:8080"
	DefaultDatabase        = "rsjpcal.db"
	DefaultTZID            = "Asia/Tokyo"
	DefaultOffsetMinutes   = 540
	DefaultWeekStart       = "monday"
	DefaultLanguage        = "en"
	DefaultMaxEventsPerDay = 4
	DefaultRefreshCron     = "*/30 * * * *"
	DefaultUIDDomain       = "rsjp-schedule"
	DefaultProductID       = "-//rsjpcal//Program Schedule//EN"
	DefaultChromiumTimeout = 30
	DefaultFeedCacheDir    = "feed-cache"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the web surface.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// TimezoneConfig is the single fixed civil offset all times are written in.
// There is no daylight saving.
type TimezoneConfig struct {
	TZID          string `yaml:"tzid" json:"tzid"`
	OffsetMinutes int    `yaml:"offset_minutes" json:"offset_minutes"`
}

// Location returns the offset as a fixed zone named after TZID.
func (t TimezoneConfig) Location() *time.Location {
	return time.FixedZone(t.TZID, t.OffsetMinutes*60)
}

type GridConfig struct {
	MaxEventsPerDay int `yaml:"max_events_per_day" json:"max_events_per_day"`
}

type FeedConfig struct {
	ProductID string `yaml:"product_id" json:"product_id"`
	UIDDomain string `yaml:"uid_domain" json:"uid_domain"`
}

// SubscriptionConfig is an external ICS feed imported into one program.
type SubscriptionConfig struct {
	ID        string `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	URL       string `yaml:"url" json:"url"`
	ProgramID string `yaml:"program_id" json:"program_id"`
	Category  string `yaml:"category,omitempty" json:"category,omitempty"`
}

type ChromiumConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address of `rsjpcal serve`.
	Listen string `yaml:"listen" json:"listen"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	// Database is the SQLite file holding programs and events.
	Database string `yaml:"database" json:"database"`

	// FeedCacheDir stores the last good body of every subscription.
	FeedCacheDir string `yaml:"feed_cache_dir" json:"feed_cache_dir"`

	Timezone TimezoneConfig `yaml:"timezone" json:"timezone"`

	// WeekStart is the first grid column: "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// Language is the default export language: "en" or "ja".
	Language string `yaml:"language" json:"language"`

	Grid GridConfig `yaml:"grid" json:"grid"`

	// RefreshCron schedules subscription re-import and regeneration while
	// serving. "off" disables it.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	Feed FeedConfig `yaml:"feed" json:"feed"`

	Subscriptions []SubscriptionConfig `yaml:"subscriptions" json:"subscriptions"`

	Chromium ChromiumConfig `yaml:"chromium" json:"chromium"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing or invalid values with defaults so that
// partially written files still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.FeedCacheDir == "" {
		c.FeedCacheDir = DefaultFeedCacheDir
	}
	if c.Timezone.TZID == "" {
		c.Timezone.TZID = DefaultTZID
		if c.Timezone.OffsetMinutes == 0 {
			c.Timezone.OffsetMinutes = DefaultOffsetMinutes
		}
	}
	if c.Timezone.OffsetMinutes < -12*60 || c.Timezone.OffsetMinutes > 14*60 {
		c.Timezone.OffsetMinutes = DefaultOffsetMinutes
	}

	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = DefaultWeekStart
	}

	c.Language = strings.ToLower(strings.TrimSpace(c.Language))
	switch c.Language {
	case "en", "ja":
	default:
		c.Language = DefaultLanguage
	}

	if c.Grid.MaxEventsPerDay <= 0 {
		c.Grid.MaxEventsPerDay = DefaultMaxEventsPerDay
	}
	if c.RefreshCron == "" {
		c.RefreshCron = DefaultRefreshCron
	}
	if c.Feed.ProductID == "" {
		c.Feed.ProductID = DefaultProductID
	}
	if c.Feed.UIDDomain == "" {
		c.Feed.UIDDomain = DefaultUIDDomain
	}
	if c.Subscriptions == nil {
		c.Subscriptions = []SubscriptionConfig{}
	}
	if c.Chromium.TimeoutSeconds <= 0 {
		c.Chromium.TimeoutSeconds = DefaultChromiumTimeout
	}
}

// RefreshEnabled reports whether the serve loop should schedule refreshes.
func (c *Config) RefreshEnabled() bool {
	return c.RefreshCron != "off"
}

// Subscription returns the subscription with the given id.
func (c *Config) Subscription(id string) (SubscriptionConfig, bool) {
	for _, s := range c.Subscriptions {
		if s.ID == id {
			return s, true
		}
	}
	return SubscriptionConfig{}, false
}

// Load loads configuration from the given YAML path.
//
// On first run the file does not exist yet; a default config is written
// with 0600 permissions and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save normalizes cfg and writes it atomically through a temp file in the
// same directory, leaving the final file at 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic replaces path with data via temp file and rename.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".rsjpcal-*.tmp")
	if err != nil {
		return err
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
