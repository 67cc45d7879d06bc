package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"alistcal/internal/feed"
)

// Config is the top-level tool configuration. Every field is optional; a
// missing config file behaves like an empty one.
type Config struct {
	// Events is the path of the events YAML document.
	Events string `yaml:"events"`

	// OutDir receives the feed and the keep-alive stamp.
	OutDir string `yaml:"out_dir"`

	// FeedFile / StampFile are file names inside OutDir.
	FeedFile  string `yaml:"feed_file"`
	StampFile string `yaml:"stamp_file"`

	// CalendarName is published as X-WR-CALNAME.
	CalendarName string `yaml:"calendar_name"`

	// ProductID is published as PRODID.
	ProductID string `yaml:"product_id"`

	// PublishedTTL is an RFC 5545 duration hint (X-PUBLISHED-TTL).
	PublishedTTL string `yaml:"published_ttl"`

	// UIDDomain is appended to every generated UID ("<uuid>@<domain>").
	UIDDomain string `yaml:"uid_domain"`

	// Schedule is an optional cron spec (e.g. "0 6 * * *"). When set, the
	// tool keeps running and regenerates the feed on every tick.
	Schedule string `yaml:"schedule"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

const (
	DefaultEvents       = "events.yaml"
	DefaultOutDir       = "docs"
	DefaultFeedFile     = "calendar.ics"
	DefaultStampFile    = "last_updated.txt"
	DefaultCalendarName = feed.DefaultCalendarName
	DefaultProductID    = feed.DefaultProductID
	DefaultPublishedTTL = feed.DefaultPublishedTTL
	DefaultUIDDomain    = feed.DefaultUIDDomain
	DefaultLogLevel     = "info"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing values with defaults and trims whitespace so
// partially-filled configs behave predictably.
func (c *Config) Normalize() {
	setDefault(&c.Events, DefaultEvents)
	setDefault(&c.OutDir, DefaultOutDir)
	setDefault(&c.FeedFile, DefaultFeedFile)
	setDefault(&c.StampFile, DefaultStampFile)
	setDefault(&c.CalendarName, DefaultCalendarName)
	setDefault(&c.ProductID, DefaultProductID)
	setDefault(&c.PublishedTTL, DefaultPublishedTTL)
	setDefault(&c.UIDDomain, DefaultUIDDomain)
	setDefault(&c.LogLevel, DefaultLogLevel)
	c.Schedule = strings.TrimSpace(c.Schedule)
}

func setDefault(field *string, def string) {
	*field = strings.TrimSpace(*field)
	if *field == "" {
		*field = def
	}
}

// Validate reports values that Normalize cannot repair.
func (c *Config) Validate() error {
	for name, v := range map[string]string{"feed_file": c.FeedFile, "stamp_file": c.StampFile} {
		if strings.ContainsAny(v, `/\`) {
			return fmt.Errorf("config: %s must be a bare file name, got %q", name, v)
		}
	}
	if c.FeedFile == c.StampFile {
		return errors.New("config: feed_file and stamp_file must differ")
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - empty path or missing file: defaults
//   - otherwise: unmarshal, normalize, validate
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
