// CLAUDE:SUMMARY adcover config structs and YAML loading with defaults.
// Package config handles adcover configuration from a YAML file, with the
// page list optionally kept in SQLite.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/adcover/internal/detect"
	"github.com/hazyhaar/adcover/internal/safeurl"
)

// Config is the top-level adcover configuration.
type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Pages    []PageConfig   `yaml:"pages"`
	Detect   DetectConfig   `yaml:"detect"`
	Overlay  OverlayConfig  `yaml:"overlay"`
	Debounce DebounceConfig `yaml:"debounce"`
	Sinks    []SinkConfig   `yaml:"sinks"`
	Scan     ScanConfig     `yaml:"scan"`
	Store    StoreConfig    `yaml:"store"`
	API      APIConfig      `yaml:"api"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote          string        `yaml:"remote"`
	Mode            string        `yaml:"mode"` // headless | headful
	MemoryLimit     int64         `yaml:"memory_limit"`
	RecycleInterval time.Duration `yaml:"recycle_interval"`
	BlockResources  []string      `yaml:"block_resources"`
	XvfbDisplay     string        `yaml:"xvfb_display"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
}

// PageConfig is a page to cover.
type PageConfig struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// DetectConfig tunes the candidate detector. Empty Rules means the
// built-in list.
type DetectConfig struct {
	Rules   []detect.Rule `yaml:"rules"`
	MinArea float64       `yaml:"min_area"`
}

// OverlayConfig sets the overlay image. Empty Asset means the embedded
// placeholder.
type OverlayConfig struct {
	Asset string `yaml:"asset"`
}

// DebounceConfig controls mutation batching in live pages.
type DebounceConfig struct {
	Window    time.Duration `yaml:"window"`
	MaxBuffer int           `yaml:"max_buffer"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook | store
	URL  string `yaml:"url"`  // for webhook
}

// ScanConfig controls HTTP-only scans.
type ScanConfig struct {
	// PublicOnly refuses URLs resolving to private or loopback addresses.
	PublicOnly bool `yaml:"public_only"`
}

// StoreConfig points at the SQLite database. When set, pages from the
// cover_pages table are added to Pages.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// APIConfig enables the status HTTP server when Addr is set.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headless"
	}
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	if c.Detect.MinArea <= 0 {
		c.Detect.MinArea = detect.DefaultMinArea
	}
	if c.Debounce.Window <= 0 {
		c.Debounce.Window = 50 * time.Millisecond
	}
	if c.Debounce.MaxBuffer <= 0 {
		c.Debounce.MaxBuffer = 500
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "stdout"}}
	}
	for i := range c.Pages {
		if c.Pages[i].ID == "" {
			c.Pages[i].ID = c.Pages[i].URL
		}
	}
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Pages))
	for _, p := range c.Pages {
		if p.URL == "" {
			return fmt.Errorf("config: page %q has no url", p.ID)
		}
		if err := safeurl.Check(p.URL); err != nil {
			return fmt.Errorf("config: page %q: %w", p.ID, err)
		}
		if seen[p.ID] {
			return fmt.Errorf("config: duplicate page id %q", p.ID)
		}
		seen[p.ID] = true
	}
	for _, r := range c.Detect.Rules {
		if r.Name == "" || r.Selector == "" {
			return fmt.Errorf("config: detect rule needs name and selector: %+v", r)
		}
	}
	for _, s := range c.Sinks {
		switch s.Type {
		case "stdout", "store":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: webhook sink has no url")
			}
			if err := safeurl.Check(s.URL); err != nil {
				return fmt.Errorf("config: webhook sink: %w", err)
			}
		default:
			return fmt.Errorf("config: unknown sink type %q", s.Type)
		}
		if s.Type == "store" && c.Store.Path == "" {
			return fmt.Errorf("config: store sink needs store.path")
		}
	}
	return nil
}
