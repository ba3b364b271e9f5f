package adcover

import (
	"github.com/hazyhaar/adcover/internal/config"
)

// Config is the top-level adcover configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// PageConfig defines a page to cover.
type PageConfig = config.PageConfig

// DetectConfig tunes candidate detection.
type DetectConfig = config.DetectConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// LoadConfigFile reads and validates a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
