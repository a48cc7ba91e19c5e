package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// BrowseCategory is a preset search shown in the browse view
type BrowseCategory struct {
	Label string `toml:"label"`
	From  string `toml:"from"` // gradient start colour
	To    string `toml:"to"`   // gradient end colour
	Icon  string `toml:"icon"` // font-awesome class, e.g. "fa-music"
}

// UIConfig holds tunables for the page controllers
type UIConfig struct {
	// Quiet period after the last keystroke before a search runs
	DebounceMs int `toml:"debounce_ms"`

	// Cards per home feed section
	SectionSize int `toml:"section_size"`

	// Cards per search result section
	ResultsPerSection int `toml:"results_per_section"`

	// Image used when a record has none
	PlaceholderImage string `toml:"placeholder_image"`

	BrowseCategories []BrowseCategory `toml:"browse_categories"`
}

// DefaultUIConfig returns hard-coded safe defaults
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		DebounceMs:        500,
		SectionSize:       6,
		ResultsPerSection: 6,
		PlaceholderImage:  "https://via.placeholder.com/300",
		BrowseCategories: []BrowseCategory{
			{Label: "Bollywood", From: "#1db954", To: "#191414", Icon: "fa-music"},
			{Label: "Punjabi", From: "#e61e32", To: "#1e3264", Icon: "fa-music"},
			{Label: "Pop", From: "#f59b23", To: "#8d67ab", Icon: "fa-music"},
			{Label: "Rock", From: "#dc148c", To: "#e8161f", Icon: "fa-guitar"},
			{Label: "Hip Hop", From: "#1e3264", To: "#376996", Icon: "fa-music"},
			{Label: "Electronic", From: "#8d67ab", To: "#8d1b3d", Icon: "fa-headphones"},
		},
	}
}

// DebounceDelay returns the debounce interval as a duration
func (u *UIConfig) DebounceDelay() time.Duration {
	return time.Duration(u.DebounceMs) * time.Millisecond
}

// LoadUIConfig returns the defaults merged with the TOML file at path.
// An empty path or a missing file yields the defaults; a malformed file is an error.
func LoadUIConfig(path string) (*UIConfig, error) {
	cfg := DefaultUIConfig()
	if path == "" {
		return cfg, nil
	}

	fileCfg, err := loadUIConfigFromPath(path)
	if err != nil {
		return nil, err
	}
	mergeUIConfig(cfg, fileCfg)
	return cfg, nil
}

func loadUIConfigFromPath(path string) (*UIConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg UIConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeUIConfig(base, override *UIConfig) {
	if override == nil || base == nil {
		return
	}
	if override.DebounceMs > 0 {
		base.DebounceMs = override.DebounceMs
	}
	if override.SectionSize > 0 {
		base.SectionSize = override.SectionSize
	}
	if override.ResultsPerSection > 0 {
		base.ResultsPerSection = override.ResultsPerSection
	}
	if override.PlaceholderImage != "" {
		base.PlaceholderImage = override.PlaceholderImage
	}
	if len(override.BrowseCategories) > 0 {
		categories := make([]BrowseCategory, 0, len(override.BrowseCategories))
		for _, c := range override.BrowseCategories {
			if c.Label == "" {
				continue
			}
			if c.Icon == "" {
				c.Icon = "fa-music"
			}
			categories = append(categories, c)
		}
		if len(categories) > 0 {
			base.BrowseCategories = categories
		}
	}
}
