package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// FilterListEntry is one filter list subscription.
type FilterListEntry struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// FilterListsConfig is the top-level YAML configuration for filter lists.
type FilterListsConfig struct {
	Lists []FilterListEntry `yaml:"lists"`
}

// LoadFilterLists reads and validates a filter lists YAML file. Returns an
// os.ErrNotExist-wrapped error if the file is absent (caller falls back to
// the built-in lists in that case).
func LoadFilterLists(path string) (*FilterListsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filter_lists config: %w", err)
	}
	var cfg FilterListsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("filter_lists config: %w", err)
	}
	for i, l := range cfg.Lists {
		if l.URL == "" {
			return nil, fmt.Errorf("filter_lists config: lists[%d] missing url", i)
		}
		u, err := url.Parse(l.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("filter_lists config: lists[%d] (%s) url must be http(s): %q", i, l.Name, l.URL)
		}
	}
	if len(cfg.Sources()) == 0 {
		return nil, fmt.Errorf("filter_lists config: at least one enabled list is required")
	}
	return &cfg, nil
}

// Sources returns the URLs of the enabled lists in file order.
func (c *FilterListsConfig) Sources() []string {
	var out []string
	for _, l := range c.Lists {
		if !l.Disabled {
			out = append(out, l.URL)
		}
	}
	return out
}
