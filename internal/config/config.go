// Package config loads tableview settings: an embedded default YAML merged
// with an optional user file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pacta-app/tableview/internal/tableview"
)

// AppName names the XDG config directory.
const AppName = "tableview"

//go:embed default_config.yaml
var embeddedDefaultConfig []byte

// DefaultYAML returns a copy of the embedded default config.
func DefaultYAML() []byte {
	return append([]byte(nil), embeddedDefaultConfig...)
}

// Duration is a time.Duration written as "300ms" in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the merged configuration.
type Config struct {
	Table  TableConfig  `yaml:"table"`
	Export ExportConfig `yaml:"export"`
	Server ServerConfig `yaml:"server"`
	UI     UIConfig     `yaml:"ui"`
}

// TableConfig holds controller defaults.
type TableConfig struct {
	ItemsPerPage   int      `yaml:"items_per_page"`
	PageSizes      []int    `yaml:"page_sizes"`
	PageWindow     int      `yaml:"page_window"`
	Debounce       Duration `yaml:"debounce"`
	RenderDelay    Duration `yaml:"render_delay"`
	Sortable       bool     `yaml:"sortable"`
	Searchable     bool     `yaml:"searchable"`
	Filterable     bool     `yaml:"filterable"`
	ActionsMarkers []string `yaml:"actions_markers"`
	DateLayouts    []string `yaml:"date_layouts"`
	Summary        string   `yaml:"summary"`
	FilterLimit    int      `yaml:"filter_limit"`
}

// ExportConfig controls CSV exports.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// ServerConfig controls the preview server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// UIConfig controls terminal output.
type UIConfig struct {
	NoColor bool `yaml:"no_color"`
}

// Default decodes the embedded defaults.
func Default() (Config, error) {
	var cfg Config
	if len(embeddedDefaultConfig) == 0 {
		return cfg, errors.New("embedded default config is empty")
	}
	if err := yaml.Unmarshal(embeddedDefaultConfig, &cfg); err != nil {
		return cfg, fmt.Errorf("decode default config: %w", err)
	}
	return cfg, nil
}

// Load returns the defaults merged with the file at path. An empty path
// returns the defaults. Keys missing from the file keep their default.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the controller cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.Table.ItemsPerPage <= 0 {
		errs = append(errs, fmt.Errorf("table.items_per_page must be positive, got %d", c.Table.ItemsPerPage))
	}
	if c.Table.PageWindow <= 0 {
		errs = append(errs, fmt.Errorf("table.page_window must be positive, got %d", c.Table.PageWindow))
	}
	if c.Table.Debounce < 0 {
		errs = append(errs, errors.New("table.debounce must not be negative"))
	}
	for _, n := range c.Table.PageSizes {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("table.page_sizes entries must be positive, got %d", n))
		}
	}
	return errors.Join(errs...)
}

// ResolvePath returns explicit when set, otherwise the XDG config file
// ($XDG_CONFIG_HOME/tableview/config.yaml or ~/.config/tableview/config.yaml)
// if it exists, otherwise "".
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	candidate := ""
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidate = filepath.Join(xdg, AppName, "config.yaml")
	} else if home, err := os.UserHomeDir(); err == nil {
		candidate = filepath.Join(home, ".config", AppName, "config.yaml")
	}
	if candidate != "" {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate
		}
	}
	return ""
}

// TableOptions converts the table section into controller options.
func (c Config) TableOptions() tableview.Options {
	opts := tableview.DefaultOptions()
	t := c.Table
	opts.ItemsPerPage = t.ItemsPerPage
	opts.Sortable = t.Sortable
	opts.Searchable = t.Searchable
	opts.Filterable = t.Filterable
	opts.PageWindow = t.PageWindow
	opts.DebounceDelay = time.Duration(t.Debounce)
	opts.RenderDelay = time.Duration(t.RenderDelay)
	if len(t.ActionsMarkers) > 0 {
		opts.ActionsMarkers = append([]string(nil), t.ActionsMarkers...)
	}
	if len(t.DateLayouts) > 0 {
		opts.DateLayouts = append([]string(nil), t.DateLayouts...)
	}
	if t.Summary != "" {
		opts.SummaryFormat = t.Summary
	}
	return opts
}

// YAML renders the configuration.
func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}
