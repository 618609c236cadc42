package skyline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Minimum renderable canvas, in pixels.
const (
	MinWidth  = 80
	MinHeight = 40
)

// Options configures the presentation of one graph request.
type Options struct {
	// Width and Height are the full canvas size in pixels.
	// Defaults: 700x300. Below MinWidth x MinHeight rendering fails.
	Width  int
	Height int

	// Theme selects the color scheme. Default: light.
	Theme Theme

	// Layout selects plot partitioning. Default: single.
	Layout Layout

	// Palette names the auto-assignment palette. Default: "default".
	Palette string

	// Title is rendered in a band above the plot area when non-empty.
	Title string

	// NoLegend suppresses the legend band.
	NoLegend bool

	// OnlyGraph suppresses both the title band and the legend, leaving just
	// the plot area and axes.
	OnlyGraph bool

	// KeepEmptyStackSeries keeps all-NaN series in stack groups as empty
	// layers instead of omitting them.
	KeepEmptyStackSeries bool
}

// DefaultOptions returns the default presentation configuration.
func DefaultOptions() Options {
	return Options{
		Width:   700,
		Height:  300,
		Theme:   ThemeLight,
		Layout:  LayoutSingle,
		Palette: "default",
	}
}

// Legend reports whether the legend band is rendered.
func (o Options) Legend() bool {
	return !o.NoLegend && !o.OnlyGraph
}

// withDefaults fills zero-valued fields with their defaults.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Width == 0 {
		o.Width = def.Width
	}
	if o.Height == 0 {
		o.Height = def.Height
	}
	if o.Theme == "" {
		o.Theme = def.Theme
	}
	if o.Layout == "" {
		o.Layout = def.Layout
	}
	if o.Palette == "" {
		o.Palette = def.Palette
	}
	return o
}

// validate rejects unusable canvases.
func (o Options) validate() error {
	if o.Width < MinWidth || o.Height < MinHeight {
		return fmt.Errorf("%w: %dx%d below minimum %dx%d",
			ErrInvalidCanvas, o.Width, o.Height, MinWidth, MinHeight)
	}
	switch o.Theme {
	case ThemeLight, ThemeDark:
	default:
		return fmt.Errorf("unknown theme %q", o.Theme)
	}
	switch o.Layout {
	case LayoutSingle, LayoutAxes:
	default:
		return fmt.Errorf("unknown layout %q", o.Layout)
	}
	return nil
}

// FileConfig is the YAML configuration accepted by the CLI. Every field is
// optional. Apply carries width, height, theme, layout, palette and
// no_legend into Options; timezone, step_ms and the viewer settings are
// parsed but not applied anywhere.
type FileConfig struct {
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Theme    string `yaml:"theme"`
	Layout   string `yaml:"layout"`
	Palette  string `yaml:"palette"`
	Timezone string `yaml:"timezone"`
	StepMS   int64  `yaml:"step_ms"`
	NoLegend bool   `yaml:"no_legend"`

	// Viewer settings.
	ListenAddr      string `yaml:"listen_addr"`
	RefreshSeconds  int    `yaml:"refresh_seconds"`
	CacheMaxEntries int    `yaml:"cache_max_entries"`
}

// LoadFileConfig reads a YAML configuration file.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Apply overlays the file configuration onto options, leaving fields the file
// does not set untouched.
func (c *FileConfig) Apply(o Options) Options {
	if c.Width > 0 {
		o.Width = c.Width
	}
	if c.Height > 0 {
		o.Height = c.Height
	}
	if c.Theme != "" {
		o.Theme = Theme(c.Theme)
	}
	if c.Layout != "" {
		o.Layout = Layout(c.Layout)
	}
	if c.Palette != "" {
		o.Palette = c.Palette
	}
	if c.NoLegend {
		o.NoLegend = true
	}
	return o
}
