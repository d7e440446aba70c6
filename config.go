package annotator

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of an annotation session.
type Config struct {
	Viewport    ViewportConfig    `mapstructure:"viewport"`
	Interaction InteractionConfig `mapstructure:"interaction"`
	Staging     StagingConfig     `mapstructure:"staging"`
	Log         LogConfig         `mapstructure:"log"`
}

// ViewportConfig configures zoom limits and fit behavior.
type ViewportConfig struct {
	MinZoom      float64 `mapstructure:"min_zoom"`
	MaxZoom      float64 `mapstructure:"max_zoom"`
	ZoomStep     float64 `mapstructure:"zoom_step"`
	WheelZoomIn  float64 `mapstructure:"wheel_zoom_in"`
	WheelZoomOut float64 `mapstructure:"wheel_zoom_out"`
	// Padding is subtracted from the container size before computing the
	// fit/fill scale.
	Padding float64 `mapstructure:"padding"`
}

// InteractionConfig configures the pointer state machine.
type InteractionConfig struct {
	// MinBBoxSize is the size both sides of a drawn box must exceed to be kept.
	MinBBoxSize float64 `mapstructure:"min_bbox_size"`
	// HoverDebounce and DragThrottle fall back to 50ms and 16ms when zero.
	HoverDebounce time.Duration `mapstructure:"hover_debounce"`
	DragThrottle  time.Duration `mapstructure:"drag_throttle"`
	// PanKey names the key that enables pan mode while held (e.g. "Space").
	PanKey       string `mapstructure:"pan_key"`
	DefaultLabel string `mapstructure:"default_label"`
	DefaultPhase string `mapstructure:"default_phase"`
	Debug        bool   `mapstructure:"debug"`
}

// StagingConfig configures the staging buffer.
type StagingConfig struct {
	MaxSize int `mapstructure:"max_size"`
}

// LogConfig selects the logger flavor. Mode "release" builds a production
// JSON logger; anything else a development console logger.
type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

// LoadConfig reads a YAML config file. Missing keys take their defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ANNOTATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("viewport.min_zoom", d.Viewport.MinZoom)
	v.SetDefault("viewport.max_zoom", d.Viewport.MaxZoom)
	v.SetDefault("viewport.zoom_step", d.Viewport.ZoomStep)
	v.SetDefault("viewport.wheel_zoom_in", d.Viewport.WheelZoomIn)
	v.SetDefault("viewport.wheel_zoom_out", d.Viewport.WheelZoomOut)
	v.SetDefault("viewport.padding", d.Viewport.Padding)

	v.SetDefault("interaction.min_bbox_size", d.Interaction.MinBBoxSize)
	v.SetDefault("interaction.hover_debounce", d.Interaction.HoverDebounce)
	v.SetDefault("interaction.drag_throttle", d.Interaction.DragThrottle)
	v.SetDefault("interaction.pan_key", d.Interaction.PanKey)
	v.SetDefault("interaction.default_label", d.Interaction.DefaultLabel)
	v.SetDefault("interaction.default_phase", d.Interaction.DefaultPhase)
	v.SetDefault("interaction.debug", d.Interaction.Debug)

	v.SetDefault("staging.max_size", d.Staging.MaxSize)

	v.SetDefault("log.mode", d.Log.Mode)
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Viewport: ViewportConfig{
			MinZoom:      MinZoom,
			MaxZoom:      MaxZoom,
			ZoomStep:     ZoomStep,
			WheelZoomIn:  defaultWheelZoomIn,
			WheelZoomOut: defaultWheelZoomOut,
			Padding:      defaultPadding,
		},
		Interaction: InteractionConfig{
			MinBBoxSize:   defaultMinBBoxSize,
			HoverDebounce: defaultHoverDebounce,
			DragThrottle:  defaultDragThrottle,
			PanKey:        "Space",
			DefaultLabel:  defaultBBoxLabel,
			DefaultPhase:  PhaseSegmentation.String(),
		},
		Staging: StagingConfig{
			MaxSize: DefaultStagingSize,
		},
		Log: LogConfig{
			Mode: "debug",
		},
	}
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if c.Viewport.MinZoom <= 0 || c.Viewport.MaxZoom < c.Viewport.MinZoom {
		return fmt.Errorf("config: invalid zoom range [%v, %v]", c.Viewport.MinZoom, c.Viewport.MaxZoom)
	}
	if c.Staging.MaxSize <= 0 {
		return fmt.Errorf("config: staging.max_size must be positive, got %d", c.Staging.MaxSize)
	}
	if c.Interaction.HoverDebounce < 0 || c.Interaction.DragThrottle < 0 {
		return fmt.Errorf("config: negative timer duration")
	}
	if _, err := ParsePhase(c.Interaction.DefaultPhase); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, ok := parseKey(c.Interaction.PanKey); !ok {
		return fmt.Errorf("config: unknown pan key %q", c.Interaction.PanKey)
	}
	return nil
}
