package annotator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "annotator.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Interaction.HoverDebounce != 50*time.Millisecond {
		t.Errorf("HoverDebounce = %v", cfg.Interaction.HoverDebounce)
	}
	if cfg.Interaction.DragThrottle != 16*time.Millisecond {
		t.Errorf("DragThrottle = %v", cfg.Interaction.DragThrottle)
	}
	if cfg.Staging.MaxSize != DefaultStagingSize {
		t.Errorf("MaxSize = %d", cfg.Staging.MaxSize)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
viewport:
  max_zoom: 8
interaction:
  hover_debounce: 80ms
  pan_key: Shift
  default_phase: bbox
staging:
  max_size: 5
log:
  mode: release
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Viewport.MaxZoom != 8 {
		t.Errorf("MaxZoom = %v, want 8", cfg.Viewport.MaxZoom)
	}
	if cfg.Viewport.MinZoom != MinZoom {
		t.Errorf("MinZoom default lost: %v", cfg.Viewport.MinZoom)
	}
	if cfg.Interaction.HoverDebounce != 80*time.Millisecond {
		t.Errorf("HoverDebounce = %v, want 80ms", cfg.Interaction.HoverDebounce)
	}
	if cfg.Interaction.DragThrottle != defaultDragThrottle {
		t.Errorf("DragThrottle = %v, want default", cfg.Interaction.DragThrottle)
	}
	if cfg.Interaction.PanKey != "Shift" || cfg.Interaction.DefaultPhase != "bbox" {
		t.Errorf("interaction = %+v", cfg.Interaction)
	}
	if cfg.Staging.MaxSize != 5 || cfg.Log.Mode != "release" {
		t.Errorf("staging/log = %+v %+v", cfg.Staging, cfg.Log)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, "staging:\n  max_size: 5\n")
	t.Setenv("ANNOTATOR_STAGING_MAX_SIZE", "12")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Staging.MaxSize != 12 {
		t.Errorf("MaxSize = %d, want 12", cfg.Staging.MaxSize)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name, body, want string
	}{
		{"bad phase", "interaction:\n  default_phase: review\n", "unknown phase"},
		{"bad key", "interaction:\n  pan_key: Hyper\n", "unknown pan key"},
		{"bad staging", "staging:\n  max_size: 0\n", "max_size"},
		{"bad zoom", "viewport:\n  min_zoom: 5\n  max_zoom: 2\n", "zoom range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestNewLogger(t *testing.T) {
	for _, mode := range []string{"release", "debug", ""} {
		l, err := NewLogger(mode)
		if err != nil || l == nil {
			t.Errorf("NewLogger(%q) = %v, %v", mode, l, err)
		}
	}
}
