package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Terminal.Width != 120 {
		t.Errorf("Terminal.Width = %d, want 120", cfg.Terminal.Width)
	}
	if cfg.Terminal.Height != 30 {
		t.Errorf("Terminal.Height = %d, want 30", cfg.Terminal.Height)
	}
	if cfg.Terminal.Theme != "default" {
		t.Errorf("Terminal.Theme = %q, want %q", cfg.Terminal.Theme, "default")
	}
	if cfg.Terminal.Term != "xterm-256color" {
		t.Errorf("Terminal.Term = %q, want %q", cfg.Terminal.Term, "xterm-256color")
	}

	if cfg.Capture.PollIntervalMs != 100 {
		t.Errorf("Capture.PollIntervalMs = %d, want 100", cfg.Capture.PollIntervalMs)
	}
	if cfg.Capture.ChunkSize != 4096 {
		t.Errorf("Capture.ChunkSize = %d, want 4096", cfg.Capture.ChunkSize)
	}

	if cfg.Engine.ContinueOnError {
		t.Error("Engine.ContinueOnError should be false by default")
	}
	if cfg.Engine.FrameIntervalMs != 500 {
		t.Errorf("Engine.FrameIntervalMs = %d, want 500", cfg.Engine.FrameIntervalMs)
	}

	if cfg.Render.FrameDelayCs != 50 {
		t.Errorf("Render.FrameDelayCs = %d, want 50", cfg.Render.FrameDelayCs)
	}
	if !cfg.Render.ShowCursor {
		t.Error("Render.ShowCursor should be true by default")
	}

	if cfg.Output.Format != "gif" {
		t.Errorf("Output.Format = %q, want %q", cfg.Output.Format, "gif")
	}
	if !cfg.Output.SaveTranscript {
		t.Error("Output.SaveTranscript should be true by default")
	}

	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"PollInterval", cfg.Capture.PollInterval(), 100 * time.Millisecond},
		{"SettleTimeout", cfg.Capture.SettleTimeout(), 2 * time.Second},
		{"FrameInterval", cfg.Engine.FrameInterval(), 500 * time.Millisecond},
		{"FrameDelay", cfg.Render.FrameDelay(), 500 * time.Millisecond},
		{"LockTimeout", cfg.Output.LockTimeout(), 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s() = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("uses XDG_CONFIG_HOME", func(t *testing.T) {
		xdg := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", xdg)

		if got, want := ConfigDir(), filepath.Join(xdg, "kla"); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
		if got, want := ConfigFile(), filepath.Join(xdg, "kla", "config.yaml"); got != want {
			t.Errorf("ConfigFile() = %q, want %q", got, want)
		}
	})

	t.Run("falls back to home", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		if got, want := ConfigDir(), filepath.Join(home, ".config", "kla"); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
	})
}

func TestResolveDirs(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	cfg := Default()
	if got, want := cfg.Render.ResolveThemesDir(), filepath.Join(xdg, "kla", "themes"); got != want {
		t.Errorf("ResolveThemesDir() = %q, want %q", got, want)
	}
	if got, want := cfg.Logging.ResolveDir(), filepath.Join(xdg, "kla", "logs"); got != want {
		t.Errorf("Logging.ResolveDir() = %q, want %q", got, want)
	}
	if got := cfg.Output.ResolveDir(); got != "./output" {
		t.Errorf("Output.ResolveDir() = %q, want %q", got, "./output")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg.Output.Dir = "~/kla-out"
	if got, want := cfg.Output.ResolveDir(), filepath.Join(home, "kla-out"); got != want {
		t.Errorf("Output.ResolveDir() = %q, want %q", got, want)
	}
	cfg.Render.ThemesDir = "~"
	if got := cfg.Render.ResolveThemesDir(); got != home {
		t.Errorf("ResolveThemesDir() = %q, want %q", got, home)
	}
}

func TestLoad(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()
	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Terminal.Width != 120 {
		t.Errorf("Load().Terminal.Width = %d, want 120", cfg.Terminal.Width)
	}

	viper.Set("terminal.width", 0)
	viper.Set("output.format", "webm")
	_, err = Load()
	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("Load() error = %T, want ValidationErrors", err)
	}
	if len(errs) != 2 {
		t.Errorf("Load() returned %d validation errors, want 2: %v", len(errs), errs)
	}

	// Get falls back to defaults on invalid config.
	if got := Get(); got.Output.Format != "gif" {
		t.Errorf("Get().Output.Format = %q, want %q", got.Output.Format, "gif")
	}
}
