package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete kla configuration
type Config struct {
	Terminal TerminalConfig `mapstructure:"terminal"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Render   RenderConfig   `mapstructure:"render"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// TerminalConfig holds the fallbacks used when a script leaves a setting out
type TerminalConfig struct {
	// Width is the terminal width in columns (default: 120)
	Width int `mapstructure:"width"`
	// Height is the terminal height in rows (default: 30)
	Height int `mapstructure:"height"`
	// Shell is the shell to spawn. Empty means $SHELL, then /bin/bash.
	Shell string `mapstructure:"shell"`
	// Theme is the render theme name (default: "default")
	// Built-in options: "default", "dracula". Custom themes are loaded from render.themes_dir.
	Theme string `mapstructure:"theme"`
	// Term is exported as TERM to the spawned shell (default: "xterm-256color")
	Term string `mapstructure:"term"`
}

// CaptureConfig controls how shell output is collected
type CaptureConfig struct {
	// PollIntervalMs is how often pattern waits re-check the buffer (default: 100)
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	// ChunkSize is the maximum number of bytes read from the PTY at once (default: 4096)
	ChunkSize int `mapstructure:"chunk_size"`
	// SettleTimeoutMs bounds how long the screenshot command waits for the
	// shell to print anything before typing (default: 2000)
	SettleTimeoutMs int `mapstructure:"settle_timeout_ms"`
}

// EngineConfig controls script execution
type EngineConfig struct {
	// ContinueOnError keeps running after a failed step and reports all
	// failures at the end instead of stopping at the first one (default: false)
	ContinueOnError bool `mapstructure:"continue_on_error"`
	// FrameIntervalMs is the gap between animation frames during record_gif (default: 500)
	FrameIntervalMs int `mapstructure:"frame_interval_ms"`
}

// RenderConfig controls how terminal frames become images
type RenderConfig struct {
	// Padding is the margin around the grid in pixels (default: 20)
	Padding int `mapstructure:"padding"`
	// LineHeight is the row spacing as a multiple of the glyph height (default: 1.2)
	LineHeight float64 `mapstructure:"line_height"`
	// FrameDelayCs is the per-frame delay of encoded animations in
	// centiseconds (default: 50)
	FrameDelayCs int `mapstructure:"frame_delay_cs"`
	// ShowCursor draws the block cursor when the terminal reports it visible (default: true)
	ShowCursor bool `mapstructure:"show_cursor"`
	// ThemesDir holds custom theme files. Empty means <config dir>/themes.
	ThemesDir string `mapstructure:"themes_dir"`
}

// OutputConfig controls where artifacts are written
type OutputConfig struct {
	// Dir is the artifact directory (default: "./output")
	Dir string `mapstructure:"dir"`
	// Format is the animation format for record_gif steps (default: "gif")
	// Options: "gif", "mp4", "png"
	Format string `mapstructure:"format"`
	// SaveTranscript writes a compressed copy of the raw session output
	// next to the artifacts (default: true)
	SaveTranscript bool `mapstructure:"save_transcript"`
	// LockTimeoutMs bounds the wait for another kla process writing to the
	// same directory (default: 2000)
	LockTimeoutMs int `mapstructure:"lock_timeout_ms"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is active (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum log level to record (default: "info")
	// Options: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// Dir is the log directory. Empty means <config dir>/logs.
	Dir string `mapstructure:"dir"`
	// MaxSizeMB is the maximum size of a log file before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Terminal: TerminalConfig{
			Width:  120,
			Height: 30,
			Shell:  "",
			Theme:  "default",
			Term:   "xterm-256color",
		},
		Capture: CaptureConfig{
			PollIntervalMs:  100,
			ChunkSize:       4096,
			SettleTimeoutMs: 2000,
		},
		Engine: EngineConfig{
			ContinueOnError: false,
			FrameIntervalMs: 500,
		},
		Render: RenderConfig{
			Padding:      20,
			LineHeight:   1.2,
			FrameDelayCs: 50,
			ShowCursor:   true,
			ThemesDir:    "",
		},
		Output: OutputConfig{
			Dir:            "./output",
			Format:         "gif",
			SaveTranscript: true,
			LockTimeoutMs:  2000,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
	}
}

// PollInterval returns the pattern poll interval as a time.Duration
func (c *CaptureConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// SettleTimeout returns the settle timeout as a time.Duration
func (c *CaptureConfig) SettleTimeout() time.Duration {
	return time.Duration(c.SettleTimeoutMs) * time.Millisecond
}

// FrameInterval returns the animation frame interval as a time.Duration
func (c *EngineConfig) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMs) * time.Millisecond
}

// FrameDelay returns the encoded per-frame delay as a time.Duration
func (c *RenderConfig) FrameDelay() time.Duration {
	return time.Duration(c.FrameDelayCs) * 10 * time.Millisecond
}

// LockTimeout returns the output lock timeout as a time.Duration
func (c *OutputConfig) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMs) * time.Millisecond
}

// ResolveThemesDir returns the directory searched for custom themes.
func (r *RenderConfig) ResolveThemesDir() string {
	if r.ThemesDir == "" {
		return filepath.Join(ConfigDir(), "themes")
	}
	return expandHome(r.ThemesDir)
}

// ResolveDir returns the log directory with ~ expanded.
func (l *LoggingConfig) ResolveDir() string {
	if l.Dir == "" {
		return filepath.Join(ConfigDir(), "logs")
	}
	return expandHome(l.Dir)
}

// ResolveDir returns the artifact directory with ~ expanded.
func (o *OutputConfig) ResolveDir() string {
	return expandHome(o.Dir)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Terminal defaults
	viper.SetDefault("terminal.width", defaults.Terminal.Width)
	viper.SetDefault("terminal.height", defaults.Terminal.Height)
	viper.SetDefault("terminal.shell", defaults.Terminal.Shell)
	viper.SetDefault("terminal.theme", defaults.Terminal.Theme)
	viper.SetDefault("terminal.term", defaults.Terminal.Term)

	// Capture defaults
	viper.SetDefault("capture.poll_interval_ms", defaults.Capture.PollIntervalMs)
	viper.SetDefault("capture.chunk_size", defaults.Capture.ChunkSize)
	viper.SetDefault("capture.settle_timeout_ms", defaults.Capture.SettleTimeoutMs)

	// Engine defaults
	viper.SetDefault("engine.continue_on_error", defaults.Engine.ContinueOnError)
	viper.SetDefault("engine.frame_interval_ms", defaults.Engine.FrameIntervalMs)

	// Render defaults
	viper.SetDefault("render.padding", defaults.Render.Padding)
	viper.SetDefault("render.line_height", defaults.Render.LineHeight)
	viper.SetDefault("render.frame_delay_cs", defaults.Render.FrameDelayCs)
	viper.SetDefault("render.show_cursor", defaults.Render.ShowCursor)
	viper.SetDefault("render.themes_dir", defaults.Render.ThemesDir)

	// Output defaults
	viper.SetDefault("output.dir", defaults.Output.Dir)
	viper.SetDefault("output.format", defaults.Output.Format)
	viper.SetDefault("output.save_transcript", defaults.Output.SaveTranscript)
	viper.SetDefault("output.lock_timeout_ms", defaults.Output.LockTimeoutMs)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kla")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kla"
	}
	return filepath.Join(home, ".config", "kla")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidOutputFormats returns the list of valid animation formats
func ValidOutputFormats() []string {
	return []string{"gif", "mp4", "png"}
}
