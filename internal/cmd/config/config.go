// Package config provides CLI commands for managing kla configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	appconfig "github.com/Iron-Ham/kla/internal/config"
	"github.com/Iron-Ham/kla/internal/media"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Wrapper functions for exec to allow testing
var execLookPath = exec.LookPath
var execCommand = exec.Command

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify kla configuration",
	Long: `View or modify kla configuration.

Without arguments, shows the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  kla config set terminal.theme dracula
  kla config set output.format mp4
  kla config set engine.continue_on_error true

Valid keys:
  terminal.width              - Terminal width in columns
  terminal.height             - Terminal height in rows
  terminal.shell              - Shell to spawn (empty: $SHELL, then /bin/bash)
  terminal.theme              - Render theme (see 'kla config theme list')
  terminal.term               - TERM exported to the shell
  capture.poll_interval_ms    - Pattern wait poll interval
  capture.chunk_size          - Maximum bytes read from the PTY at once
  capture.settle_timeout_ms   - Screenshot wait for first shell output
  engine.continue_on_error    - Keep running after a failed step (true/false)
  engine.frame_interval_ms    - Gap between animation frames
  render.padding              - Margin around the grid in pixels
  render.line_height          - Row spacing as a multiple of glyph height
  render.frame_delay_cs       - Encoded per-frame delay in centiseconds
  render.show_cursor          - Draw the cursor (true/false)
  render.themes_dir           - Directory of custom theme files
  output.dir                  - Artifact directory
  output.format               - Animation format: gif, mp4, png
  output.save_transcript      - Save a compressed session transcript (true/false)
  output.lock_timeout_ms      - Wait for another kla writing the same directory
  logging.enabled             - Write the debug log (true/false)
  logging.level               - Minimum level: debug, info, warn, error
  logging.dir                 - Log directory
  logging.max_size_mb         - Size before the log is rotated
  logging.max_backups         - Rotated logs to keep
  logging.compress            - Gzip rotated logs (true/false)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/kla/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in your editor",
	Long: `Open the config file in your preferred editor.

Uses $EDITOR environment variable, or falls back to common editors (vim, nano, vi).
If no config file exists, creates one with default values first.`,
	RunE: runConfigEdit,
}

var configResetCmd = &cobra.Command{
	Use:   "reset [key]",
	Short: "Reset configuration to defaults",
	Long: `Reset configuration values to their defaults.

Without arguments, resets all configuration to defaults.
With a key argument, resets only that specific key.

Examples:
  kla config reset                  # Reset all to defaults
  kla config reset terminal.theme   # Reset only terminal.theme to default`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigReset,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configResetCmd)
}

// Register adds all config-related commands to the given parent command.
func Register(parent *cobra.Command) {
	parent.AddCommand(configCmd)
}

// keyKind says how a value passed to config set is parsed and checked.
type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindPositiveInt
	kindFloat
	kindBool
	kindTheme
	kindFormat
	kindLevel
)

// setting is one user-settable key and its default value.
type setting struct {
	key  string
	kind keyKind
	def  any
}

// settings lists every key in config file order.
func settings() []setting {
	d := appconfig.Default()
	return []setting{
		{"terminal.width", kindPositiveInt, d.Terminal.Width},
		{"terminal.height", kindPositiveInt, d.Terminal.Height},
		{"terminal.shell", kindString, d.Terminal.Shell},
		{"terminal.theme", kindTheme, d.Terminal.Theme},
		{"terminal.term", kindString, d.Terminal.Term},
		{"capture.poll_interval_ms", kindPositiveInt, d.Capture.PollIntervalMs},
		{"capture.chunk_size", kindPositiveInt, d.Capture.ChunkSize},
		{"capture.settle_timeout_ms", kindInt, d.Capture.SettleTimeoutMs},
		{"engine.continue_on_error", kindBool, d.Engine.ContinueOnError},
		{"engine.frame_interval_ms", kindPositiveInt, d.Engine.FrameIntervalMs},
		{"render.padding", kindInt, d.Render.Padding},
		{"render.line_height", kindFloat, d.Render.LineHeight},
		{"render.frame_delay_cs", kindPositiveInt, d.Render.FrameDelayCs},
		{"render.show_cursor", kindBool, d.Render.ShowCursor},
		{"render.themes_dir", kindString, d.Render.ThemesDir},
		{"output.dir", kindString, d.Output.Dir},
		{"output.format", kindFormat, d.Output.Format},
		{"output.save_transcript", kindBool, d.Output.SaveTranscript},
		{"output.lock_timeout_ms", kindInt, d.Output.LockTimeoutMs},
		{"logging.enabled", kindBool, d.Logging.Enabled},
		{"logging.level", kindLevel, d.Logging.Level},
		{"logging.dir", kindString, d.Logging.Dir},
		{"logging.max_size_mb", kindPositiveInt, d.Logging.MaxSizeMB},
		{"logging.max_backups", kindInt, d.Logging.MaxBackups},
		{"logging.compress", kindBool, d.Logging.Compress},
	}
}

func lookupSetting(key string) (setting, bool) {
	for _, s := range settings() {
		if s.key == key {
			return s, true
		}
	}
	return setting{}, false
}

// parseValue converts a command line value to the type stored for s.
func parseValue(s setting, value, themeDir string) (any, error) {
	switch s.kind {
	case kindString:
		return value, nil
	case kindBool:
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", s.key)
		}
		return value == "true", nil
	case kindInt, kindPositiveInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", s.key)
		}
		if n < 0 || (n == 0 && s.kind == kindPositiveInt) {
			if s.kind == kindPositiveInt {
				return nil, fmt.Errorf("invalid value for %s: must be positive", s.key)
			}
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", s.key)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid value for %s: expected a positive number", s.key)
		}
		return f, nil
	case kindFormat:
		v := strings.ToLower(value)
		if !slices.Contains(appconfig.ValidOutputFormats(), v) {
			return nil, fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				s.key, value, strings.Join(appconfig.ValidOutputFormats(), ", "))
		}
		return v, nil
	case kindLevel:
		v := strings.ToLower(value)
		if !slices.Contains(appconfig.ValidLogLevels(), v) {
			return nil, fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				s.key, value, strings.Join(appconfig.ValidLogLevels(), ", "))
		}
		return v, nil
	case kindTheme:
		set, _ := media.DiscoverThemes(themeDir)
		if _, err := set.Lookup(value); err != nil {
			return nil, fmt.Errorf("invalid theme: %s\nValid options: %s",
				value, strings.Join(set.Names(), ", "))
		}
		return value, nil
	}
	return nil, fmt.Errorf("unsupported key type for %s", s.key)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := appconfig.Get()

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	writeConfig(out, cfg)
	return nil
}

func writeConfig(out io.Writer, cfg *appconfig.Config) {
	fmt.Fprintln(out, "terminal:")
	fmt.Fprintf(out, "  width: %d\n", cfg.Terminal.Width)
	fmt.Fprintf(out, "  height: %d\n", cfg.Terminal.Height)
	fmt.Fprintf(out, "  shell: %s\n", cfg.Terminal.Shell)
	fmt.Fprintf(out, "  theme: %s\n", cfg.Terminal.Theme)
	fmt.Fprintf(out, "  term: %s\n", cfg.Terminal.Term)

	fmt.Fprintln(out, "capture:")
	fmt.Fprintf(out, "  poll_interval_ms: %d\n", cfg.Capture.PollIntervalMs)
	fmt.Fprintf(out, "  chunk_size: %d\n", cfg.Capture.ChunkSize)
	fmt.Fprintf(out, "  settle_timeout_ms: %d\n", cfg.Capture.SettleTimeoutMs)

	fmt.Fprintln(out, "engine:")
	fmt.Fprintf(out, "  continue_on_error: %v\n", cfg.Engine.ContinueOnError)
	fmt.Fprintf(out, "  frame_interval_ms: %d\n", cfg.Engine.FrameIntervalMs)

	fmt.Fprintln(out, "render:")
	fmt.Fprintf(out, "  padding: %d\n", cfg.Render.Padding)
	fmt.Fprintf(out, "  line_height: %g\n", cfg.Render.LineHeight)
	fmt.Fprintf(out, "  frame_delay_cs: %d\n", cfg.Render.FrameDelayCs)
	fmt.Fprintf(out, "  show_cursor: %v\n", cfg.Render.ShowCursor)
	fmt.Fprintf(out, "  themes_dir: %s\n", cfg.Render.ResolveThemesDir())

	fmt.Fprintln(out, "output:")
	fmt.Fprintf(out, "  dir: %s\n", cfg.Output.Dir)
	fmt.Fprintf(out, "  format: %s\n", cfg.Output.Format)
	fmt.Fprintf(out, "  save_transcript: %v\n", cfg.Output.SaveTranscript)
	fmt.Fprintf(out, "  lock_timeout_ms: %d\n", cfg.Output.LockTimeoutMs)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  dir: %s\n", cfg.Logging.ResolveDir())
	fmt.Fprintf(out, "  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Fprintf(out, "  max_backups: %d\n", cfg.Logging.MaxBackups)
	fmt.Fprintf(out, "  compress: %v\n", cfg.Logging.Compress)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	s, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'kla config set --help' to see valid keys", key)
	}

	cfg := appconfig.Get()
	typedValue, err := parseValue(s, value, cfg.Render.ResolveThemesDir())
	if err != nil {
		return err
	}

	prev := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := appconfig.Load(); err != nil {
		viper.Set(key, prev)
		return err
	}

	configFile, err := writeConfigFile()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

// writeConfigFile saves viper's merged settings to the user's config file.
func writeConfigFile() (string, error) {
	configDir := appconfig.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := appconfig.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return configFile, nil
}

const defaultConfigContent = `# kla configuration

# Fallbacks for scripts that leave a setting out
terminal:
  # Terminal size in columns and rows
  width: 120
  height: 30
  # Shell to spawn. Empty uses $SHELL, then /bin/bash
  shell: ""
  # Render theme: default, dracula, or a custom theme name
  theme: default
  # TERM exported to the shell
  term: xterm-256color

# Shell output collection (advanced)
capture:
  # How often pattern waits re-check the output buffer
  poll_interval_ms: 100
  # Maximum bytes read from the PTY at once
  chunk_size: 4096
  # How long 'kla screenshot' waits for the shell prompt
  settle_timeout_ms: 2000

# Script execution
engine:
  # Keep running after a failed step and report every failure at the end
  continue_on_error: false
  # Gap between animation frames during record_gif steps
  frame_interval_ms: 500

# Image rendering
render:
  # Margin around the terminal grid in pixels
  padding: 20
  # Row spacing as a multiple of the glyph height
  line_height: 1.2
  # Per-frame delay of encoded animations in centiseconds
  frame_delay_cs: 50
  # Draw the block cursor
  show_cursor: true
  # Custom theme directory. Empty uses ~/.config/kla/themes
  themes_dir: ""

# Artifacts
output:
  # Where screenshots and recordings are written
  dir: ./output
  # Animation format for record_gif steps: gif, mp4 or png
  format: gif
  # Save a compressed transcript of the raw session output
  save_transcript: true
  # How long to wait for another kla writing the same directory
  lock_timeout_ms: 2000

# Debug logging
logging:
  enabled: true
  # Minimum level: debug, info, warn, error
  level: info
  # Log directory. Empty uses ~/.config/kla/logs
  dir: ""
  # Rotate the log after this many megabytes
  max_size_mb: 10
  # Rotated logs to keep
  max_backups: 3
  # Gzip rotated logs
  compress: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := appconfig.ConfigDir()
	configFile := appconfig.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'kla config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize kla's defaults.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := appconfig.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(appconfig.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: KLA_* (e.g., KLA_TERMINAL_THEME, KLA_OUTPUT_DIR)")
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configFile := appconfig.ConfigFile()

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		fmt.Fprintf(cmd.OutOrStdout(), "Config file doesn't exist, creating with defaults...\n")
		if err := runConfigInit(cmd, args); err != nil {
			return err
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		for _, e := range []string{"vim", "nano", "vi"} {
			if _, err := execLookPath(e); err == nil {
				editor = e
				break
			}
		}
	}
	if editor == "" {
		return fmt.Errorf("no editor found. Set $EDITOR environment variable")
	}

	editorCmd := execCommand(editor, configFile)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config file saved: %s\n", configFile)
	return nil
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		for _, s := range settings() {
			viper.Set(s.key, s.def)
		}
		fmt.Fprintln(out, "Reset all configuration to defaults.")
	} else {
		key := args[0]
		s, ok := lookupSetting(key)
		if !ok {
			return fmt.Errorf("unknown configuration key: %s\nRun 'kla config set --help' to see valid keys", key)
		}
		viper.Set(key, s.def)
		fmt.Fprintf(out, "Reset %s to default: %v\n", key, s.def)
	}

	configFile, err := writeConfigFile()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}
