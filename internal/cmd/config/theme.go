package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	appconfig "github.com/Iron-Ham/kla/internal/config"
	"github.com/Iron-Ham/kla/internal/media"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Manage render themes",
	Long: `Manage the color themes screenshots and recordings are painted with.

kla ships with built-in themes and loads custom themes from YAML files in
render.themes_dir (default ~/.config/kla/themes/).

Use 'theme list' to see all available themes.
Use 'theme export' to create a template for custom themes.
Use 'theme info' to view details about a specific theme.`,
}

var themeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available themes",
	RunE:  runThemeList,
}

var themeExportCmd = &cobra.Command{
	Use:   "export <theme-name> [output-file]",
	Short: "Export a theme to YAML",
	Long: `Export a theme to YAML format for customization or sharing.

If no output file is specified, the YAML is printed to stdout.

Examples:
  kla config theme export default                  # Print default theme to stdout
  kla config theme export dracula my-theme.yaml    # Save dracula theme to file`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runThemeExport,
}

var themeInfoCmd = &cobra.Command{
	Use:   "info <theme-name>",
	Short: "Show information about a theme",
	Args:  cobra.ExactArgs(1),
	RunE:  runThemeInfo,
}

var themePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the custom themes directory path",
	RunE:  runThemePath,
}

var themeCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new custom theme from the default palette",
	Long: `Create a new custom theme file in your themes directory.

Example:
  kla config theme create solarized
  # Creates ~/.config/kla/themes/solarized.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runThemeCreate,
}

func init() {
	themeCmd.AddCommand(themeListCmd)
	themeCmd.AddCommand(themeExportCmd)
	themeCmd.AddCommand(themeInfoCmd)
	themeCmd.AddCommand(themePathCmd)
	themeCmd.AddCommand(themeCreateCmd)
	configCmd.AddCommand(themeCmd)
}

// themesDir is swapped out in tests.
var themesDir = func() string {
	return appconfig.Get().Render.ResolveThemesDir()
}

// lookupTheme resolves name and explains a custom theme that failed to load.
func lookupTheme(name string) (*media.Theme, error) {
	dir := themesDir()
	set, loadErrs := media.DiscoverThemes(dir)
	theme, err := set.Lookup(name)
	if err == nil {
		return theme, nil
	}
	for _, loadErr := range loadErrs {
		msg := loadErr.Error()
		if strings.HasPrefix(msg, name+".yaml:") || strings.HasPrefix(msg, name+".yml:") {
			return nil, fmt.Errorf("theme '%s' exists but failed to load: %v\n\nFix the errors in your theme file and try again", name, loadErr)
		}
	}
	return nil, fmt.Errorf("unknown theme: %s\n\nRun 'kla config theme list' to see available themes.\nCustom themes should be placed in: %s", name, dir)
}

func runThemeList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	dir := themesDir()

	set, loadErrs := media.DiscoverThemes(dir)
	if len(loadErrs) > 0 {
		errOut := cmd.ErrOrStderr()
		fmt.Fprintln(errOut, "Warning: Some themes failed to load:")
		for _, err := range loadErrs {
			fmt.Fprintf(errOut, "  - %v\n", err)
		}
		fmt.Fprintln(errOut)
	}

	current := appconfig.Get().Terminal.Theme
	fmt.Fprintln(out, "Available themes:")
	fmt.Fprintln(out)
	for _, name := range set.Names() {
		kind := "custom"
		if media.IsBuiltinTheme(name) {
			kind = "built-in"
		}
		marker := "  "
		if strings.EqualFold(name, current) {
			marker = "* "
		}
		fmt.Fprintf(out, "%s%-16s (%s)\n", marker, name, kind)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Custom themes directory: %s\n", dir)
	return nil
}

func runThemeExport(cmd *cobra.Command, args []string) error {
	theme, err := lookupTheme(args[0])
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(media.ThemeToFile(theme))
	if err != nil {
		return fmt.Errorf("exporting theme: %w", err)
	}

	if len(args) > 1 {
		outputPath := args[1]
		if err := media.WriteFileAtomic(outputPath, data, 0o644); err != nil {
			return fmt.Errorf("writing to %s: %w", outputPath, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Theme exported to: %s\n", outputPath)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runThemeInfo(cmd *cobra.Command, args []string) error {
	name := args[0]
	theme, err := lookupTheme(name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Theme: %s\n", name)
	fmt.Fprintln(out)

	if media.IsBuiltinTheme(name) {
		fmt.Fprintln(out, "Type: Built-in")
	} else {
		fmt.Fprintln(out, "Type: Custom")
		if tf := customThemeFile(name); tf != nil {
			if tf.Author != "" {
				fmt.Fprintf(out, "Author: %s\n", tf.Author)
			}
			if tf.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", tf.Description)
			}
		}
	}

	colors := media.ThemeToFile(theme).Colors
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Colors:")
	fmt.Fprintf(out, "  Background: %s\n", colors.Background)
	fmt.Fprintf(out, "  Foreground: %s\n", colors.Foreground)
	fmt.Fprintf(out, "  Cursor:     %s\n", colors.Cursor)
	fmt.Fprintf(out, "  Selection:  %s\n", colors.Selection)
	fmt.Fprintf(out, "  ANSI:       %s\n", strings.Join(colors.ANSI[:8], " "))
	fmt.Fprintf(out, "              %s\n", strings.Join(colors.ANSI[8:], " "))
	return nil
}

// customThemeFile returns the file behind a custom theme, or nil.
func customThemeFile(name string) *media.ThemeFile {
	for _, ext := range []string{".yaml", ".yml"} {
		tf, err := media.LoadThemeFile(filepath.Join(themesDir(), name+ext))
		if err == nil {
			return tf
		}
	}
	return nil
}

func runThemePath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	dir := themesDir()
	fmt.Fprintln(out, dir)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Note: This directory does not exist yet.")
		fmt.Fprintln(out, "It will be created when you add your first custom theme.")
	}
	return nil
}

func runThemeCreate(cmd *cobra.Command, args []string) error {
	name := args[0]

	if name == "" {
		return fmt.Errorf("theme name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\:*?\"<>|") {
		return fmt.Errorf("theme name contains invalid characters")
	}
	if media.IsBuiltinTheme(name) {
		return fmt.Errorf("cannot create custom theme with built-in name '%s'", name)
	}

	dir := themesDir()
	themePath := filepath.Join(dir, name+".yaml")
	if _, err := os.Stat(themePath); err == nil {
		return fmt.Errorf("theme '%s' already exists at %s", name, themePath)
	}

	tf := media.ThemeToFile(media.DefaultTheme())
	tf.Name = capitalizeFirst(name)
	tf.Description = "A custom kla theme"

	data, err := yaml.Marshal(tf)
	if err != nil {
		return fmt.Errorf("creating theme: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating themes directory: %w", err)
	}
	if err := media.WriteFileAtomic(themePath, data, 0o644); err != nil {
		return fmt.Errorf("creating theme: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created new theme: %s\n", themePath)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Edit this file to customize your theme colors.")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "To use your new theme, run:\n")
	fmt.Fprintf(out, "  kla config set terminal.theme %s\n", name)
	return nil
}

// capitalizeFirst capitalizes the first character of a string.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
