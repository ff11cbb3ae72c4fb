package media

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/kla/internal/errors"
)

// ThemeFile is a custom theme definition loaded from YAML.
//
//	name: Solarized Dark
//	version: "1"
//	colors:
//	  background: "#002b36"
//	  foreground: "#839496"
//	  cursor: "#93a1a1"
//	  ansi: ["#073642", "#dc322f", ...] # exactly 16 entries
type ThemeFile struct {
	Name        string          `yaml:"name"`
	Author      string          `yaml:"author,omitempty"`
	Description string          `yaml:"description,omitempty"`
	Version     string          `yaml:"version"`
	Colors      ThemeFileColors `yaml:"colors"`
}

// ThemeFileColors holds hex colors (#RGB or #RRGGBB).
type ThemeFileColors struct {
	Background string `yaml:"background"`
	Foreground string `yaml:"foreground"`
	// Cursor and Selection default to Foreground and Background.
	Cursor    string   `yaml:"cursor,omitempty"`
	Selection string   `yaml:"selection,omitempty"`
	ANSI      []string `yaml:"ansi"`
}

var hexColorRegex = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

// LoadThemeFile reads and validates the theme at path.
func LoadThemeFile(path string) (*ThemeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading theme file: %w", err)
	}

	var tf ThemeFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing theme file: %w", err)
	}
	if err := tf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid theme: %w", err)
	}
	return &tf, nil
}

// Validate checks that every required color is present and well formed.
func (tf *ThemeFile) Validate() error {
	if tf.Name == "" {
		return errors.New("theme name is required")
	}
	if tf.Version != "1" {
		return fmt.Errorf("unsupported theme version %q (supported: 1)", tf.Version)
	}

	required := map[string]string{
		"background": tf.Colors.Background,
		"foreground": tf.Colors.Foreground,
	}
	for name, c := range required {
		if c == "" {
			return fmt.Errorf("color '%s' is required", name)
		}
	}

	if len(tf.Colors.ANSI) != 16 {
		return fmt.Errorf("ansi needs 16 colors, got %d", len(tf.Colors.ANSI))
	}

	all := map[string]string{
		"background": tf.Colors.Background,
		"foreground": tf.Colors.Foreground,
		"cursor":     tf.Colors.Cursor,
		"selection":  tf.Colors.Selection,
	}
	for i, c := range tf.Colors.ANSI {
		all[fmt.Sprintf("ansi[%d]", i)] = c
	}
	for name, c := range all {
		if c != "" && !hexColorRegex.MatchString(c) {
			return fmt.Errorf("color '%s' has invalid format: %s (expected #RGB or #RRGGBB)", name, c)
		}
	}
	return nil
}

// Theme converts a validated file into a Theme named name.
func (tf *ThemeFile) Theme(name string) (*Theme, error) {
	t := &Theme{Name: name}
	var err error
	if t.Background, err = parseHex(tf.Colors.Background); err != nil {
		return nil, err
	}
	if t.Foreground, err = parseHex(tf.Colors.Foreground); err != nil {
		return nil, err
	}
	t.Cursor, t.Selection = t.Foreground, t.Background
	if tf.Colors.Cursor != "" {
		if t.Cursor, err = parseHex(tf.Colors.Cursor); err != nil {
			return nil, err
		}
	}
	if tf.Colors.Selection != "" {
		if t.Selection, err = parseHex(tf.Colors.Selection); err != nil {
			return nil, err
		}
	}
	if len(tf.Colors.ANSI) != len(t.ANSI) {
		return nil, fmt.Errorf("ansi needs 16 colors, got %d", len(tf.Colors.ANSI))
	}
	for i, s := range tf.Colors.ANSI {
		if t.ANSI[i], err = parseHex(s); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ThemeToFile exports t in the on-disk format.
func ThemeToFile(t *Theme) *ThemeFile {
	tf := &ThemeFile{
		Name:    t.Name,
		Version: "1",
		Colors: ThemeFileColors{
			Background: toHex(t.Background),
			Foreground: toHex(t.Foreground),
			Cursor:     toHex(t.Cursor),
			Selection:  toHex(t.Selection),
			ANSI:       make([]string, len(t.ANSI)),
		},
	}
	for i, c := range t.ANSI {
		tf.Colors.ANSI[i] = toHex(c)
	}
	return tf
}

func parseHex(s string) (color.RGBA, error) {
	if !hexColorRegex.MatchString(s) {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	if len(s) == 4 {
		s = string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return rgb(r, g, b), nil
}

func toHex(c color.RGBA) string {
	cc, _ := colorful.MakeColor(c)
	return cc.Hex()
}

// ThemeSet resolves theme names against the built-ins and a directory of
// custom theme files.
type ThemeSet struct {
	custom map[string]*Theme
}

// DiscoverThemes loads every *.yaml or *.yml file in dir. A missing
// directory yields an empty set. Invalid files and files shadowing a
// built-in theme are skipped and reported in the returned errors.
func DiscoverThemes(dir string) (*ThemeSet, []error) {
	set := &ThemeSet{custom: make(map[string]*Theme)}
	if dir == "" {
		return set, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return set, nil
		}
		return set, []error{fmt.Errorf("reading themes directory: %w", err)}
	}

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		file := entry.Name()
		ext := filepath.Ext(file)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		name := strings.TrimSuffix(file, ext)

		if IsBuiltinTheme(name) {
			errs = append(errs, fmt.Errorf("%s: cannot override built-in theme '%s'", file, name))
			continue
		}

		tf, err := LoadThemeFile(filepath.Join(dir, file))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", file, err))
			continue
		}
		theme, err := tf.Theme(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", file, err))
			continue
		}
		set.custom[name] = theme
	}
	return set, errs
}

// Lookup returns the named theme. Built-ins match case-insensitively. An
// unknown name yields a *errors.NotFoundError listing the available themes.
func (s *ThemeSet) Lookup(name string) (*Theme, error) {
	if name == "" {
		return DefaultTheme(), nil
	}
	if t, ok := BuiltinTheme(name); ok {
		return t, nil
	}
	if s != nil {
		if t, ok := s.custom[name]; ok {
			return t, nil
		}
	}
	return nil, errors.NewNotFoundError("theme", name).
		WithCause(fmt.Errorf("available: %s", strings.Join(s.Names(), ", ")))
}

// Names lists built-in themes followed by custom themes in sorted order.
func (s *ThemeSet) Names() []string {
	names := BuiltinThemes()
	if s == nil {
		return names
	}
	custom := make([]string, 0, len(s.custom))
	for name := range s.custom {
		custom = append(custom, name)
	}
	sort.Strings(custom)
	return append(names, custom...)
}
