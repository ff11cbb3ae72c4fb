package script

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/kla/internal/errors"
)

// Format is a script document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the encoding from path's extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: script file %q (want .yaml, .yml or .toml)", errors.ErrUnsupportedFormat, path)
	}
}

// document is the on-disk shape shared by both encodings.
type document struct {
	Name     string       `yaml:"name" toml:"name"`
	Settings settingsDoc  `yaml:"settings" toml:"settings"`
	Steps    []stepRecord `yaml:"steps" toml:"steps"`
}

type settingsDoc struct {
	Width      *int   `yaml:"width,omitempty" toml:"width,omitempty"`
	Height     *int   `yaml:"height,omitempty" toml:"height,omitempty"`
	Shell      string `yaml:"shell,omitempty" toml:"shell,omitempty"`
	Theme      string `yaml:"theme,omitempty" toml:"theme,omitempty"`
	WorkingDir string `yaml:"working_dir,omitempty" toml:"working_dir,omitempty"`
}

// stepRecord is a flat step discriminated by Type. Durations stay text
// until validation so errors can name the step. Text is a pointer so an
// empty command (a bare Enter) is distinct from a missing one.
type stepRecord struct {
	Type     string  `yaml:"type" toml:"type"`
	Text     *string `yaml:"text,omitempty" toml:"text,omitempty"`
	Wait     string `yaml:"wait,omitempty" toml:"wait,omitempty"`
	Speed    string `yaml:"speed,omitempty" toml:"speed,omitempty"`
	Name     string `yaml:"name,omitempty" toml:"name,omitempty"`
	Duration string `yaml:"duration,omitempty" toml:"duration,omitempty"`
}

// Loader reads scripts, filling omitted values from Defaults.
type Loader struct {
	defaults Defaults
}

// NewLoader returns a Loader using d for omitted settings.
func NewLoader(d Defaults) *Loader {
	return &Loader{defaults: d}
}

// LoadFile reads and validates the script at path.
func (l *Loader) LoadFile(path string) (*Script, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, errors.NewScriptError("unknown script format", err).WithPath(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewScriptError("failed to read script", err).WithPath(path)
	}

	s, err := l.Parse(data, format)
	if err != nil {
		var scriptErr *errors.ScriptError
		if errors.As(err, &scriptErr) {
			scriptErr.WithPath(path)
		}
		return nil, err
	}
	return s, nil
}

// Parse decodes and validates a script document. Unknown fields are
// rejected so typos surface instead of being ignored.
func (l *Loader) Parse(data []byte, format Format) (*Script, error) {
	var doc document
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.NewScriptError("invalid YAML",
				fmt.Errorf("%w: %w", errors.ErrScriptParse, err))
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.NewScriptError("invalid TOML",
				fmt.Errorf("%w: %w", errors.ErrScriptParse, err))
		}
	default:
		return nil, errors.NewScriptError("unknown script format",
			fmt.Errorf("%w: %q", errors.ErrUnsupportedFormat, format))
	}
	return l.build(&doc)
}

func (l *Loader) build(doc *document) (*Script, error) {
	if strings.TrimSpace(doc.Name) == "" {
		return nil, fieldError(-1, "name", "name is required", errors.ErrScriptParse)
	}

	settings, err := l.buildSettings(doc.Settings)
	if err != nil {
		return nil, err
	}

	steps := make([]Step, 0, len(doc.Steps))
	for i, rec := range doc.Steps {
		st, err := l.buildStep(i, rec)
		if err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}

	return &Script{Name: doc.Name, Settings: settings, Steps: steps}, nil
}

func (l *Loader) buildSettings(doc settingsDoc) (Settings, error) {
	s := l.defaults.Settings()
	if doc.Width != nil {
		if *doc.Width <= 0 {
			return Settings{}, fieldError(-1, "settings.width",
				fmt.Sprintf("width must be positive, got %d", *doc.Width), errors.ErrScriptParse)
		}
		s.Width = *doc.Width
	}
	if doc.Height != nil {
		if *doc.Height <= 0 {
			return Settings{}, fieldError(-1, "settings.height",
				fmt.Sprintf("height must be positive, got %d", *doc.Height), errors.ErrScriptParse)
		}
		s.Height = *doc.Height
	}
	if doc.Shell != "" {
		s.Shell = doc.Shell
	}
	if doc.Theme != "" {
		s.Theme = doc.Theme
	}
	s.WorkingDir = doc.WorkingDir
	return s, nil
}

func (l *Loader) buildStep(i int, rec stepRecord) (Step, error) {
	switch rec.Type {
	case KindCommand:
		if rec.Text == nil {
			return nil, fieldError(i, "text", "command step needs text", errors.ErrScriptParse)
		}
		var wait time.Duration
		if rec.Wait != "" {
			d, err := parseField(i, "wait", rec.Wait)
			if err != nil {
				return nil, err
			}
			wait = d
		}
		return Command{Text: *rec.Text, Wait: wait}, nil

	case KindType:
		if rec.Text == nil {
			return nil, fieldError(i, "text", "type step needs text", errors.ErrScriptParse)
		}
		speed := l.defaults.TypingSpeed
		if rec.Speed != "" {
			d, err := parseField(i, "speed", rec.Speed)
			if err != nil {
				return nil, err
			}
			speed = d
		}
		return Type{Text: *rec.Text, Speed: speed}, nil

	case KindScreenshot:
		if err := checkName(i, rec.Name); err != nil {
			return nil, err
		}
		return Screenshot{Name: rec.Name}, nil

	case KindRecordGif:
		if err := checkName(i, rec.Name); err != nil {
			return nil, err
		}
		if rec.Duration == "" {
			return nil, fieldError(i, "duration", "record_gif step needs a duration", errors.ErrScriptParse)
		}
		d, err := parseField(i, "duration", rec.Duration)
		if err != nil {
			return nil, err
		}
		return RecordGif{Duration: d, Name: rec.Name}, nil

	case "":
		return nil, fieldError(i, "type", "step type is required", errors.ErrUnknownStep)
	default:
		return nil, fieldError(i, "type", fmt.Sprintf("unknown step type %q", rec.Type), errors.ErrUnknownStep)
	}
}

// checkName rejects artifact names that are empty or would escape the
// output directory.
func checkName(i int, name string) error {
	switch {
	case name == "":
		return fieldError(i, "name", "capture step needs a name", errors.ErrScriptParse)
	case strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`):
		return fieldError(i, "name", fmt.Sprintf("name %q must be a plain file name not starting with '.'", name), errors.ErrScriptParse)
	}
	return nil
}

func parseField(i int, field, value string) (time.Duration, error) {
	d, err := ParseDuration(value)
	if err != nil {
		return 0, fieldError(i, field, "bad duration",
			fmt.Errorf("%w: %w", errors.ErrScriptParse, err))
	}
	return d, nil
}

func fieldError(step int, field, msg string, cause error) *errors.ScriptError {
	return errors.NewScriptError(msg, cause).WithStep(step).WithField(field)
}

// Marshal encodes s in the given format. Durations are written so that
// parsing the output yields the same values.
func Marshal(s *Script, format Format) ([]byte, error) {
	doc := toDocument(s)
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encoding YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding YAML: %w", err)
		}
		return buf.Bytes(), nil
	case FormatTOML:
		data, err := toml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encoding TOML: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnsupportedFormat, format)
	}
}

// Save writes s to path in the format implied by its extension.
func Save(path string, s *Script) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Marshal(s, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing script: %w", err)
	}
	return nil
}

func toDocument(s *Script) document {
	doc := document{
		Name: s.Name,
		Settings: settingsDoc{
			Shell:      s.Settings.Shell,
			Theme:      s.Settings.Theme,
			WorkingDir: s.Settings.WorkingDir,
		},
		Steps: make([]stepRecord, 0, len(s.Steps)),
	}
	if w := s.Settings.Width; w > 0 {
		doc.Settings.Width = &w
	}
	if h := s.Settings.Height; h > 0 {
		doc.Settings.Height = &h
	}

	for _, st := range s.Steps {
		rec := stepRecord{Type: st.Kind()}
		switch st := st.(type) {
		case Command:
			rec.Text = &st.Text
			if st.Wait > 0 {
				rec.Wait = FormatDuration(st.Wait)
			}
		case Type:
			rec.Text = &st.Text
			rec.Speed = FormatDuration(st.Speed)
		case Screenshot:
			rec.Name = st.Name
		case RecordGif:
			rec.Name = st.Name
			rec.Duration = FormatDuration(st.Duration)
		}
		doc.Steps = append(doc.Steps, rec)
	}
	return doc
}
