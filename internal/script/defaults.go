package script

import "time"

// Built-in fallbacks for settings a script leaves out.
const (
	DefaultWidth       = 120
	DefaultHeight      = 30
	DefaultShell       = "/bin/bash"
	DefaultTheme       = "default"
	DefaultTypingSpeed = 50 * time.Millisecond
)

// Defaults are the values used for settings and step fields a script
// omits.
type Defaults struct {
	Width       int
	Height      int
	Shell       string
	Theme       string
	TypingSpeed time.Duration
}

// ResolveDefaults computes the stock defaults. The shell comes from
// $SHELL, read through getenv so tests can inject an environment.
func ResolveDefaults(getenv func(string) string) Defaults {
	shell := DefaultShell
	if getenv != nil {
		if s := getenv("SHELL"); s != "" {
			shell = s
		}
	}
	return Defaults{
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		Shell:       shell,
		Theme:       DefaultTheme,
		TypingSpeed: DefaultTypingSpeed,
	}
}

// Merge returns d with every non-zero field of o applied on top.
func (d Defaults) Merge(o Defaults) Defaults {
	if o.Width > 0 {
		d.Width = o.Width
	}
	if o.Height > 0 {
		d.Height = o.Height
	}
	if o.Shell != "" {
		d.Shell = o.Shell
	}
	if o.Theme != "" {
		d.Theme = o.Theme
	}
	if o.TypingSpeed > 0 {
		d.TypingSpeed = o.TypingSpeed
	}
	return d
}

// Settings returns terminal settings filled from d.
func (d Defaults) Settings() Settings {
	return Settings{
		Width:  d.Width,
		Height: d.Height,
		Shell:  d.Shell,
		Theme:  d.Theme,
	}
}
