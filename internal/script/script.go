// Package script defines kla automation scripts and reads and writes them.
//
// A Script is a terminal configuration plus an ordered list of steps. The
// step set is closed: Command, Type, Screenshot and RecordGif are the only
// implementations of Step, so callers dispatch with a single type switch.
//
// Scripts are stored as YAML or TOML documents. The format is picked from
// the file extension:
//
//	name: Demo
//	settings:
//	  width: 100
//	  theme: dracula
//	steps:
//	  - type: command
//	    text: ls -la
//	    wait: 500ms
//	  - type: screenshot
//	    name: listing
package script

import (
	"time"
)

// Step kinds as they appear in the type field of a step record.
const (
	KindCommand    = "command"
	KindType       = "type"
	KindScreenshot = "screenshot"
	KindRecordGif  = "record_gif"
)

// SingleCommandWait is how long SingleCommand lets the command run.
const SingleCommandWait = 500 * time.Millisecond

// Script is a loaded automation script. It is not modified after loading.
type Script struct {
	Name     string
	Settings Settings
	Steps    []Step
}

// Settings configures the terminal a script runs in.
type Settings struct {
	Width      int
	Height     int
	Shell      string
	Theme      string
	WorkingDir string
}

// Step is one script instruction.
type Step interface {
	// Kind returns the step's type discriminator.
	Kind() string
	isStep()
}

// Command writes Text and a newline, then waits Wait (if non-zero).
type Command struct {
	Text string
	Wait time.Duration
}

// Type writes Text one rune at a time, pausing Speed between runes.
type Type struct {
	Text  string
	Speed time.Duration
}

// Screenshot captures the screen as a still image called Name.
type Screenshot struct {
	Name string
}

// RecordGif records the screen for Duration into an animation called Name.
type RecordGif struct {
	Duration time.Duration
	Name     string
}

func (Command) Kind() string    { return KindCommand }
func (Type) Kind() string       { return KindType }
func (Screenshot) Kind() string { return KindScreenshot }
func (RecordGif) Kind() string  { return KindRecordGif }

func (Command) isStep()    {}
func (Type) isStep()       {}
func (Screenshot) isStep() {}
func (RecordGif) isStep()  {}

// SingleCommand returns a one-step script that runs cmd in a terminal
// configured from d.
func SingleCommand(cmd string, d Defaults) *Script {
	return &Script{
		Name:     "Single command: " + cmd,
		Settings: d.Settings(),
		Steps:    []Step{Command{Text: cmd, Wait: SingleCommandWait}},
	}
}

// CaptureCount returns the number of screenshot and record_gif steps.
func (s *Script) CaptureCount() int {
	n := 0
	for _, st := range s.Steps {
		switch st.(type) {
		case Screenshot, RecordGif:
			n++
		}
	}
	return n
}

// Duration estimates how long the script takes to run, counting waits,
// typing delays and recordings.
func (s *Script) Duration() time.Duration {
	var total time.Duration
	for _, st := range s.Steps {
		switch st := st.(type) {
		case Command:
			total += st.Wait
		case Type:
			if n := len([]rune(st.Text)); n > 1 {
				total += time.Duration(n-1) * st.Speed
			}
		case RecordGif:
			total += st.Duration
		}
	}
	return total
}
