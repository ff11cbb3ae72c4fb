// Package util provides shared string helpers for terminal output.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// TruncateANSI truncates a string to maxWidth visual columns, adding "..." if truncated.
// ANSI escape codes are preserved and wide characters count as two columns.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// ansi.Truncate includes the tail in the final width calculation
	return ansi.Truncate(s, maxWidth, "...")
}

// ShowControls makes control characters in typed text visible on one line:
// newline and carriage return become "⏎", tab becomes "⇥", escape becomes
// "⎋", and other C0 controls use caret notation (e.g. "^C").
func ShowControls(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteString("⏎")
		case r == '\t':
			b.WriteString("⇥")
		case r == 0x1b:
			b.WriteString("⎋")
		case r < 0x20:
			b.WriteByte('^')
			b.WriteByte(byte(r) + '@')
		case r == 0x7f:
			b.WriteString("^?")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Describe renders s for a single progress line: controls made visible,
// then truncated to maxWidth columns.
func Describe(s string, maxWidth int) string {
	return TruncateANSI(ShowControls(s), maxWidth)
}
