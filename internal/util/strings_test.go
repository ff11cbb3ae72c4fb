package util

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncateANSI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		expected string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact width unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"tiny width returns ellipsis", "hello", 3, "..."},
		{"negative width returns ellipsis", "hello", -1, "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateANSI(tt.input, tt.maxWidth); got != tt.expected {
				t.Errorf("TruncateANSI(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.expected)
			}
		})
	}
}

func TestTruncateANSI_PreservesWidthWithStyles(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("a long styled line of text")

	got := TruncateANSI(styled, 10)
	if w := lipgloss.Width(got); w > 10 {
		t.Errorf("lipgloss.Width(TruncateANSI()) = %d, want <= 10", w)
	}
}

func TestTruncateANSI_WideCharacters(t *testing.T) {
	got := TruncateANSI("日本語のテキスト", 9)
	if w := lipgloss.Width(got); w > 9 {
		t.Errorf("lipgloss.Width(TruncateANSI()) = %d, want <= 9", w)
	}
}

func TestShowControls(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "ls -la", "ls -la"},
		{"newline", "echo hi\n", "echo hi⏎"},
		{"carriage return", "y\r", "y⏎"},
		{"tab", "cd Doc\t", "cd Doc⇥"},
		{"escape", "\x1b:wq", "⎋:wq"},
		{"ctrl-c", "\x03", "^C"},
		{"delete", "\x7f", "^?"},
		{"unicode kept", "héllo", "héllo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShowControls(tt.input); got != tt.want {
				t.Errorf("ShowControls(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	if got, want := Describe("echo hello world\n", 10), "echo he..."; got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
}
