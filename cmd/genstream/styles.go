package main

import (
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

// theme maps semantic roles to ANSI color indices (0-15), so output follows
// the terminal's own color scheme. A negative index means no color.
type theme struct {
	Accent    int
	Reasoning int
	ToolCall  int
	Error     int
	Muted     int
}

func defaultTheme() theme {
	return theme{
		Accent:    6,
		Reasoning: 8,
		ToolCall:  3,
		Error:     1,
		Muted:     8,
	}
}

// styles holds the lipgloss styles derived from a theme for one writer.
type styles struct {
	Reasoning lipgloss.Style
	ToolCall  lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style

	// Markdown.
	Heading lipgloss.Style
	Bold    lipgloss.Style
	Italic  lipgloss.Style
	Code    lipgloss.Style
	Link    lipgloss.Style
}

// newStyles binds the theme to a renderer for w, which decides whether
// colors are emitted at all.
func newStyles(w io.Writer, t theme) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		Reasoning: r.NewStyle().Foreground(ansiColor(t.Reasoning)).Faint(true).Italic(true),
		ToolCall:  r.NewStyle().Foreground(ansiColor(t.ToolCall)).Bold(true),
		Error:     r.NewStyle().Foreground(ansiColor(t.Error)),
		Muted:     r.NewStyle().Foreground(ansiColor(t.Muted)).Faint(true),
		Heading:   r.NewStyle().Foreground(ansiColor(t.Accent)).Bold(true),
		Bold:      r.NewStyle().Bold(true),
		Italic:    r.NewStyle().Italic(true),
		Code:      r.NewStyle().Foreground(ansiColor(t.Accent)),
		Link:      r.NewStyle().Underline(true),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
