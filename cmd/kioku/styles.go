package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette
var (
	colorPrimary = lipgloss.Color("#7C5CFF") // indigo - brand
	colorAccent  = lipgloss.Color("#3DDC97") // green - success / correct
	colorText    = lipgloss.Color("#F2F3F3")
	colorMuted   = lipgloss.Color("240")
	colorWarn    = lipgloss.Color("#F59E0B")
	colorDanger  = lipgloss.Color("#EF4444")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	glyphStyle   = lipgloss.NewStyle().Foreground(colorText).Bold(true).Padding(0, 2)
	labelStyle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(colorText)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
)

// isTerminal reports whether stdout is an interactive terminal; non-TTY
// output (pipes, CI) gets plain text.
func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// plainIfPiped strips styling when not writing to a TTY.
func plainIfPiped(styled lipgloss.Style, s string) string {
	if !isTerminal() {
		return s
	}
	return styled.Render(s)
}
