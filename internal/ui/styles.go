// Package ui holds terminal styling shared by the ledger CLI commands.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = lipgloss.Color("74")  // blue
	colorCmd    = lipgloss.Color("250") // light gray
	colorMuted  = lipgloss.Color("245") // medium gray
	colorError  = lipgloss.Color("203") // red
)

var noColor bool

var (
	accentStyle  = lipgloss.NewStyle().Foreground(colorAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	commandStyle = lipgloss.NewStyle().Foreground(colorCmd)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	headerStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func render(st lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return st.Render(s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(mutedStyle, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(commandStyle, s) }

// RenderError returns s in the error (red) color.
func RenderError(s string) string { return render(errorStyle, s) }

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// Table renders rows under headers. Cells wider than width/len(headers) are
// truncated when width is positive.
func Table(headers []string, rows [][]string, width int) string {
	t := table.New().
		Headers(headers...).
		Rows(rows...).
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow && !noColor {
				return headerStyle
			}
			return cellStyle
		})
	if width > 0 {
		t = t.Width(width)
	}
	return t.String()
}
