// Package style provides consistent terminal styling using Lipgloss.
package style

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	// Success style for positive outcomes (green)
	Success = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10")).
		Bold(true)

	// Warning style for cautionary messages (yellow)
	Warning = lipgloss.NewStyle().
		Foreground(lipgloss.Color("11")).
		Bold(true)

	// Error style for failures and error values (red)
	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	// Info style for cell names (blue)
	Info = lipgloss.NewStyle().
		Foreground(lipgloss.Color("12"))

	// Dim style for secondary information (gray)
	Dim = lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	// Bold style for emphasis
	Bold = lipgloss.NewStyle().
		Bold(true)
)

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Render applies st only when color is enabled
func Render(color bool, st lipgloss.Style, text string) string {
	if !color {
		return text
	}
	return st.Render(text)
}

// PrintWarning prints a warning message with consistent formatting.
// The format and args work like fmt.Printf.
func PrintWarning(w io.Writer, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(w, "%s %s\n", Render(IsTerminal(w), Warning, "warning:"), msg)
}
