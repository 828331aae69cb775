// Package ui provides terminal styling for process_wrapper's own messages.
// The wrapped compiler's output is never restyled.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Ayu theme color palette
// Dark: https://terminalcolors.com/themes/ayu/dark/
// Light: https://terminalcolors.com/themes/ayu/light/
var (
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49", // ayu light bright yellow
		Dark:  "#ffb454", // ayu dark bright yellow
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171", // ayu light bright red
		Dark:  "#f07178", // ayu dark bright red
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99", // ayu light muted
		Dark:  "#6c7680", // ayu dark muted
	}
)

// Everything process_wrapper prints about itself goes to stderr; stdout
// belongs to the child.
var stderrRenderer = lipgloss.NewRenderer(os.Stderr)

var (
	FailStyle  = stderrRenderer.NewStyle().Bold(true).Foreground(ColorFail)
	WarnStyle  = stderrRenderer.NewStyle().Foreground(ColorWarn)
	MutedStyle = stderrRenderer.NewStyle().Foreground(ColorMuted)
)

// RenderFail renders text with fail (red) styling
func RenderFail(s string) string {
	return render(FailStyle, s)
}

// RenderWarn renders text with warning (yellow) styling
func RenderWarn(s string) string {
	return render(WarnStyle, s)
}

// RenderMuted renders text with muted (gray) styling
func RenderMuted(s string) string {
	return render(MutedStyle, s)
}

func render(style lipgloss.Style, s string) string {
	if !ShouldUseColor() {
		return s
	}
	if stderrRenderer.ColorProfile() == termenv.Ascii {
		// CLICOLOR_FORCE on a non-terminal.
		stderrRenderer.SetColorProfile(termenv.ANSI)
	}
	return style.Render(s)
}

// FormatError renders err as the single line printed before exiting.
func FormatError(err error) string {
	return RenderFail("Error:") + " " + err.Error()
}
