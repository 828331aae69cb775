package ui

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether stderr is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// ShouldUseColor follows the NO_COLOR and CLICOLOR conventions:
//
//	NO_COLOR (any value)  never color
//	CLICOLOR=0            never color
//	CLICOLOR_FORCE (!=0)  color even when stderr is not a terminal
//
// Otherwise color is used only on a terminal.
func ShouldUseColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if force := os.Getenv("CLICOLOR_FORCE"); force != "" && force != "0" {
		return true
	}
	return IsTerminal()
}
