package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor returns true when ANSI colors should be used on stdout.
// It respects NO_COLOR, CLICOLOR_FORCE, CLICOLOR, and TTY detection.
func ShouldUseColor() bool {
	return shouldUseColor(os.Getenv, func() bool {
		return term.IsTerminal(int(os.Stdout.Fd()))
	})
}

func shouldUseColor(getenv func(string) string, isTTY func() bool) bool {
	// https://no-color.org: any non-empty value disables color.
	if getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(getenv("CLICOLOR")) == "0" {
		return false
	}
	// Pipelines usually run under a scheduler with a dumb terminal.
	if getenv("TERM") == "dumb" {
		return false
	}
	return isTTY()
}
