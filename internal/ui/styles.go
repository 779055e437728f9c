// Package ui styles terminal output for the janus CLI.
package ui

import "fmt"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorOK     = 114 // green
	colorWarn   = 179 // amber
	colorFail   = 167 // red
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(colorCmd, s) }

// RenderOK returns s in green.
func RenderOK(s string) string { return render(colorOK, s) }

// RenderWarn returns s in amber.
func RenderWarn(s string) string { return render(colorWarn, s) }

// RenderFail returns s in red.
func RenderFail(s string) string { return render(colorFail, s) }

// LateRate styles a late-arrival percentage: green below warnPct, amber
// below failPct, red otherwise. A nil rate renders as "n/a".
func LateRate(pct *float64, warnPct, failPct float64) string {
	if pct == nil {
		return RenderMuted("n/a")
	}
	s := fmt.Sprintf("%.2f%%", *pct)
	switch {
	case *pct < warnPct:
		return RenderOK(s)
	case *pct < failPct:
		return RenderWarn(s)
	}
	return RenderFail(s)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// SetColor enables or disables color output.
func SetColor(enabled bool) {
	noColor = !enabled
}
