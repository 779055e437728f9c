package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Alexander-Kershaw/JANUS/internal/ui"
)

// helpRule styles every match of pattern in cobra's plain help text.
type helpRule struct {
	pattern *regexp.Regexp
	style   func(groups []string) string
}

var helpRules = []helpRule{
	// Section headers such as "Bronze:" or "Flags:". "Usage:" stays plain.
	{
		pattern: regexp.MustCompile(`(?m)^([A-Z][^\n]*:)[ \t]*$`),
		style: func(g []string) string {
			if g[1] == "Usage:" {
				return g[0]
			}
			return ui.RenderAccent(g[1])
		},
	},
	// Command names: two-space indent, the name, then the column gap.
	{
		pattern: regexp.MustCompile(`(?m)^(  )([a-z][\w-]*)(  )`),
		style:   func(g []string) string { return g[1] + ui.RenderCommand(g[2]) + g[3] },
	},
	// Flag value types, e.g. "--batch-size int".
	{
		pattern: regexp.MustCompile(`(--[\w-]+ )(string|int|duration)\b`),
		style:   func(g []string) string { return g[1] + ui.RenderMuted(g[2]) },
	},
	// Defaults, e.g. (default "data/raw/events") or (default 500).
	{
		pattern: regexp.MustCompile(`\(default [^)]*\)`),
		style:   func(g []string) string { return ui.RenderMuted(g[0]) },
	},
}

// colorizedHelpFunc returns a cobra help function that styles the default
// help text when the terminal supports color.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() || noColor {
			_ = cmd.Usage()
			return
		}

		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	for _, r := range helpRules {
		s = r.pattern.ReplaceAllStringFunc(s, func(match string) string {
			return r.style(r.pattern.FindStringSubmatch(match))
		})
	}
	return strings.TrimRight(s, "\n") + "\n"
}
