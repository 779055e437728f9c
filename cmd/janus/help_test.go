package main

import (
	"strings"
	"testing"

	"github.com/Alexander-Kershaw/JANUS/internal/ui"
)

func TestColorizeHelp(t *testing.T) {
	ui.SetColor(true)
	t.Cleanup(func() { ui.SetColor(true) })

	in := strings.Join([]string{
		"Usage:",
		"  janus bronze events [flags]",
		"",
		"Bronze:",
		"  bronze      Load raw files into the bronze layer",
		"",
		"Flags:",
		"      --batch-size int   rows per insert statement (default 500)",
		"      --dir string       directory holding the raw files (default \"data/raw/events\")",
		"",
	}, "\n")
	out := colorizeHelp(in)

	for _, want := range []string{
		"Usage:\n",
		ui.RenderAccent("Bronze:"),
		ui.RenderAccent("Flags:"),
		"  " + ui.RenderCommand("bronze") + "  ",
		"--batch-size " + ui.RenderMuted("int"),
		ui.RenderMuted("(default 500)"),
		ui.RenderMuted(`(default "data/raw/events")`),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("colorized help missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, ui.RenderAccent("Usage:")) {
		t.Error("Usage: header should stay plain")
	}
}

func TestColorizeHelp_NoColor(t *testing.T) {
	ui.SetColor(false)
	t.Cleanup(func() { ui.SetColor(true) })

	in := "Flags:\n      --tail int   number of trailing folds to print (default 5)\n"
	if out := colorizeHelp(in); out != in {
		t.Fatalf("colorizeHelp without color changed text:\n%q", out)
	}
}
