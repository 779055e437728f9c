package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Alexander-Kershaw/JANUS/internal/config"
	"github.com/Alexander-Kershaw/JANUS/internal/ui"
)

var (
	jsonOutput bool
	noColor    bool

	cfg    *config.Config
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

var rootCmd = &cobra.Command{
	Use:          "janus <command>",
	Short:        "Batch pipeline for the JANUS subscription warehouse",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "bronze", Title: "Bronze:"},
		&cobra.Group{ID: "silver", Title: "Silver:"},
		&cobra.Group{ID: "model", Title: "Model:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Bronze
	rootCmd.AddCommand(bronzeCmd)

	// Silver
	rootCmd.AddCommand(silverCmd)

	// Model
	rootCmd.AddCommand(churnCmd)

	// System
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
