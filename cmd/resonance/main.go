package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/config"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/observability"
)

var (
	// Global flags
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "resonance",
	Short: "Resonance - persona creative testing for Joyful Bites",
	Long: `Resonance shows a marketing creative to simulated customer personas,
turns their reactions into creative direction and a structured brief, and
produces production briefs only for the segments the creative actually fits.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		// stdout belongs to command output; logs go to stderr except in serve
		if cmd.Name() != serveCmd.Name() {
			observability.SetOutput(os.Stderr)
		}
		observability.SetLevel(cfg.LogLevel)
		if verbose {
			observability.SetLevel("debug")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, runCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
