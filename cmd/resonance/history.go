package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyFlags struct {
	limit int
	out   string
	yes   bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect, export or clear saved runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.history.List(cmd.Context(), historyFlags.limit)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTIMESTAMP\tPRODUCT\tCHANNEL\tPERSONAS\tERRORS")
		for _, run := range runs {
			names := make([]string, 0, len(run.Results))
			for _, n := range run.PersonaNames() {
				names = append(names, string(n))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
				run.ID,
				run.Timestamp.Local().Format(time.DateTime),
				run.Parameters.Product,
				run.Parameters.Channel,
				strings.Join(names, ", "),
				len(run.Failures))
		}
		return tw.Flush()
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run history as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		w := cmd.OutOrStdout()
		if historyFlags.out != "" && historyFlags.out != "-" {
			f, err := os.Create(historyFlags.out)
			if err != nil {
				return fmt.Errorf("create %s: %w", historyFlags.out, err)
			}
			if err := a.history.ExportCSV(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		}
		return a.history.ExportCSV(cmd.Context(), w)
	},
}

var errNotConfirmed = errors.New("refusing to clear history without --yes")

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved run",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !historyFlags.yes {
			return errNotConfirmed
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.history.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
		return nil
	},
}

func init() {
	historyListCmd.Flags().IntVar(&historyFlags.limit, "limit", 0, "show only the newest N runs")
	historyExportCmd.Flags().StringVarP(&historyFlags.out, "out", "o", "", "output file (default stdout)")
	historyClearCmd.Flags().BoolVar(&historyFlags.yes, "yes", false, "confirm deletion")

	historyCmd.AddCommand(historyListCmd, historyExportCmd, historyClearCmd)
}
