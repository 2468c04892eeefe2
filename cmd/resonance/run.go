package main

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/llm"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/agentflow"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

var runFlags struct {
	image   string
	product string
	price   string
	goal    string
	channel string
	asJSON  bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Test one creative against every persona and produce briefs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(runFlags.image)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		img, err := llm.PrepareImage(data, mime.TypeByExtension(strings.ToLower(filepath.Ext(runFlags.image))))
		if err != nil {
			return err
		}

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ws := a.workspaces.Workspace("cli")
		report, err := a.orchestrator.Run(ctx, ws, agentflow.RunInput{
			Image: img,
			Parameters: domain.Parameters{
				Product: runFlags.product,
				Price:   runFlags.price,
				Goal:    runFlags.goal,
				Channel: runFlags.channel,
			},
		})
		if err != nil {
			return err
		}
		if report.Succeeded() == 0 {
			return fmt.Errorf("every persona failed: %w", report.FirstError())
		}

		brief := a.briefs.Generate(ctx, ws, report.Run)

		out := cmd.OutOrStdout()
		if runFlags.asJSON {
			return writeRunJSON(out, report, brief)
		}
		writeRunText(out, report, brief)
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.image, "image", "", "creative image (PNG or JPEG)")
	f.StringVar(&runFlags.product, "product", "", "product name")
	f.StringVar(&runFlags.price, "price", "", "price point")
	f.StringVar(&runFlags.goal, "goal", "", "campaign goal")
	f.StringVar(&runFlags.channel, "channel", "", "placement channel")
	f.BoolVar(&runFlags.asJSON, "json", false, "print the full report as JSON")
	_ = runCmd.MarkFlagRequired("image")
}

func writeRunText(w io.Writer, report *domain.RunReport, briefs *domain.BriefReport) {
	fmt.Fprintf(w, "Run %s (saved=%t)\n\n", report.Run.ID, report.Saved)

	for _, name := range sortedOutcomeNames(report) {
		o := report.Outcomes[name]
		if o.Err != nil {
			fmt.Fprintf(w, "%-12s %-12s %v\n", name, o.State, o.Err)
			continue
		}
		b := briefs.Outcomes[name]
		switch {
		case b == nil:
			fmt.Fprintf(w, "%-12s %s\n", name, o.State)
		case b.Err != nil:
			fmt.Fprintf(w, "%-12s %-12s %v\n", name, b.State, b.Err)
		case b.Brief.Skip != nil:
			fmt.Fprintf(w, "%-12s %-12s fit %d/10: %s (needs: %s)\n",
				name, b.State, b.Brief.FitScore, b.Brief.Skip.SkipReason, b.Brief.Skip.AlternativeNeeded)
		default:
			fmt.Fprintf(w, "%-12s %-12s fit %d/10, %s\n", name, b.State, b.Brief.FitScore, b.Brief.Recommendation)
		}
	}
	fmt.Fprintf(w, "\nformatting calls: %d\n", briefs.FormatCalls)
}

func writeRunJSON(w io.Writer, report *domain.RunReport, briefs *domain.BriefReport) error {
	type personaJSON struct {
		State  domain.PipelineState    `json:"state"`
		Error  string                  `json:"error,omitempty"`
		Result *domain.PersonaResult   `json:"result,omitempty"`
		Brief  *domain.ProductionBrief `json:"brief,omitempty"`
	}
	doc := struct {
		RunID       domain.RunID                       `json:"run_id"`
		Saved       bool                               `json:"saved"`
		FormatCalls int                                `json:"format_calls"`
		Personas    map[domain.PersonaName]personaJSON `json:"personas"`
	}{
		RunID:       report.Run.ID,
		Saved:       report.Saved,
		FormatCalls: briefs.FormatCalls,
		Personas:    make(map[domain.PersonaName]personaJSON, len(report.Outcomes)),
	}
	for name, o := range report.Outcomes {
		p := personaJSON{State: o.State, Result: o.Result}
		if o.Err != nil {
			p.Error = o.Err.Error()
		}
		if b := briefs.Outcomes[name]; b != nil {
			p.State = b.State
			p.Brief = b.Brief
			if b.Err != nil {
				p.Error = b.Err.Error()
			}
		}
		doc.Personas[name] = p
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func sortedOutcomeNames(report *domain.RunReport) []domain.PersonaName {
	names := make([]domain.PersonaName, 0, len(report.Outcomes))
	for n := range report.Outcomes {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
