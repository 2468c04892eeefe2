// Package history reads, exports and clears saved pipeline runs.
package history

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/observability"
)

var baseColumns = []string{"Timestamp", "Product", "Price", "Goal", "Channel"}

// Service holds the logic of reading run history.
type Service struct {
	store domain.HistoryStore
}

func NewService(store domain.HistoryStore) *Service {
	return &Service{store: store}
}

// List returns saved runs, newest first. If limit > 0 only the newest
// `limit` runs are returned.
func (s *Service) List(ctx context.Context, limit int) ([]*domain.PipelineRun, error) {
	runs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *Service) Get(ctx context.Context, id domain.RunID) (*domain.PipelineRun, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to clear history", "error", err)
		return err
	}
	return nil
}

// ExportCSV writes one row per run: the run parameters, then a
// "<Persona>_Generated" column for every persona that appears in any run,
// set to "Yes" when that run produced a result for the persona.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	runs, err := s.store.List(ctx)
	if err != nil {
		return err
	}

	personas := personaColumns(runs)

	cw := csv.NewWriter(w)
	header := append([]string{}, baseColumns...)
	for _, p := range personas {
		header = append(header, string(p)+"_Generated")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, run := range runs {
		row := []string{
			run.Timestamp.UTC().Format(time.RFC3339),
			run.Parameters.Product,
			run.Parameters.Price,
			run.Parameters.Goal,
			run.Parameters.Channel,
		}
		for _, p := range personas {
			v := ""
			if _, ok := run.Results[p]; ok {
				v = "Yes"
			}
			row = append(row, v)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	observability.LoggerFromContext(ctx).Info("history exported", "runs", len(runs), "personas", len(personas))
	return nil
}

func personaColumns(runs []*domain.PipelineRun) []domain.PersonaName {
	seen := make(map[domain.PersonaName]struct{})
	for _, run := range runs {
		for name := range run.Results {
			seen[name] = struct{}{}
		}
	}
	out := make([]domain.PersonaName, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
