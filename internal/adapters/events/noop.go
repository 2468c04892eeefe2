package events

import (
	"context"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/observability"
)

// LogPublisher only logs briefs. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) PublishBrief(ctx context.Context, runID domain.RunID, brief *domain.ProductionBrief) error {
	observability.LoggerFromContext(ctx).Debug("brief ready",
		"run_id", runID,
		"persona", brief.Persona,
		"recommendation", brief.Recommendation)
	return nil
}
