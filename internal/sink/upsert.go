package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/daysync/internal/models"
)

// Plan is the reconciled write set for one batch: rows whose date already
// exists become in-place updates, the rest become appends. Both slices
// preserve the batch's own ordering.
type Plan struct {
	Updates []RowUpdate
	Appends [][]string
}

// BuildPlan diffs a batch against the existing row listing. When the store
// holds duplicate rows for one date, the first occurrence wins and receives
// the update; later duplicates are left untouched.
func BuildPlan(existing []KeyedRow, batch []models.DailyMetrics) Plan {
	positions := make(map[string]int, len(existing))
	for _, row := range existing {
		if _, seen := positions[row.Date]; !seen {
			positions[row.Date] = row.Position
		}
	}

	var plan Plan
	for i := range batch {
		cells := batch[i].Row()
		if pos, ok := positions[batch[i].DateString()]; ok {
			plan.Updates = append(plan.Updates, RowUpdate{Position: pos, Cells: cells})
		} else {
			plan.Appends = append(plan.Appends, cells)
		}
	}
	return plan
}

// Upsert reads the store once, builds the plan, and issues at most one
// batched write call. Re-running the same batch against the same store
// converges: the second pass turns every append into an update of identical
// content.
func Upsert(ctx context.Context, s Sink, batch []models.DailyMetrics, log *slog.Logger) (Plan, error) {
	existing, err := s.ListRows(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("listing existing rows: %w", err)
	}

	plan := BuildPlan(existing, batch)
	if len(plan.Updates) == 0 && len(plan.Appends) == 0 {
		log.Info("nothing to write")
		return plan, nil
	}

	if err := s.WriteRows(ctx, plan.Updates, plan.Appends); err != nil {
		return plan, fmt.Errorf("writing rows: %w", err)
	}
	log.Info("rows written", "updated", len(plan.Updates), "appended", len(plan.Appends))
	return plan, nil
}
