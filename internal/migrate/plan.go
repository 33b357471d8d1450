package migrate

import (
	"time"

	"github.com/google/uuid"
)

// Plan records what one synchronization run did to one table.
// Plans are for observability only; they are never persisted or replayed.
type Plan struct {
	// RunID identifies the synchronization run in logs and metrics.
	RunID uuid.UUID

	Table   string
	Dialect string

	// Created is true when the table did not exist and was created.
	Created bool

	// Statements are the DDL statements executed, in order.
	Statements []string

	// Drift lists disagreements left uncorrected.
	Drift []Drift

	Started  time.Time
	Duration time.Duration
}

func newPlan(table, dialect string) *Plan {
	return &Plan{
		RunID:   uuid.New(),
		Table:   table,
		Dialect: dialect,
		Started: time.Now(),
	}
}

// Empty reports whether the run executed no statements.
func (p *Plan) Empty() bool {
	return len(p.Statements) == 0
}

// Warning returns a DriftError when the run left drift unresolved, nil
// otherwise. Drift is not fatal: the live table remains usable.
func (p *Plan) Warning() error {
	if len(p.Drift) == 0 {
		return nil
	}
	return &DriftError{Table: p.Table, Drift: p.Drift}
}
