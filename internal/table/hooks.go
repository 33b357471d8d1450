package table

import (
	"context"
	"fmt"

	"github.com/nerrad567/microdb/internal/schema"
	"github.com/nerrad567/microdb/internal/trigger"
)

// HookPoint selects when a hook runs.
type HookPoint int

// Hook points.
const (
	BeforeInsert HookPoint = iota
	AfterInsert
	BeforeUpdate
	AfterUpdate
	BeforeDelete
	AfterDelete
)

// Phase is the half of a mutation a hook runs in.
type Phase string

// Phases.
const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
)

var hookPoints = map[HookPoint]struct {
	op    trigger.Operation
	phase Phase
}{
	BeforeInsert: {trigger.OpInsert, PhaseBefore},
	AfterInsert:  {trigger.OpInsert, PhaseAfter},
	BeforeUpdate: {trigger.OpUpdate, PhaseBefore},
	AfterUpdate:  {trigger.OpUpdate, PhaseAfter},
	BeforeDelete: {trigger.OpDelete, PhaseBefore},
	AfterDelete:  {trigger.OpDelete, PhaseAfter},
}

// String returns the hook point name, e.g. "before_insert".
func (p HookPoint) String() string {
	hp, ok := hookPoints[p]
	if !ok {
		return fmt.Sprintf("hookpoint(%d)", int(p))
	}
	return string(hp.phase) + "_" + string(hp.op)
}

func pointFor(op trigger.Operation, phase Phase) HookPoint {
	for p, hp := range hookPoints {
		if hp.op == op && hp.phase == phase {
			return p
		}
	}
	return -1
}

// Event is what a hook receives.
//
// Before hooks of insert and update may modify Record; the modified record
// is validated again and written. Old holds the stored row for update and
// delete, nil for insert.
type Event struct {
	Table  string
	Op     trigger.Operation
	Phase  Phase
	Record *schema.Record
	Old    *schema.Record
}

// HookFunc runs inside the mutation's transaction. The context carries the
// transaction and the trigger stack, so CRUD performed through it joins
// the same transaction and re-entering the same chain is suppressed.
// A returned error rolls the mutation back and is returned to the caller.
type HookFunc func(ctx context.Context, ev *Event) error

// On registers fn at point. Hooks run in registration order.
// Register hooks before the table is shared between goroutines.
func (t *Table) On(point HookPoint, fn HookFunc) {
	if _, ok := hookPoints[point]; !ok {
		panic(fmt.Sprintf("table: unknown hook point %d", int(point)))
	}
	t.hooks[point] = append(t.hooks[point], fn)
}

func (t *Table) runHooks(ctx context.Context, ev *Event) error {
	point := pointFor(ev.Op, ev.Phase)
	for i, fn := range t.hooks[point] {
		if err := fn(ctx, ev); err != nil {
			return fmt.Errorf("%s hook %d on %s: %w", point, i, t.Name(), err)
		}
	}
	return nil
}

func (t *Table) hasHooks(op trigger.Operation) bool {
	return len(t.hooks[pointFor(op, PhaseBefore)]) > 0 || len(t.hooks[pointFor(op, PhaseAfter)]) > 0
}
