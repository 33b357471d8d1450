package table

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/microdb/internal/infrastructure/database"
	"github.com/nerrad567/microdb/internal/schema"
	"github.com/nerrad567/microdb/internal/trigger"
)

// Change describes one committed mutation.
type Change struct {
	ID     uuid.UUID         `json:"id"`
	Table  string            `json:"table"`
	Op     trigger.Operation `json:"op"`
	Key    any               `json:"key"`
	Record *schema.Record    `json:"record"`
	At     time.Time         `json:"at"`
}

// ChangePublisher receives committed changes.
// PublishChange is called after the transaction commits and must not
// block for long; failures are the publisher's to handle.
type ChangePublisher interface {
	PublishChange(c Change)
}

// Observer receives the outcome of every table operation.
type Observer interface {
	ObserveOperation(table, op string, duration time.Duration, err error)
}

// publish queues a change for delivery once the surrounding transaction
// commits. Nothing is published for rolled back work.
func (t *Table) publish(ctx context.Context, op trigger.Operation, key any, rec *schema.Record) {
	if t.publisher == nil {
		return
	}
	c := Change{
		ID:     uuid.New(),
		Table:  t.Name(),
		Op:     op,
		Key:    key,
		Record: rec.Clone(),
		At:     time.Now().UTC(),
	}
	p := t.publisher
	database.AfterCommit(ctx, func() { p.PublishChange(c) })
}

func (t *Table) observe(op string, start time.Time, err error) {
	if t.observer != nil {
		t.observer.ObserveOperation(t.Name(), op, time.Since(start), err)
	}
}
