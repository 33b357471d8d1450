package microdb

import (
	"time"

	"github.com/nerrad567/microdb/internal/infrastructure/influxdb"
	"github.com/nerrad567/microdb/internal/migrate"
)

// MetricsWriter is the subset of *influxdb.Client the metrics bridge needs.
type MetricsWriter interface {
	WriteSync(s influxdb.SyncStats)
	WriteOperation(table, op string, d time.Duration, failed bool)
}

// Metrics reports synchronization runs and table operations to InfluxDB.
// It implements migrate.Observer and table.Observer.
type Metrics struct {
	w MetricsWriter
}

// NewMetrics creates the bridge for w.
func NewMetrics(w MetricsWriter) *Metrics {
	return &Metrics{w: w}
}

// ObserveSync writes a schema_sync point for plan.
func (m *Metrics) ObserveSync(plan *migrate.Plan, err error) {
	if plan == nil {
		return
	}
	m.w.WriteSync(influxdb.SyncStats{
		Table:      plan.Table,
		Dialect:    plan.Dialect,
		Statements: len(plan.Statements),
		Drift:      len(plan.Drift),
		Created:    plan.Created,
		Duration:   plan.Duration,
		Failed:     err != nil,
	})
}

// ObserveOperation writes a crud_operation point.
func (m *Metrics) ObserveOperation(table, op string, d time.Duration, err error) {
	m.w.WriteOperation(table, op, d, err != nil)
}
