package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by microdb.
const (
	MeasurementSync      = "schema_sync"
	MeasurementOperation = "crud_operation"
)

// Outcome tag values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// SyncStats describes one table synchronization run.
type SyncStats struct {
	Table      string
	Dialect    string
	Statements int
	Drift      int
	Created    bool
	Duration   time.Duration
	Failed     bool
}

// SyncPoint builds the schema_sync point for s.
//
// Tags: table, dialect, outcome. Fields: statements, drift, created,
// duration_ms.
func SyncPoint(s SyncStats, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementSync,
		map[string]string{
			"table":   s.Table,
			"dialect": s.Dialect,
			"outcome": outcome(s.Failed),
		},
		map[string]any{
			"statements":  s.Statements,
			"drift":       s.Drift,
			"created":     s.Created,
			"duration_ms": milliseconds(s.Duration),
		},
		ts,
	)
}

// OperationPoint builds the crud_operation point for one table operation.
//
// Tags: table, op, outcome. Field: duration_ms.
func OperationPoint(table, op string, d time.Duration, failed bool, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementOperation,
		map[string]string{
			"table":   table,
			"op":      op,
			"outcome": outcome(failed),
		},
		map[string]any{
			"duration_ms": milliseconds(d),
		},
		ts,
	)
}

// WriteSync records a synchronization run.
// The write is non-blocking; data is batched and sent asynchronously.
func (c *Client) WriteSync(s SyncStats) {
	c.write(SyncPoint(s, time.Now()))
}

// WriteOperation records one table operation.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Example:
//
//	client.WriteOperation("book", "insert", 3*time.Millisecond, false)
func (c *Client) WriteOperation(table, op string, d time.Duration, failed bool) {
	c.write(OperationPoint(table, op, d, failed, time.Now()))
}

// WritePoint writes a custom point with the current timestamp.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	c.write(write.NewPoint(measurement, tags, fields, ts))
}

func (c *Client) write(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}

func outcome(failed bool) string {
	if failed {
		return OutcomeError
	}
	return OutcomeOK
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
