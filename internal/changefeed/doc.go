// Package changefeed publishes committed table changes over MQTT and
// decodes them on the watching side.
//
// A Feed implements table.ChangePublisher. Each change is encoded as JSON
// and published, not retained, on
//
//	microdb/{database}/change/{table}/{op}
//
// Publishing happens after commit. A failed publish is logged and counted;
// it never affects the committed transaction.
package changefeed
