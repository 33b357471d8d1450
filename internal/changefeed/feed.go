package changefeed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/nerrad567/microdb/internal/infrastructure/mqtt"
	"github.com/nerrad567/microdb/internal/table"
)

// ErrInvalidChange is returned when a payload is not a change message.
var ErrInvalidChange = errors.New("changefeed: invalid change payload")

// Publisher is the subset of *mqtt.Client a Feed needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Subscriber is the subset of *mqtt.Client Watch needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger is the logging interface used by the feed.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Feed publishes the changes of one database.
type Feed struct {
	client   Publisher
	database string
	qos      byte
	logger   Logger

	published atomic.Int64
	failed    atomic.Int64
}

// New creates a feed publishing changes of database through client.
func New(client Publisher, database string, qos byte) *Feed {
	return &Feed{
		client:   client,
		database: database,
		qos:      qos,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for publish failures.
func (f *Feed) SetLogger(l Logger) {
	f.logger = l
}

// PublishChange encodes and publishes c. It implements table.ChangePublisher.
func (f *Feed) PublishChange(c table.Change) {
	topic := mqtt.Topics{}.Change(f.database, c.Table, string(c.Op))

	payload, err := Encode(c)
	if err == nil {
		err = f.client.Publish(topic, payload, f.qos, false)
	}
	if err != nil {
		f.failed.Add(1)
		f.logger.Warn("change not published",
			"topic", topic,
			"change_id", c.ID,
			"error", err,
		)
		return
	}
	f.published.Add(1)
	f.logger.Debug("change published", "topic", topic, "change_id", c.ID)
}

// Published returns the number of changes delivered to the broker.
func (f *Feed) Published() int64 { return f.published.Load() }

// Failed returns the number of changes that could not be published.
func (f *Feed) Failed() int64 { return f.failed.Load() }

// Encode renders c as the JSON change message.
func Encode(c table.Change) ([]byte, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding change %s: %w", c.ID, err)
	}
	return b, nil
}

// Decode parses a change message.
// Numbers decode as json.Number and values keep their JSON form; use the
// table schema's Column.Normalize to recover typed values.
func Decode(payload []byte) (table.Change, error) {
	var c table.Change
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&c); err != nil {
		return table.Change{}, fmt.Errorf("%w: %w", ErrInvalidChange, err)
	}
	if c.Table == "" || c.Op == "" {
		return table.Change{}, fmt.Errorf("%w: missing table or op", ErrInvalidChange)
	}
	return c, nil
}

// Watch subscribes to the changes of database (one table when tableName is
// not empty) and calls fn for each decoded change until ctx is done.
// Undecodable messages are returned to the MQTT client as handler errors
// and skipped.
func Watch(ctx context.Context, sub Subscriber, database, tableName string, qos byte, fn func(table.Change)) error {
	topic := mqtt.Topics{}.DatabaseChanges(database)
	if tableName != "" {
		topic = mqtt.Topics{}.TableChanges(database, tableName)
	}

	err := sub.Subscribe(topic, qos, func(_ string, payload []byte) error {
		c, err := Decode(payload)
		if err != nil {
			return err
		}
		fn(c)
		return nil
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", topic, err)
	}

	<-ctx.Done()
	if err := sub.Unsubscribe(topic); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
		return fmt.Errorf("unwatching %s: %w", topic, err)
	}
	return nil
}
