// Package eventbus implements the Sink<Event> capability from spec Design
// Notes §9: a replacement for the source's framework-specific signal/slot
// progress notifications, used here purely as an ambient observability
// fan-out (batch-completed / snapshot-written notices), not a core
// retrieval-path dependency.
package eventbus

import "time"

// Kind names the fired event.
type Kind string

const (
	KindBatchIndexed    Kind = "batch_indexed"
	KindSnapshotWritten Kind = "snapshot_written"
	KindParserWarning   Kind = "parser_warning"
)

// Event is the payload delivered to a Sink.
type Event struct {
	Kind      Kind
	SessionID string
	BatchID   uint32
	Count     int
	Timestamp time.Time
}

// Sink publishes Events to an external system. Neither transport queues
// events: AMQPSink returns an error at once while it is not connected, and
// StompSink retries its connection a bounded number of times before
// returning the error to the caller.
type Sink interface {
	Publish(ev Event) error
	Close() error
}

// NopSink discards every event; used when eventbus.enable is false.
type NopSink struct{}

func (NopSink) Publish(Event) error { return nil }
func (NopSink) Close() error        { return nil }
