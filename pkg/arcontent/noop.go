package arcontent

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// Publish does nothing and returns nil
func (n *NoopEventSink) Publish(ctx context.Context, event Event) error {
	return nil
}

// LoggingEventSink writes every event to a slog logger.
// Useful for development and debugging
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

// Publish logs the event
func (l *LoggingEventSink) Publish(ctx context.Context, event Event) error {
	l.logger.InfoContext(ctx, "event",
		"id", event.ID,
		"type", event.Type,
		"kind", event.EntityKind,
		"entity_id", event.EntityID,
		"name", event.Name,
	)
	return nil
}

// MultiEventSink fans an event out to several sinks. Every sink is called; the
// first error is returned.
type MultiEventSink []EventSink

// Publish delivers event to each sink in order
func (m MultiEventSink) Publish(ctx context.Context, event Event) error {
	var first error
	for _, sink := range m {
		if err := sink.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
