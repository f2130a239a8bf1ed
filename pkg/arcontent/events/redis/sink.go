// Package redis publishes lifecycle events to a Redis stream.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-ar/pkg/arcontent"
)

// Config options for the stream sink
type Config struct {
	Stream string // stream key, default "simple-ar:events"
	MaxLen int64  // approximate stream cap, default 10000
}

// Sink appends every event to a stream with XADD.
type Sink struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

var _ arcontent.EventSink = (*Sink)(nil)

func New(client redis.Cmdable, cfg Config) (*Sink, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = "simple-ar:events"
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &Sink{client: client, stream: stream, maxLen: maxLen}, nil
}

func (s *Sink) Publish(ctx context.Context, event arcontent.Event) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_id":    event.ID,
			"type":        string(event.Type),
			"entity_kind": string(event.EntityKind),
			"entity_id":   strconv.FormatInt(event.EntityID, 10),
			"name":        event.Name,
			"occurred_at": event.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
