package events

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream events are appended to.
const DefaultStream = "storefront:events"

// RedisStream appends events to a capped Redis stream. The stream entry id
// replaces the generated event id.
type RedisStream struct {
	R      *redis.Client
	Stream string
	MaxLen int64
}

// Append implements EventStore.
func (s *RedisStream) Append(ctx context.Context, ev Event) (Event, error) {
	stream := strings.TrimSpace(s.Stream)
	if stream == "" {
		stream = DefaultStream
	}
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"event_id":     ev.ID,
			"topic":        ev.Topic,
			"aggregate_id": ev.AggregateID,
			"payload":      string(ev.Payload),
			"occurred_at":  ev.OccurredAt.Format(timeLayout),
		},
	}
	if s.MaxLen > 0 {
		args.MaxLen = s.MaxLen
		args.Approx = true
	}
	id, err := s.R.XAdd(ctx, args).Result()
	if err != nil {
		return Event{}, err
	}
	ev.ID = id
	return ev, nil
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"
