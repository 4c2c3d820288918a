package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a recorded domain event.
type Event struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// EventStore appends events to durable storage and may assign the final id.
type EventStore interface {
	Append(ctx context.Context, ev Event) (Event, error)
}

// Notifier reacts to emitted events (logs, metrics, push, ...).
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Bus records domain events and fans them out to notifiers. Without a
// store events are only fanned out.
type Bus struct {
	Store     EventStore
	Notifiers []Notifier
	Now       func() time.Time
}

// ErrUnknownTopic is returned by Emit for topics outside the storefront set.
var ErrUnknownTopic = errors.New("events: unknown topic")

// Emit stores the event, when a store is configured, and then hands it to
// every notifier in order. Notifier failures are joined into the returned
// error and do not stop the fan-out; the event is returned either way.
func (b *Bus) Emit(ctx context.Context, topic, aggregateID string, payload any) (Event, error) {
	if b == nil {
		return Event{}, errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if !Known(topic) {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	aggregateID = strings.TrimSpace(aggregateID)
	if aggregateID == "" {
		return Event{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode payload: %w", err)
	}
	now := b.Now
	if now == nil {
		now = time.Now
	}
	ev := Event{
		ID:          uuid.NewString(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     encoded,
		OccurredAt:  now().UTC(),
	}
	if b.Store != nil {
		if ev, err = b.Store.Append(ctx, ev); err != nil {
			return Event{}, fmt.Errorf("events: persist event: %w", err)
		}
	}
	var errs []error
	for _, n := range b.Notifiers {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("events: notify %s: %w", ev.Topic, err))
		}
	}
	return ev, errors.Join(errs...)
}

var emptyObject = json.RawMessage("{}")

// encodePayload marshals payload, passing pre-encoded JSON through after
// validation. Empty input becomes {}.
func encodePayload(payload any) (json.RawMessage, error) {
	var raw []byte
	switch v := payload.(type) {
	case nil:
		return emptyObject, nil
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	case string:
		raw = []byte(strings.TrimSpace(v))
	default:
		return json.Marshal(v)
	}
	if len(raw) == 0 {
		return emptyObject, nil
	}
	if !json.Valid(raw) {
		return nil, errors.New("payload is not valid json")
	}
	return append(json.RawMessage(nil), raw...), nil
}
