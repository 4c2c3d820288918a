package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/cart"
)

// LogNotifier writes every event to the logger at debug level.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	n.Logger.Debug().
		Str("event_id", ev.ID).
		Str("topic", ev.Topic).
		Str("aggregate_id", ev.AggregateID).
		RawJSON("payload", ev.Payload).
		Msg("domain event")
	return nil
}

type cartPayload struct {
	Version uint64 `json:"version"`
	Lines   int    `json:"lines"`
	Items   int    `json:"items"`
	Total   string `json:"total"`
}

// CartObserver returns a cart observer that emits cart.updated (or
// cart.cleared once the cart is empty) for the session. Emission failures
// are logged and never reach the mutating caller.
func CartObserver(bus *Bus, sessionID string, logger zerolog.Logger) cart.Observer {
	return func(ctx context.Context, snap cart.Snapshot) {
		if bus == nil {
			return
		}
		topic := TopicCartUpdated
		if len(snap.Lines) == 0 {
			topic = TopicCartCleared
		}
		items := 0
		for _, l := range snap.Lines {
			items += l.Quantity
		}
		payload := cartPayload{Version: snap.Version, Lines: len(snap.Lines), Items: items, Total: snap.Total().String()}
		if _, err := bus.Emit(ctx, topic, sessionID, payload); err != nil {
			logger.Warn().Err(err).Str("session_id", sessionID).Str("topic", topic).Msg("cart event not emitted")
		}
	}
}
