package events

// Topics of the events the storefront emits.
const (
	TopicCartUpdated    = "cart.updated"
	TopicCartCleared    = "cart.cleared"
	TopicOrderSubmitted = "order.submitted"
	TopicOrderFailed    = "order.failed"
)

var knownTopics = map[string]struct{}{
	TopicCartUpdated:    {},
	TopicCartCleared:    {},
	TopicOrderSubmitted: {},
	TopicOrderFailed:    {},
}

// Known reports whether topic is one the storefront emits.
func Known(topic string) bool {
	_, ok := knownTopics[topic]
	return ok
}
