package service

// Order lifecycle events published after commit.
const (
	EventOrderCreated       = "order_created"
	EventOrderUpdated       = "order_updated"
	EventOrderStatusChanged = "order_status_changed"
	EventOrderDeleted       = "order_deleted"
)

// EventPublisher fans events out to connected clients. Publish must not
// block the caller.
type EventPublisher interface {
	Publish(event string, payload interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
