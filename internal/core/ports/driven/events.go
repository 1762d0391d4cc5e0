package driven

import "github.com/custodia-labs/ksef-desk/internal/core/domain"

// EventPublisher broadcasts progress events. Delivery is best-effort and
// Publish never fails from the caller's point of view.
type EventPublisher interface {
	Publish(eventType domain.EventType, payload any)
}
