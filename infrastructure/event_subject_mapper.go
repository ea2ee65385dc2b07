package infrastructure

import (
	"fmt"

	"girinhas/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeAccountCreated:
		return "accounts.created"
	case events.EventTypeBalanceChange:
		return "accounts.balance_changed"
	case events.EventTypeItemStateChange:
		return "items.state_changed"
	case events.EventTypeReservationCreated:
		return "reservations.created"
	case events.EventTypeReservationResolved:
		return "reservations.resolved"
	case events.EventTypeQueueJoined:
		return "queue.joined"
	case events.EventTypeQueueLeft:
		return "queue.left"
	case events.EventTypeQueuePromoted:
		return "queue.promoted"
	case events.EventTypeLotsForfeited:
		return "ledger.lots_forfeited"
	default:
		// Fallback for unknown event types
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"accounts.created",
		"accounts.balance_changed",
		"items.state_changed",
		"reservations.created",
		"reservations.resolved",
		"queue.joined",
		"queue.left",
		"queue.promoted",
		"ledger.lots_forfeited",
	}
}
