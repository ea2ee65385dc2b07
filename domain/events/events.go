package events

import "girinhas/domain/entities"

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeAccountCreated      EventType = "account_created"
	EventTypeBalanceChange       EventType = "balance_change"
	EventTypeItemStateChange     EventType = "item_state_change"
	EventTypeReservationCreated  EventType = "reservation_created"
	EventTypeReservationResolved EventType = "reservation_resolved"
	EventTypeQueueJoined         EventType = "queue_joined"
	EventTypeQueueLeft           EventType = "queue_left"
	EventTypeQueuePromoted       EventType = "queue_promoted"
	EventTypeLotsForfeited       EventType = "lots_forfeited"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// AccountCreatedEvent represents a new account registration
type AccountCreatedEvent struct {
	AccountID   int64
	Username    string
	SignupBonus int64
}

func (e AccountCreatedEvent) Type() EventType {
	return EventTypeAccountCreated
}

// BalanceChangeEvent represents a committed balance movement
type BalanceChangeEvent struct {
	AccountID       int64
	OldBalance      int64
	NewBalance      int64
	TransactionKind entities.TransactionKind
	ChangeAmount    int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// ItemStateChangeEvent represents an item availability transition
type ItemStateChangeEvent struct {
	ItemID    int64
	OldStatus entities.ItemStatus
	NewStatus entities.ItemStatus
}

func (e ItemStateChangeEvent) Type() EventType {
	return EventTypeItemStateChange
}

// ReservationCreatedEvent represents a new pending reservation
type ReservationCreatedEvent struct {
	ReservationID     int64
	ItemID            int64
	ClaimantAccountID int64
	OwnerAccountID    int64
	AmountHeld        int64
}

func (e ReservationCreatedEvent) Type() EventType {
	return EventTypeReservationCreated
}

// ReservationResolvedEvent represents a reservation reaching a terminal state
type ReservationResolvedEvent struct {
	ReservationID     int64
	ItemID            int64
	ClaimantAccountID int64
	Outcome           entities.ReservationStatus
}

func (e ReservationResolvedEvent) Type() EventType {
	return EventTypeReservationResolved
}

// QueueJoinedEvent represents an account joining a contested item's queue
type QueueJoinedEvent struct {
	ItemID    int64
	AccountID int64
	Position  int
}

func (e QueueJoinedEvent) Type() EventType {
	return EventTypeQueueJoined
}

// QueueLeftEvent represents a voluntary withdrawal from a queue
type QueueLeftEvent struct {
	ItemID    int64
	AccountID int64
}

func (e QueueLeftEvent) Type() EventType {
	return EventTypeQueueLeft
}

// QueuePromotedEvent represents the queue head becoming the active claimant
type QueuePromotedEvent struct {
	ItemID        int64
	AccountID     int64
	ReservationID int64
}

func (e QueuePromotedEvent) Type() EventType {
	return EventTypeQueuePromoted
}

// LotsForfeitedEvent represents expired funds being swept from an account
type LotsForfeitedEvent struct {
	AccountID int64
	Amount    int64
}

func (e LotsForfeitedEvent) Type() EventType {
	return EventTypeLotsForfeited
}
