package interfaces

import (
	"context"
	"time"

	"girinhas/domain/entities"
	"girinhas/domain/events"
)

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the surrounding database
// transaction commits, then flushes them to the real publisher
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes all buffered events; called after commit
	Flush(ctx context.Context) error

	// Discard drops buffered events; called on rollback
	Discard()
}

// LedgerService owns all balance mutation. No other component writes
// balances, lots, holds or transaction rows.
type LedgerService interface {
	// Hold earmarks amount against the account's oldest lots without
	// moving money. Fails with an insufficient-funds error when the
	// spendable balance cannot honor it.
	Hold(ctx context.Context, accountID, amount int64) (*entities.Hold, error)

	// Settle converts a hold into a debit from its account and a new
	// sale-proceeds lot for the recipient, appending a paired transaction
	// row for each side.
	Settle(ctx context.Context, holdID, recipientAccountID int64, itemID *int64) (*entities.TransferReceipt, error)

	// Release cancels a hold, restoring spendable balance. No transaction
	// row is written; the hold never became real money movement.
	Release(ctx context.Context, holdID int64) error

	// Credit funds an account with a new lot and appends its transaction row
	Credit(ctx context.Context, accountID, amount int64, kind entities.TransactionKind) (*entities.Lot, error)

	// Transfer atomically moves spendable funds between two accounts
	Transfer(ctx context.Context, fromAccountID, toAccountID, amount int64) (*entities.TransferReceipt, error)

	// SweepExpiredLots forfeits the account's expired, unheld funds and
	// returns the total forfeited. Funds backing active holds are left
	// until the hold resolves.
	SweepExpiredLots(ctx context.Context, accountID int64, now time.Time) (int64, error)

	// Summary returns the account's balance, spendable balance and
	// upcoming expirations
	Summary(ctx context.Context, accountID int64) (*entities.WalletSummary, error)
}

// ClaimResult is the outcome of a claim: a reservation when the item was
// free, or a queue entry when it was contested. Exactly one field is set.
type ClaimResult struct {
	Reservation *entities.Reservation
	QueueEntry  *entities.QueueEntry
}

// ReservationService orchestrates the item state machine, the wait queue and
// the ledger hold lifecycle
type ReservationService interface {
	// Claim requests an item for the claimant at the offered amount
	Claim(ctx context.Context, itemID, claimantID, amount int64) (*ClaimResult, error)

	// Cancel resolves a pending reservation as cancelled and promotes the
	// queue. Idempotent: a second cancel is a no-op returning false.
	Cancel(ctx context.Context, reservationID, actorID int64) (bool, error)

	// CancelExpired resolves a pending reservation past its TTL exactly
	// like an owner cancel. Returns false when another operation resolved
	// it first.
	CancelExpired(ctx context.Context, reservationID int64, now time.Time) (bool, error)

	// Confirm settles a pending reservation against the supplied
	// confirmation code. Only the item owner may confirm.
	Confirm(ctx context.Context, reservationID int64, suppliedCode string, actorID int64) (*entities.TransferReceipt, error)

	// QueuePosition returns the account's place in line, 0 when not queued
	QueuePosition(ctx context.Context, itemID, accountID int64) (int, error)

	// LeaveQueue withdraws a queued claim
	LeaveQueue(ctx context.Context, itemID, accountID int64) (bool, error)
}
