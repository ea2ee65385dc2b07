package application

import (
	"context"

	"girinhas/domain/interfaces"
)

// UnitOfWork represents one database transaction with access to all
// repositories bound to it. Events published through EventBus are buffered
// and only reach the outside world after Commit.
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes buffered events
	Commit() error

	// Rollback rolls back the transaction and discards buffered events
	Rollback() error

	// Accounts returns the account repository bound to this transaction
	Accounts() interfaces.AccountRepository

	// Lots returns the lot repository bound to this transaction
	Lots() interfaces.LotRepository

	// Holds returns the hold repository bound to this transaction
	Holds() interfaces.HoldRepository

	// Transactions returns the transaction log repository bound to this transaction
	Transactions() interfaces.TransactionRepository

	// Items returns the item repository bound to this transaction
	Items() interfaces.ItemRepository

	// Reservations returns the reservation repository bound to this transaction
	Reservations() interfaces.ReservationRepository

	// Queue returns the queue repository bound to this transaction
	Queue() interfaces.QueueRepository

	// EventBus returns the transactional event publisher for this unit of work
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory creates UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create returns a fresh unit of work. Begin must be called before use.
	Create() UnitOfWork
}

// QueuePositionCache caches queue position lookups so polling does not hit
// the database on every request. The cache is advisory: a miss falls through
// to the database and entries expire on their own.
type QueuePositionCache interface {
	// Get returns the cached position and whether it was present
	Get(ctx context.Context, itemID, accountID int64) (int, bool)

	// Set stores a position
	Set(ctx context.Context, itemID, accountID int64, position int)

	// Invalidate drops the cached position for one account on one item
	Invalidate(ctx context.Context, itemID, accountID int64)
}
