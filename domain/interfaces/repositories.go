package interfaces

import (
	"context"
	"time"

	"girinhas/domain/entities"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// Create creates a new account
	Create(ctx context.Context, username string) (*entities.Account, error)

	// GetByID retrieves an account with derived balance fields
	GetByID(ctx context.Context, id int64) (*entities.Account, error)

	// GetByIDForUpdate retrieves an account and locks its row for the
	// duration of the transaction. All balance mutations for an account
	// serialize on this lock.
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Account, error)

	// Deactivate marks an account inactive; accounts are never deleted
	Deactivate(ctx context.Context, id int64) error
}

// LotRepository defines the interface for currency lot data access
type LotRepository interface {
	// Create creates a new lot
	Create(ctx context.Context, lot *entities.Lot) error

	// GetSpendableByAccount returns lots with remaining funds ordered
	// earliest-expiring first (ties broken by id)
	GetSpendableByAccount(ctx context.Context, accountID int64) ([]*entities.Lot, error)

	// SetRemaining updates a lot's remaining balance
	SetRemaining(ctx context.Context, lotID int64, remaining int64) error

	// GetExpiredByAccount returns the account's expired lots that still
	// carry funds, earliest-expiring first
	GetExpiredByAccount(ctx context.Context, accountID int64, now time.Time) ([]*entities.Lot, error)

	// GetAccountIDsWithExpiredLots returns accounts holding expired,
	// unswept funds
	GetAccountIDsWithExpiredLots(ctx context.Context, now time.Time, limit int) ([]int64, error)

	// GetUpcomingExpirations returns the account's future forfeiture
	// deadlines, soonest first
	GetUpcomingExpirations(ctx context.Context, accountID int64, limit int) ([]entities.LotExpiration, error)
}

// HoldRepository defines the interface for hold data access
type HoldRepository interface {
	// Create creates a new active hold
	Create(ctx context.Context, hold *entities.Hold) error

	// GetByID retrieves a hold by its ID
	GetByID(ctx context.Context, id int64) (*entities.Hold, error)

	// Resolve transitions an active hold to settled or released
	Resolve(ctx context.Context, id int64, status entities.HoldStatus, resolvedAt time.Time) error

	// ActiveTotalByAccount returns the sum of the account's active holds
	ActiveTotalByAccount(ctx context.Context, accountID int64) (int64, error)
}

// TransactionRepository defines the interface for the append-only ledger log
type TransactionRepository interface {
	// Create appends a transaction row; rows are never updated or deleted
	Create(ctx context.Context, txn *entities.Transaction) error

	// ListByAccount returns an account's transactions, newest first
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*entities.Transaction, error)
}

// ItemRepository defines the interface for item data access
type ItemRepository interface {
	// Create creates a new available item
	Create(ctx context.Context, item *entities.Item) error

	// GetByID retrieves an item by its ID
	GetByID(ctx context.Context, id int64) (*entities.Item, error)

	// GetByIDForUpdate retrieves an item and locks its row. Claim, cancel,
	// confirm and promotion for an item all serialize on this lock, taken
	// before any account lock.
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Item, error)

	// UpdateStatus transitions an item's availability state
	UpdateStatus(ctx context.Context, id int64, status entities.ItemStatus) error
}

// ReservationRepository defines the interface for reservation data access
type ReservationRepository interface {
	// Create creates a new pending reservation
	Create(ctx context.Context, reservation *entities.Reservation) error

	// GetByID retrieves a reservation by its ID
	GetByID(ctx context.Context, id int64) (*entities.Reservation, error)

	// Update persists a reservation's status and resolution time
	Update(ctx context.Context, reservation *entities.Reservation) error

	// GetPendingByItem returns the item's single pending reservation, if any
	GetPendingByItem(ctx context.Context, itemID int64) (*entities.Reservation, error)

	// GetExpiredPendingIDs returns pending reservations past their TTL
	GetExpiredPendingIDs(ctx context.Context, now time.Time, limit int) ([]int64, error)
}

// QueueRepository defines the interface for per-item FIFO wait queues
type QueueRepository interface {
	// Join appends an account at the tail of an item's queue
	Join(ctx context.Context, itemID, accountID int64) (*entities.QueueEntry, error)

	// Leave removes an account's entry and renumbers later positions
	// contiguously. Returns false when the account was not queued.
	Leave(ctx context.Context, itemID, accountID int64) (bool, error)

	// PositionOf returns an account's 1-based position, 0 when not queued
	PositionOf(ctx context.Context, itemID, accountID int64) (int, error)

	// PeekHead returns the entry at position 1 without removing it
	PeekHead(ctx context.Context, itemID int64) (*entities.QueueEntry, error)

	// PopHead removes and returns the entry at position 1, shifting the
	// rest of the queue forward
	PopHead(ctx context.Context, itemID int64) (*entities.QueueEntry, error)

	// CountByItem returns the queue length for an item
	CountByItem(ctx context.Context, itemID int64) (int, error)
}
