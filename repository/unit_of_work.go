package repository

import (
	"context"
	"fmt"

	"girinhas/application"
	"girinhas/database"
	"girinhas/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the application.UnitOfWork interface over a single
// pgx transaction
type unitOfWork struct {
	db              *database.DB
	tx              pgx.Tx
	ctx             context.Context
	eventPublisher  interfaces.EventPublisher
	accountRepo     *AccountRepository
	lotRepo         *LotRepository
	holdRepo        *HoldRepository
	transactionRepo *TransactionRepository
	itemRepo        *ItemRepository
	reservationRepo *ReservationRepository
	queueRepo       *QueueRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory. Event flushing on
// commit is handled by the infrastructure wrapper, which injects the
// transactional publisher per unit of work.
func NewUnitOfWorkFactory(db *database.DB) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{db: db}
}

// UnitOfWorkFactory creates units of work bound to a connection pool
type UnitOfWorkFactory struct {
	db *database.DB
}

// CreateWithPublisher creates a new UnitOfWork with a specific event publisher
func (f *UnitOfWorkFactory) CreateWithPublisher(publisher interfaces.EventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:             f.db,
		eventPublisher: publisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.accountRepo = newAccountRepositoryWithTx(tx)
	u.lotRepo = newLotRepositoryWithTx(tx)
	u.holdRepo = newHoldRepositoryWithTx(tx)
	u.transactionRepo = newTransactionRepositoryWithTx(tx)
	u.itemRepo = newItemRepositoryWithTx(tx)
	u.reservationRepo = newReservationRepositoryWithTx(tx)
	u.queueRepo = newQueueRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil
	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil
	return nil
}

// Accounts returns the account repository for this unit of work
func (u *unitOfWork) Accounts() interfaces.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// Lots returns the lot repository for this unit of work
func (u *unitOfWork) Lots() interfaces.LotRepository {
	if u.lotRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.lotRepo
}

// Holds returns the hold repository for this unit of work
func (u *unitOfWork) Holds() interfaces.HoldRepository {
	if u.holdRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.holdRepo
}

// Transactions returns the transaction log repository for this unit of work
func (u *unitOfWork) Transactions() interfaces.TransactionRepository {
	if u.transactionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionRepo
}

// Items returns the item repository for this unit of work
func (u *unitOfWork) Items() interfaces.ItemRepository {
	if u.itemRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.itemRepo
}

// Reservations returns the reservation repository for this unit of work
func (u *unitOfWork) Reservations() interfaces.ReservationRepository {
	if u.reservationRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.reservationRepo
}

// Queue returns the queue repository for this unit of work
func (u *unitOfWork) Queue() interfaces.QueueRepository {
	if u.queueRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.queueRepo
}

// EventBus returns the event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.eventPublisher == nil {
		panic("no event publisher configured for this unit of work")
	}
	return u.eventPublisher
}
