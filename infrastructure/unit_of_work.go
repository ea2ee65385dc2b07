package infrastructure

import (
	"context"

	"girinhas/application"
	"girinhas/domain/interfaces"
)

// unitOfWork wraps the repository UnitOfWork and adds event publishing on commit
type unitOfWork struct {
	inner                  application.UnitOfWork
	transactionalPublisher *NATSTransactionalPublisher
	ctx                    context.Context
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	u.ctx = ctx
	return u.inner.Begin(ctx)
}

// Commit commits the transaction and flushes events on success
func (u *unitOfWork) Commit() error {
	if err := u.inner.Commit(); err != nil {
		return err
	}

	// Events are best-effort after commit; the transaction is already durable
	_ = u.transactionalPublisher.Flush(u.ctx)
	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	u.transactionalPublisher.Discard()
	return u.inner.Rollback()
}

func (u *unitOfWork) Accounts() interfaces.AccountRepository {
	return u.inner.Accounts()
}

func (u *unitOfWork) Lots() interfaces.LotRepository {
	return u.inner.Lots()
}

func (u *unitOfWork) Holds() interfaces.HoldRepository {
	return u.inner.Holds()
}

func (u *unitOfWork) Transactions() interfaces.TransactionRepository {
	return u.inner.Transactions()
}

func (u *unitOfWork) Items() interfaces.ItemRepository {
	return u.inner.Items()
}

func (u *unitOfWork) Reservations() interfaces.ReservationRepository {
	return u.inner.Reservations()
}

func (u *unitOfWork) Queue() interfaces.QueueRepository {
	return u.inner.Queue()
}

// EventBus returns the transactional event publisher
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	return u.transactionalPublisher
}
