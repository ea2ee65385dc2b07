package application

import (
	"context"
	"fmt"
	"time"

	"girinhas/domain/entities"
	"girinhas/domain/events"
	"girinhas/domain/interfaces"
	"girinhas/domain/services"
	"girinhas/metrics"
)

// TradeConfig carries the tunable policy knobs of the marketplace
type TradeConfig struct {
	ReservationTTL time.Duration
	LotLifetime    time.Duration
	CodeLength     int
	SignupBonus    int64
}

// TradeService is the application facade over the ledger and reservation
// services. Every public method runs in its own unit of work: one database
// transaction, with domain events flushed only after commit.
type TradeService struct {
	uowFactory    UnitOfWorkFactory
	positionCache QueuePositionCache
	cfg           TradeConfig
}

// NewTradeService creates a new trade service. positionCache may be nil to
// serve every position lookup from the database.
func NewTradeService(uowFactory UnitOfWorkFactory, positionCache QueuePositionCache, cfg TradeConfig) *TradeService {
	return &TradeService{
		uowFactory:    uowFactory,
		positionCache: positionCache,
		cfg:           cfg,
	}
}

func (s *TradeService) newServices(uow UnitOfWork) (interfaces.LedgerService, interfaces.ReservationService) {
	ledger := services.NewLedgerService(
		uow.Accounts(), uow.Lots(), uow.Holds(), uow.Transactions(),
		uow.EventBus(), s.cfg.LotLifetime,
	)
	reservations := services.NewReservationService(
		ledger, uow.Items(), uow.Reservations(), uow.Queue(),
		uow.EventBus(), s.cfg.ReservationTTL, s.cfg.CodeLength,
	)
	return ledger, reservations
}

// RegisterAccount creates a new account and credits the signup bonus
func (s *TradeService) RegisterAccount(ctx context.Context, username string) (*entities.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.Accounts().Create(ctx, username)
	if err != nil {
		return nil, err
	}

	if s.cfg.SignupBonus > 0 {
		ledger, _ := s.newServices(uow)
		if _, err := ledger.Credit(ctx, account.ID, s.cfg.SignupBonus, entities.TransactionKindSignupBonus); err != nil {
			return nil, err
		}
		account.Balance = s.cfg.SignupBonus
		account.SpendableBalance = s.cfg.SignupBonus
	}

	if err := uow.EventBus().Publish(events.AccountCreatedEvent{
		AccountID:   account.ID,
		Username:    account.Username,
		SignupBonus: account.Balance,
	}); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return account, nil
}

// CreditAccount grants girinhas out of thin air, for operators only
func (s *TradeService) CreditAccount(ctx context.Context, accountID, amount int64) (*entities.Lot, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ledger, _ := s.newServices(uow)
	lot, err := ledger.Credit(ctx, accountID, amount, entities.TransactionKindAdminCredit)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return lot, nil
}

// Transfer moves spendable girinhas between two accounts
func (s *TradeService) Transfer(ctx context.Context, fromAccountID, toAccountID, amount int64) (*entities.TransferReceipt, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ledger, _ := s.newServices(uow)
	receipt, err := ledger.Transfer(ctx, fromAccountID, toAccountID, amount)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return receipt, nil
}

// PublishItem lists a new item for sale
func (s *TradeService) PublishItem(ctx context.Context, ownerAccountID int64, title string, price int64) (*entities.Item, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	owner, err := uow.Accounts().GetByID(ctx, ownerAccountID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, entities.ErrNotFound("account")
	}
	if !owner.Active {
		return nil, entities.ErrStaleState("account is deactivated")
	}

	item := &entities.Item{
		OwnerAccountID: ownerAccountID,
		Title:          title,
		Price:          price,
		Status:         entities.ItemStatusAvailable,
	}
	if err := uow.Items().Create(ctx, item); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem retrieves an item
func (s *TradeService) GetItem(ctx context.Context, itemID int64) (*entities.Item, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	item, err := uow.Items().GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, entities.ErrNotFound("item")
	}
	return item, nil
}

// Claim requests an item for the claimant: a reservation when the item is
// free, a queue entry when it is contested
func (s *TradeService) Claim(ctx context.Context, itemID, claimantID, amount int64) (*interfaces.ClaimResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	_, reservations := s.newServices(uow)
	result, err := reservations.Claim(ctx, itemID, claimantID, amount)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	if result.Reservation != nil {
		metrics.ReservationsCreated.Inc()
	}
	return result, nil
}

// Cancel resolves a pending reservation as cancelled. Returns false when it
// was already resolved.
func (s *TradeService) Cancel(ctx context.Context, reservationID, actorID int64) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	_, reservations := s.newServices(uow)
	cancelled, err := reservations.Cancel(ctx, reservationID, actorID)
	if err != nil {
		return false, err
	}

	if err := uow.Commit(); err != nil {
		return false, err
	}
	if cancelled {
		metrics.ReservationsResolved.WithLabelValues(string(entities.ReservationStatusCancelled)).Inc()
	}
	return cancelled, nil
}

// Confirm settles a pending reservation with the claimant's confirmation code
func (s *TradeService) Confirm(ctx context.Context, reservationID int64, code string, actorID int64) (*entities.TransferReceipt, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	_, reservations := s.newServices(uow)
	receipt, err := reservations.Confirm(ctx, reservationID, code, actorID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	metrics.ReservationsResolved.WithLabelValues(string(entities.ReservationStatusConfirmed)).Inc()
	return receipt, nil
}

// GetReservation retrieves a reservation for one of its participants. The
// confirmation code is only visible to the claimant; the owner must obtain
// it out-of-band.
func (s *TradeService) GetReservation(ctx context.Context, reservationID, actorID int64) (*entities.Reservation, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	reservation, err := uow.Reservations().GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation == nil || !reservation.IsParticipant(actorID) {
		return nil, entities.ErrNotFound("reservation")
	}

	if reservation.ClaimantAccountID != actorID {
		reservation.ConfirmationCode = ""
	}
	return reservation, nil
}

// QueuePosition returns the account's place in an item's queue, 0 if absent
func (s *TradeService) QueuePosition(ctx context.Context, itemID, accountID int64) (int, error) {
	if s.positionCache != nil {
		if position, ok := s.positionCache.Get(ctx, itemID, accountID); ok {
			return position, nil
		}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	_, reservations := s.newServices(uow)
	position, err := reservations.QueuePosition(ctx, itemID, accountID)
	if err != nil {
		return 0, err
	}

	if s.positionCache != nil && position > 0 {
		s.positionCache.Set(ctx, itemID, accountID, position)
	}
	return position, nil
}

// LeaveQueue withdraws the account from an item's queue
func (s *TradeService) LeaveQueue(ctx context.Context, itemID, accountID int64) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	_, reservations := s.newServices(uow)
	left, err := reservations.LeaveQueue(ctx, itemID, accountID)
	if err != nil {
		return false, err
	}

	if err := uow.Commit(); err != nil {
		return false, err
	}

	if left && s.positionCache != nil {
		s.positionCache.Invalidate(ctx, itemID, accountID)
	}
	return left, nil
}

// WalletSummary returns the account's balances and upcoming expirations
func (s *TradeService) WalletSummary(ctx context.Context, accountID int64) (*entities.WalletSummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ledger, _ := s.newServices(uow)
	return ledger.Summary(ctx, accountID)
}

// ListTransactions returns the account's ledger history, newest first
func (s *TradeService) ListTransactions(ctx context.Context, accountID int64, limit, offset int) ([]*entities.Transaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, entities.ErrNotFound("account")
	}

	return uow.Transactions().ListByAccount(ctx, accountID, limit, offset)
}
