package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"girinhas/domain/entities"
	"girinhas/domain/events"
	"girinhas/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type ledgerService struct {
	accountRepo     interfaces.AccountRepository
	lotRepo         interfaces.LotRepository
	holdRepo        interfaces.HoldRepository
	transactionRepo interfaces.TransactionRepository
	eventPublisher  interfaces.EventPublisher
	lotLifetime     time.Duration
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	accountRepo interfaces.AccountRepository,
	lotRepo interfaces.LotRepository,
	holdRepo interfaces.HoldRepository,
	transactionRepo interfaces.TransactionRepository,
	eventPublisher interfaces.EventPublisher,
	lotLifetime time.Duration,
) interfaces.LedgerService {
	return &ledgerService{
		accountRepo:     accountRepo,
		lotRepo:         lotRepo,
		holdRepo:        holdRepo,
		transactionRepo: transactionRepo,
		eventPublisher:  eventPublisher,
		lotLifetime:     lotLifetime,
	}
}

// Hold earmarks funds against an account. The account row lock taken here is
// what serializes concurrent holds: two simultaneous holds against the same
// account cannot both pass the spendable-balance check.
func (s *ledgerService) Hold(ctx context.Context, accountID, amount int64) (*entities.Hold, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("hold amount must be positive, got %d", amount)
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, entities.ErrNotFound("account")
	}
	if !account.Active {
		return nil, entities.ErrStaleState("account is deactivated")
	}
	if err := account.ValidateAmount(amount); err != nil {
		return nil, err
	}

	hold := &entities.Hold{
		AccountID: accountID,
		Amount:    amount,
		Status:    entities.HoldStatusActive,
	}
	if err := s.holdRepo.Create(ctx, hold); err != nil {
		return nil, fmt.Errorf("failed to create hold: %w", err)
	}

	return hold, nil
}

// Settle converts an active hold into a permanent debit plus a new lot for
// the recipient. This is the single point where girinhas actually move
// between accounts for a trade.
func (s *ledgerService) Settle(ctx context.Context, holdID, recipientAccountID int64, itemID *int64) (*entities.TransferReceipt, error) {
	hold, err := s.holdRepo.GetByID(ctx, holdID)
	if err != nil {
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}
	if hold == nil {
		return nil, entities.ErrNotFound("hold")
	}
	if !hold.IsActive() {
		return nil, entities.ErrStaleState("hold already resolved")
	}

	payer, recipient, err := s.lockAccountPair(ctx, hold.AccountID, recipientAccountID)
	if err != nil {
		return nil, err
	}

	if err := s.consumeLots(ctx, payer.ID, hold.Amount); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.holdRepo.Resolve(ctx, hold.ID, entities.HoldStatusSettled, now); err != nil {
		return nil, fmt.Errorf("failed to settle hold: %w", err)
	}

	newRecipientBalance, err := checkedAdd(recipient.Balance, hold.Amount)
	if err != nil {
		return nil, err
	}
	lot := &entities.Lot{
		AccountID: recipient.ID,
		Amount:    hold.Amount,
		Remaining: hold.Amount,
		Source:    entities.TransactionKindSaleProceeds,
		ExpiresAt: now.Add(s.lotLifetime),
	}
	if err := s.lotRepo.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("failed to create proceeds lot: %w", err)
	}

	transferID := uuid.New()
	debit := &entities.Transaction{
		TransferID:            &transferID,
		AccountID:             payer.ID,
		CounterpartyAccountID: &recipient.ID,
		ItemID:                itemID,
		Kind:                  entities.TransactionKindPurchase,
		Amount:                hold.Amount,
		BalanceAfter:          payer.Balance - hold.Amount,
	}
	credit := &entities.Transaction{
		TransferID:            &transferID,
		AccountID:             recipient.ID,
		CounterpartyAccountID: &payer.ID,
		ItemID:                itemID,
		Kind:                  entities.TransactionKindSaleProceeds,
		Amount:                hold.Amount,
		BalanceAfter:          newRecipientBalance,
	}
	if err := s.transactionRepo.Create(ctx, debit); err != nil {
		return nil, fmt.Errorf("failed to record debit: %w", err)
	}
	if err := s.transactionRepo.Create(ctx, credit); err != nil {
		return nil, fmt.Errorf("failed to record credit: %w", err)
	}

	s.publishBalanceChange(payer.ID, payer.Balance, debit.BalanceAfter, debit.Kind)
	s.publishBalanceChange(recipient.ID, recipient.Balance, credit.BalanceAfter, credit.Kind)

	return &entities.TransferReceipt{TransferID: transferID, Debit: debit, Credit: credit}, nil
}

// Release cancels an active hold with no transaction record
func (s *ledgerService) Release(ctx context.Context, holdID int64) error {
	hold, err := s.holdRepo.GetByID(ctx, holdID)
	if err != nil {
		return fmt.Errorf("failed to get hold: %w", err)
	}
	if hold == nil {
		return entities.ErrNotFound("hold")
	}
	if !hold.IsActive() {
		return entities.ErrStaleState("hold already resolved")
	}

	if err := s.holdRepo.Resolve(ctx, hold.ID, entities.HoldStatusReleased, time.Now()); err != nil {
		return fmt.Errorf("failed to release hold: %w", err)
	}
	return nil
}

// Credit funds an account with a new lot carrying the standard lifetime
func (s *ledgerService) Credit(ctx context.Context, accountID, amount int64, kind entities.TransactionKind) (*entities.Lot, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	if !kind.IsCredit() {
		return nil, fmt.Errorf("transaction kind %s is not a credit", kind)
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, entities.ErrNotFound("account")
	}

	newBalance, err := checkedAdd(account.Balance, amount)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	lot := &entities.Lot{
		AccountID: accountID,
		Amount:    amount,
		Remaining: amount,
		Source:    kind,
		ExpiresAt: now.Add(s.lotLifetime),
	}
	if err := s.lotRepo.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("failed to create lot: %w", err)
	}

	txn := &entities.Transaction{
		AccountID:    accountID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: newBalance,
	}
	if err := s.transactionRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record credit: %w", err)
	}

	s.publishBalanceChange(accountID, account.Balance, newBalance, kind)
	return lot, nil
}

// Transfer moves spendable funds between two accounts as a debit/credit pair
func (s *ledgerService) Transfer(ctx context.Context, fromAccountID, toAccountID, amount int64) (*entities.TransferReceipt, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("transfer amount must be positive, got %d", amount)
	}
	if fromAccountID == toAccountID {
		return nil, entities.NewDomainError(entities.ErrorKindSelfClaim, "cannot transfer girinhas to yourself")
	}

	from, to, err := s.lockAccountPair(ctx, fromAccountID, toAccountID)
	if err != nil {
		return nil, err
	}
	if !from.Active {
		return nil, entities.ErrStaleState("account is deactivated")
	}
	if err := from.ValidateAmount(amount); err != nil {
		return nil, err
	}

	if err := s.consumeLots(ctx, from.ID, amount); err != nil {
		return nil, err
	}

	newToBalance, err := checkedAdd(to.Balance, amount)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	lot := &entities.Lot{
		AccountID: to.ID,
		Amount:    amount,
		Remaining: amount,
		Source:    entities.TransactionKindTransferIn,
		ExpiresAt: now.Add(s.lotLifetime),
	}
	if err := s.lotRepo.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("failed to create transfer lot: %w", err)
	}

	transferID := uuid.New()
	debit := &entities.Transaction{
		TransferID:            &transferID,
		AccountID:             from.ID,
		CounterpartyAccountID: &to.ID,
		Kind:                  entities.TransactionKindTransferOut,
		Amount:                amount,
		BalanceAfter:          from.Balance - amount,
	}
	credit := &entities.Transaction{
		TransferID:            &transferID,
		AccountID:             to.ID,
		CounterpartyAccountID: &from.ID,
		Kind:                  entities.TransactionKindTransferIn,
		Amount:                amount,
		BalanceAfter:          newToBalance,
	}
	if err := s.transactionRepo.Create(ctx, debit); err != nil {
		return nil, fmt.Errorf("failed to record transfer debit: %w", err)
	}
	if err := s.transactionRepo.Create(ctx, credit); err != nil {
		return nil, fmt.Errorf("failed to record transfer credit: %w", err)
	}

	s.publishBalanceChange(from.ID, from.Balance, debit.BalanceAfter, debit.Kind)
	s.publishBalanceChange(to.ID, to.Balance, credit.BalanceAfter, credit.Kind)

	return &entities.TransferReceipt{TransferID: transferID, Debit: debit, Credit: credit}, nil
}

// SweepExpiredLots forfeits expired funds that are not backing an active
// hold. Active holds earmark lots earliest-expiring first, the same order
// settlement consumes them in, so each expired lot keeps the exact portion a
// pending hold is counting on; whatever stays expired after the hold
// resolves is picked up by a later sweep.
func (s *ledgerService) SweepExpiredLots(ctx context.Context, accountID int64, now time.Time) (int64, error) {
	account, err := s.accountRepo.GetByIDForUpdate(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return 0, entities.ErrNotFound("account")
	}

	expired, err := s.lotRepo.GetExpiredByAccount(ctx, accountID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired lots: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	// Expired lots sort before live ones, so the earmark lands on them first;
	// any leftover belongs to lots that are not up for forfeiture anyway.
	earmark, err := s.holdRepo.ActiveTotalByAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to total active holds: %w", err)
	}

	var forfeited int64
	for _, lot := range expired {
		pinned := lot.Remaining
		if pinned > earmark {
			pinned = earmark
		}
		earmark -= pinned
		take := lot.Remaining - pinned
		if take == 0 {
			continue
		}
		if err := s.lotRepo.SetRemaining(ctx, lot.ID, pinned); err != nil {
			return 0, fmt.Errorf("failed to drain expired lot %d: %w", lot.ID, err)
		}
		forfeited += take
	}

	if forfeited == 0 {
		return 0, nil
	}

	txn := &entities.Transaction{
		AccountID:    accountID,
		Kind:         entities.TransactionKindForfeiture,
		Amount:       forfeited,
		BalanceAfter: account.Balance - forfeited,
	}
	if err := s.transactionRepo.Create(ctx, txn); err != nil {
		return 0, fmt.Errorf("failed to record forfeiture: %w", err)
	}

	s.publishBalanceChange(accountID, account.Balance, txn.BalanceAfter, txn.Kind)
	s.publish(events.LotsForfeitedEvent{AccountID: accountID, Amount: forfeited})

	log.WithFields(log.Fields{
		"accountID": accountID,
		"amount":    forfeited,
	}).Info("Forfeited expired girinhas")

	return forfeited, nil
}

// Summary returns the caller-facing wallet view
func (s *ledgerService) Summary(ctx context.Context, accountID int64) (*entities.WalletSummary, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, entities.ErrNotFound("account")
	}

	expirations, err := s.lotRepo.GetUpcomingExpirations(ctx, accountID, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming expirations: %w", err)
	}

	return &entities.WalletSummary{
		AccountID:           account.ID,
		Balance:             account.Balance,
		SpendableBalance:    account.SpendableBalance,
		HeldAmount:          account.HeldAmount(),
		UpcomingExpirations: expirations,
	}, nil
}

// lockAccountPair locks two account rows in ascending id order so concurrent
// settlements between the same pair cannot deadlock
func (s *ledgerService) lockAccountPair(ctx context.Context, aID, bID int64) (*entities.Account, *entities.Account, error) {
	firstID, secondID := aID, bID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	first, err := s.accountRepo.GetByIDForUpdate(ctx, firstID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock account %d: %w", firstID, err)
	}
	second, err := s.accountRepo.GetByIDForUpdate(ctx, secondID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock account %d: %w", secondID, err)
	}
	if first == nil || second == nil {
		return nil, nil, entities.ErrNotFound("account")
	}

	if firstID == aID {
		return first, second, nil
	}
	return second, first, nil
}

// consumeLots drains amount from the account's lots, earliest-expiring first.
// The caller has already verified the account can cover the amount under its
// row lock, so exhausting the lots indicates ledger corruption.
func (s *ledgerService) consumeLots(ctx context.Context, accountID, amount int64) error {
	lots, err := s.lotRepo.GetSpendableByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to list lots: %w", err)
	}

	left := amount
	for _, lot := range lots {
		if left == 0 {
			break
		}
		take := lot.Remaining
		if take > left {
			take = left
		}
		if err := s.lotRepo.SetRemaining(ctx, lot.ID, lot.Remaining-take); err != nil {
			return fmt.Errorf("failed to drain lot %d: %w", lot.ID, err)
		}
		left -= take
	}
	if left > 0 {
		return fmt.Errorf("ledger inconsistency: account %d lots cover %d of %d", accountID, amount-left, amount)
	}
	return nil
}

func (s *ledgerService) publishBalanceChange(accountID, oldBalance, newBalance int64, kind entities.TransactionKind) {
	s.publish(events.BalanceChangeEvent{
		AccountID:       accountID,
		OldBalance:      oldBalance,
		NewBalance:      newBalance,
		TransactionKind: kind,
		ChangeAmount:    newBalance - oldBalance,
	})
}

func (s *ledgerService) publish(event events.Event) {
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to publish ledger event")
	}
}

// checkedAdd guards balance arithmetic: girinhas amounts are non-negative
// integers and overflow is a fault, never silently clamped
func checkedAdd(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, fmt.Errorf("girinhas amount overflow: %d + %d", a, b)
	}
	return a + b, nil
}
