package services

import (
	"context"
	"fmt"
	"time"

	"girinhas/domain/entities"
	"girinhas/domain/events"
	"girinhas/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type reservationService struct {
	ledger          interfaces.LedgerService
	itemRepo        interfaces.ItemRepository
	reservationRepo interfaces.ReservationRepository
	queueRepo       interfaces.QueueRepository
	eventPublisher  interfaces.EventPublisher
	reservationTTL  time.Duration
	codeLength      int
}

// NewReservationService creates a new reservation service
func NewReservationService(
	ledger interfaces.LedgerService,
	itemRepo interfaces.ItemRepository,
	reservationRepo interfaces.ReservationRepository,
	queueRepo interfaces.QueueRepository,
	eventPublisher interfaces.EventPublisher,
	reservationTTL time.Duration,
	codeLength int,
) interfaces.ReservationService {
	return &reservationService{
		ledger:          ledger,
		itemRepo:        itemRepo,
		reservationRepo: reservationRepo,
		queueRepo:       queueRepo,
		eventPublisher:  eventPublisher,
		reservationTTL:  reservationTTL,
		codeLength:      codeLength,
	}
}

// Claim requests an item. A free item yields a pending reservation with funds
// held; a contested item yields a tail queue entry with no funds held, so
// queued users are never frozen out of money for something they may never
// receive.
func (s *reservationService) Claim(ctx context.Context, itemID, claimantID, amount int64) (*interfaces.ClaimResult, error) {
	item, err := s.itemRepo.GetByIDForUpdate(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil {
		return nil, entities.ErrNotFound("item")
	}
	if item.IsOwnedBy(claimantID) {
		return nil, entities.ErrSelfClaim()
	}
	if amount != item.Price {
		return nil, entities.ErrPriceMismatch(amount, item.Price)
	}

	switch {
	case item.IsAvailable():
		reservation, err := s.createReservation(ctx, item, claimantID)
		if err != nil {
			return nil, err
		}
		if err := s.transitionItem(ctx, item, entities.ItemStatusReserved); err != nil {
			return nil, err
		}
		return &interfaces.ClaimResult{Reservation: reservation}, nil

	case item.IsReserved():
		pending, err := s.reservationRepo.GetPendingByItem(ctx, itemID)
		if err != nil {
			return nil, fmt.Errorf("failed to get pending reservation: %w", err)
		}
		if pending != nil && pending.ClaimantAccountID == claimantID {
			return nil, entities.ErrStaleState("you already hold the active reservation for this item")
		}

		position, err := s.queueRepo.PositionOf(ctx, itemID, claimantID)
		if err != nil {
			return nil, fmt.Errorf("failed to check queue position: %w", err)
		}
		if position > 0 {
			return nil, entities.ErrStaleState("already waiting in this item's queue")
		}

		entry, err := s.queueRepo.Join(ctx, itemID, claimantID)
		if err != nil {
			return nil, fmt.Errorf("failed to join queue: %w", err)
		}
		s.publish(events.QueueJoinedEvent{ItemID: itemID, AccountID: claimantID, Position: entry.Position})
		return &interfaces.ClaimResult{QueueEntry: entry}, nil

	default:
		return nil, entities.ErrStaleState("item already sold")
	}
}

// Cancel resolves a pending reservation as cancelled. Only the claimant or
// the item owner may cancel; a reservation that is already resolved yields
// false rather than an error, tolerating duplicate or racing cancels.
func (s *reservationService) Cancel(ctx context.Context, reservationID, actorID int64) (bool, error) {
	reservation, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return false, fmt.Errorf("failed to get reservation: %w", err)
	}
	if reservation == nil || !reservation.IsParticipant(actorID) {
		return false, entities.ErrNotFound("reservation")
	}

	item, reservation, err := s.lockItemAndReread(ctx, reservation)
	if err != nil {
		return false, err
	}
	if !reservation.IsPending() {
		return false, nil
	}

	if err := s.resolve(ctx, item, reservation, entities.ReservationStatusCancelled); err != nil {
		return false, err
	}
	return true, nil
}

// CancelExpired resolves a pending reservation past its TTL, exactly like an
// owner-initiated cancel including queue promotion. A reservation that was
// confirmed or cancelled while we waited for the item lock yields false.
func (s *reservationService) CancelExpired(ctx context.Context, reservationID int64, now time.Time) (bool, error) {
	reservation, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return false, fmt.Errorf("failed to get reservation: %w", err)
	}
	if reservation == nil {
		return false, nil
	}

	item, reservation, err := s.lockItemAndReread(ctx, reservation)
	if err != nil {
		return false, err
	}
	if !reservation.IsPending() || !reservation.IsPastExpiry(now) {
		return false, nil
	}

	if err := s.resolve(ctx, item, reservation, entities.ReservationStatusExpired); err != nil {
		return false, err
	}
	return true, nil
}

// Confirm settles a pending reservation. Only the item owner may confirm,
// and only with the exact confirmation code the claimant was shown. This is
// the single point where girinhas move for a trade, atomic with the item
// transition to sold.
func (s *reservationService) Confirm(ctx context.Context, reservationID int64, suppliedCode string, actorID int64) (*entities.TransferReceipt, error) {
	reservation, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if reservation == nil || reservation.OwnerAccountID != actorID {
		return nil, entities.ErrNotFound("reservation")
	}

	item, reservation, err := s.lockItemAndReread(ctx, reservation)
	if err != nil {
		return nil, err
	}
	if item.IsSold() {
		return nil, entities.ErrStaleState("item already sold")
	}
	if !reservation.IsPending() {
		return nil, entities.ErrStaleState("reservation already resolved")
	}
	if !reservation.CodeMatches(suppliedCode) {
		return nil, entities.ErrInvalidCode()
	}

	receipt, err := s.ledger.Settle(ctx, reservation.HoldID, reservation.OwnerAccountID, &reservation.ItemID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	reservation.Status = entities.ReservationStatusConfirmed
	reservation.ResolvedAt = &now
	if err := s.reservationRepo.Update(ctx, reservation); err != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}
	s.publish(events.ReservationResolvedEvent{
		ReservationID:     reservation.ID,
		ItemID:            reservation.ItemID,
		ClaimantAccountID: reservation.ClaimantAccountID,
		Outcome:           entities.ReservationStatusConfirmed,
	})

	if err := s.transitionItem(ctx, item, entities.ItemStatusSold); err != nil {
		return nil, err
	}

	return receipt, nil
}

// QueuePosition returns the account's place in line, 0 when not queued
func (s *reservationService) QueuePosition(ctx context.Context, itemID, accountID int64) (int, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil {
		return 0, entities.ErrNotFound("item")
	}
	return s.queueRepo.PositionOf(ctx, itemID, accountID)
}

// LeaveQueue withdraws a queued claim, renumbering later entries
func (s *reservationService) LeaveQueue(ctx context.Context, itemID, accountID int64) (bool, error) {
	item, err := s.itemRepo.GetByIDForUpdate(ctx, itemID)
	if err != nil {
		return false, fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil {
		return false, entities.ErrNotFound("item")
	}

	left, err := s.queueRepo.Leave(ctx, itemID, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to leave queue: %w", err)
	}
	if left {
		s.publish(events.QueueLeftEvent{ItemID: itemID, AccountID: accountID})
	}
	return left, nil
}

// resolve releases the hold, records the terminal status and hands the item
// to the next queued claimant. When the queue produces a successor the item
// never observably leaves reserved, so nobody can claim it out of queue order.
func (s *reservationService) resolve(ctx context.Context, item *entities.Item, reservation *entities.Reservation, outcome entities.ReservationStatus) error {
	if err := s.ledger.Release(ctx, reservation.HoldID); err != nil {
		return err
	}

	now := time.Now()
	reservation.Status = outcome
	reservation.ResolvedAt = &now
	if err := s.reservationRepo.Update(ctx, reservation); err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	s.publish(events.ReservationResolvedEvent{
		ReservationID:     reservation.ID,
		ItemID:            reservation.ItemID,
		ClaimantAccountID: reservation.ClaimantAccountID,
		Outcome:           outcome,
	})

	next, err := s.promoteNext(ctx, item)
	if err != nil {
		return err
	}
	if next == nil {
		return s.transitionItem(ctx, item, entities.ItemStatusAvailable)
	}
	return nil
}

// promoteNext pops queue entries in order until one can fund a hold. Entries
// whose accounts can no longer pay are dropped, not re-queued.
func (s *reservationService) promoteNext(ctx context.Context, item *entities.Item) (*entities.Reservation, error) {
	for {
		entry, err := s.queueRepo.PopHead(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to pop queue head: %w", err)
		}
		if entry == nil {
			return nil, nil
		}

		reservation, err := s.createReservation(ctx, item, entry.AccountID)
		if err != nil {
			switch entities.KindOf(err) {
			case entities.ErrorKindInsufficientFunds, entities.ErrorKindStaleState, entities.ErrorKindNotFound:
				log.WithFields(log.Fields{
					"itemID":    item.ID,
					"accountID": entry.AccountID,
					"reason":    err,
				}).Warn("Dropping queue entry that can no longer claim")
				continue
			}
			return nil, err
		}

		s.publish(events.QueuePromotedEvent{
			ItemID:        item.ID,
			AccountID:     entry.AccountID,
			ReservationID: reservation.ID,
		})
		return reservation, nil
	}
}

// createReservation places the hold and writes the pending reservation with a
// fresh confirmation code. Shared by direct claims and queue promotion.
func (s *reservationService) createReservation(ctx context.Context, item *entities.Item, claimantID int64) (*entities.Reservation, error) {
	hold, err := s.ledger.Hold(ctx, claimantID, item.Price)
	if err != nil {
		return nil, err
	}

	code, err := GenerateConfirmationCode(s.codeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate confirmation code: %w", err)
	}

	reservation := &entities.Reservation{
		ItemID:            item.ID,
		ClaimantAccountID: claimantID,
		OwnerAccountID:    item.OwnerAccountID,
		AmountHeld:        item.Price,
		HoldID:            hold.ID,
		Status:            entities.ReservationStatusPending,
		ConfirmationCode:  code,
		ExpiresAt:         time.Now().Add(s.reservationTTL),
	}
	if err := s.reservationRepo.Create(ctx, reservation); err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	s.publish(events.ReservationCreatedEvent{
		ReservationID:     reservation.ID,
		ItemID:            item.ID,
		ClaimantAccountID: claimantID,
		OwnerAccountID:    item.OwnerAccountID,
		AmountHeld:        item.Price,
	})
	return reservation, nil
}

// lockItemAndReread takes the item lock, then re-reads the reservation:
// its state may have changed while we waited on a racing cancel, confirm or
// expiry holding the same lock.
func (s *reservationService) lockItemAndReread(ctx context.Context, reservation *entities.Reservation) (*entities.Item, *entities.Reservation, error) {
	item, err := s.itemRepo.GetByIDForUpdate(ctx, reservation.ItemID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock item: %w", err)
	}
	if item == nil {
		return nil, nil, entities.ErrNotFound("item")
	}

	fresh, err := s.reservationRepo.GetByID(ctx, reservation.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to re-read reservation: %w", err)
	}
	if fresh == nil {
		return nil, nil, entities.ErrNotFound("reservation")
	}
	return item, fresh, nil
}

func (s *reservationService) transitionItem(ctx context.Context, item *entities.Item, status entities.ItemStatus) error {
	if err := s.itemRepo.UpdateStatus(ctx, item.ID, status); err != nil {
		return fmt.Errorf("failed to transition item to %s: %w", status, err)
	}
	s.publish(events.ItemStateChangeEvent{ItemID: item.ID, OldStatus: item.Status, NewStatus: status})
	item.Status = status
	return nil
}

func (s *reservationService) publish(event events.Event) {
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to publish reservation event")
	}
}
