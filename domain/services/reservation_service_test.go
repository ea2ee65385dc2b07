package services

import (
	"context"
	"testing"
	"time"

	"girinhas/domain/entities"
	"girinhas/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReservationService_Claim(t *testing.T) {
	tests := []struct {
		name            string
		claimantID      int64
		amount          int64
		setupMocks      func(*TestMocks, *MockHelper)
		expectedKind    entities.ErrorKind
		wantReservation bool
		wantQueueEntry  bool
	}{
		{
			name:       "free item yields a pending reservation",
			claimantID: TestAliceID,
			amount:     TestItemPrice,
			setupMocks: func(mocks *TestMocks, helper *MockHelper) {
				helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusAvailable))
				mocks.Ledger.On("Hold", mock.Anything, TestAliceID, TestItemPrice).
					Return(&entities.Hold{ID: TestHoldID, AccountID: TestAliceID, Amount: TestItemPrice, Status: entities.HoldStatusActive}, nil)
				mocks.ReservationRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *entities.Reservation) bool {
					return r.ItemID == TestItemID &&
						r.ClaimantAccountID == TestAliceID &&
						r.OwnerAccountID == TestBobID &&
						r.AmountHeld == TestItemPrice &&
						r.HoldID == TestHoldID &&
						r.Status == entities.ReservationStatusPending &&
						len(r.ConfirmationCode) == TestCodeLength
				})).Return(nil)
				mocks.ItemRepo.On("UpdateStatus", mock.Anything, TestItemID, entities.ItemStatusReserved).Return(nil)
				helper.ExpectEventPublish(events.EventTypeReservationCreated)
				helper.ExpectEventPublish(events.EventTypeItemStateChange)
			},
			wantReservation: true,
		},
		{
			name:       "contested item queues the claimant without holding funds",
			claimantID: TestCarolID,
			amount:     TestItemPrice,
			setupMocks: func(mocks *TestMocks, helper *MockHelper) {
				helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusReserved))
				mocks.ReservationRepo.On("GetPendingByItem", mock.Anything, TestItemID).Return(testPendingReservation(), nil)
				mocks.QueueRepo.On("PositionOf", mock.Anything, TestItemID, TestCarolID).Return(0, nil)
				mocks.QueueRepo.On("Join", mock.Anything, TestItemID, TestCarolID).
					Return(&entities.QueueEntry{ID: 1, ItemID: TestItemID, AccountID: TestCarolID, Position: 1}, nil)
				helper.ExpectEventPublish(events.EventTypeQueueJoined)
			},
			wantQueueEntry: true,
		},
		{
			name:       "owner cannot claim own item",
			claimantID: TestBobID,
			amount:     TestItemPrice,
			setupMocks: func(mocks *TestMocks, helper *MockHelper) {
				helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusAvailable))
			},
			expectedKind: entities.ErrorKindSelfClaim,
		},
		{
			name:       "stale price is rejected before any side effect",
			claimantID: TestAliceID,
			amount:     TestItemPrice - 1,
			setupMocks: func(mocks *TestMocks, helper *MockHelper) {
				helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusAvailable))
			},
			expectedKind: entities.ErrorKindPriceMismatch,
		},
		{
			name:       "active claimant cannot also queue",
			claimantID: TestAliceID,
			amount:     TestItemPrice,
			setupMocks: func(mocks *TestMocks, helper *MockHelper) {
				helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusReserved))
				mocks.ReservationRepo.On("GetPendingByItem", mock.Anything, TestItemID).Return(testPendingReservation(), nil)
			},
			expectedKind: entities.ErrorKindStaleState,
		},
		{
			name:       "duplicate queue join is rejected",
			claimantID: TestCarolID,
			amount:     TestItemPrice,
			setupMocks: func(mocks *TestMocks, helper *MockHelper) {
				helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusReserved))
				mocks.ReservationRepo.On("GetPendingByItem", mock.Anything, TestItemID).Return(testPendingReservation(), nil)
				mocks.QueueRepo.On("PositionOf", mock.Anything, TestItemID, TestCarolID).Return(2, nil)
			},
			expectedKind: entities.ErrorKindStaleState,
		},
		{
			name:       "sold item cannot be claimed",
			claimantID: TestAliceID,
			amount:     TestItemPrice,
			setupMocks: func(mocks *TestMocks, helper *MockHelper) {
				helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusSold))
			},
			expectedKind: entities.ErrorKindStaleState,
		},
		{
			name:       "insufficient funds propagates without side effects",
			claimantID: TestAliceID,
			amount:     TestItemPrice,
			setupMocks: func(mocks *TestMocks, helper *MockHelper) {
				helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusAvailable))
				mocks.Ledger.On("Hold", mock.Anything, TestAliceID, TestItemPrice).
					Return(nil, entities.ErrInsufficientFunds(10, TestItemPrice))
			},
			expectedKind: entities.ErrorKindInsufficientFunds,
		},
		{
			name:       "missing item",
			claimantID: TestAliceID,
			amount:     TestItemPrice,
			setupMocks: func(mocks *TestMocks, helper *MockHelper) {
				helper.ExpectItemLock(TestItemID, nil)
			},
			expectedKind: entities.ErrorKindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := NewTestMocks()
			helper := NewMockHelper(mocks)
			tt.setupMocks(mocks, helper)
			svc := newTestReservationService(mocks)

			result, err := svc.Claim(context.Background(), TestItemID, tt.claimantID, tt.amount)

			if tt.expectedKind != "" {
				require.Error(t, err)
				assert.True(t, entities.IsKind(err, tt.expectedKind), "expected kind %s, got %v", tt.expectedKind, err)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				require.NotNil(t, result)
				assert.Equal(t, tt.wantReservation, result.Reservation != nil)
				assert.Equal(t, tt.wantQueueEntry, result.QueueEntry != nil)
			}
			mocks.AssertAllExpectations(t)
		})
	}
}

func TestReservationService_Cancel(t *testing.T) {
	t.Run("claimant cancel releases hold and reopens item", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)

		reservation := testPendingReservation()
		helper.ExpectReservationLookup(reservation.ID, reservation)
		helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusReserved))

		mocks.Ledger.On("Release", mock.Anything, TestHoldID).Return(nil)
		mocks.ReservationRepo.On("Update", mock.Anything, mock.MatchedBy(func(r *entities.Reservation) bool {
			return r.ID == reservation.ID && r.Status == entities.ReservationStatusCancelled && r.ResolvedAt != nil
		})).Return(nil)
		mocks.QueueRepo.On("PopHead", mock.Anything, TestItemID).Return(nil, nil)
		mocks.ItemRepo.On("UpdateStatus", mock.Anything, TestItemID, entities.ItemStatusAvailable).Return(nil)
		helper.ExpectEventPublish(events.EventTypeReservationResolved)
		helper.ExpectEventPublish(events.EventTypeItemStateChange)

		svc := newTestReservationService(mocks)
		cancelled, err := svc.Cancel(context.Background(), reservation.ID, TestAliceID)

		require.NoError(t, err)
		assert.True(t, cancelled)
		mocks.AssertAllExpectations(t)
	})

	t.Run("cancel promotes the next queued claimant without reopening", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)

		reservation := testPendingReservation()
		helper.ExpectReservationLookup(reservation.ID, reservation)
		helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusReserved))

		mocks.Ledger.On("Release", mock.Anything, TestHoldID).Return(nil)
		mocks.ReservationRepo.On("Update", mock.Anything, mock.MatchedBy(func(r *entities.Reservation) bool {
			return r.Status == entities.ReservationStatusCancelled
		})).Return(nil)

		mocks.QueueRepo.On("PopHead", mock.Anything, TestItemID).
			Return(&entities.QueueEntry{ID: 7, ItemID: TestItemID, AccountID: TestCarolID, Position: 1}, nil).Once()
		mocks.Ledger.On("Hold", mock.Anything, TestCarolID, TestItemPrice).
			Return(&entities.Hold{ID: 11, AccountID: TestCarolID, Amount: TestItemPrice, Status: entities.HoldStatusActive}, nil)
		mocks.ReservationRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *entities.Reservation) bool {
			return r.ClaimantAccountID == TestCarolID && r.HoldID == 11
		})).Return(nil)
		helper.ExpectAnyEvents()

		svc := newTestReservationService(mocks)
		cancelled, err := svc.Cancel(context.Background(), reservation.ID, TestBobID)

		require.NoError(t, err)
		assert.True(t, cancelled)
		// Item must never observably leave reserved during promotion
		mocks.ItemRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, TestItemID, entities.ItemStatusAvailable)
		mocks.AssertAllExpectations(t)
	})

	t.Run("cancel is idempotent on resolved reservations", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)

		resolvedAt := time.Now()
		reservation := testPendingReservation()
		reservation.Status = entities.ReservationStatusCancelled
		reservation.ResolvedAt = &resolvedAt
		helper.ExpectReservationLookup(reservation.ID, reservation)
		helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusAvailable))

		svc := newTestReservationService(mocks)
		cancelled, err := svc.Cancel(context.Background(), reservation.ID, TestAliceID)

		require.NoError(t, err)
		assert.False(t, cancelled)
		mocks.Ledger.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
		mocks.AssertAllExpectations(t)
	})

	t.Run("a stranger cannot cancel", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		helper.ExpectReservationLookup(int64(1), testPendingReservation())

		svc := newTestReservationService(mocks)
		cancelled, err := svc.Cancel(context.Background(), 1, TestCarolID)

		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.ErrorKindNotFound))
		assert.False(t, cancelled)
		mocks.AssertAllExpectations(t)
	})
}

func TestReservationService_PromoteNext_DropsBrokeClaimants(t *testing.T) {
	mocks := NewTestMocks()
	helper := NewMockHelper(mocks)

	reservation := testPendingReservation()
	helper.ExpectReservationLookup(reservation.ID, reservation)
	helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusReserved))

	mocks.Ledger.On("Release", mock.Anything, TestHoldID).Return(nil)
	mocks.ReservationRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	// Carol joined first but can no longer pay; the entry is dropped, not
	// re-queued, and the next in line gets the item.
	mocks.QueueRepo.On("PopHead", mock.Anything, TestItemID).
		Return(&entities.QueueEntry{ID: 7, AccountID: TestCarolID, ItemID: TestItemID, Position: 1}, nil).Once()
	mocks.Ledger.On("Hold", mock.Anything, TestCarolID, TestItemPrice).
		Return(nil, entities.ErrInsufficientFunds(0, TestItemPrice)).Once()

	nextID := int64(400)
	mocks.QueueRepo.On("PopHead", mock.Anything, TestItemID).
		Return(&entities.QueueEntry{ID: 8, AccountID: nextID, ItemID: TestItemID, Position: 1}, nil).Once()
	mocks.Ledger.On("Hold", mock.Anything, nextID, TestItemPrice).
		Return(&entities.Hold{ID: 12, AccountID: nextID, Amount: TestItemPrice, Status: entities.HoldStatusActive}, nil).Once()
	mocks.ReservationRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *entities.Reservation) bool {
		return r.ClaimantAccountID == nextID
	})).Return(nil)
	helper.ExpectAnyEvents()

	svc := newTestReservationService(mocks)
	cancelled, err := svc.Cancel(context.Background(), reservation.ID, TestAliceID)

	require.NoError(t, err)
	assert.True(t, cancelled)
	mocks.AssertAllExpectations(t)
}

func TestReservationService_Confirm(t *testing.T) {
	t.Run("correct code settles and sells", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)

		reservation := testPendingReservation()
		helper.ExpectReservationLookup(reservation.ID, reservation)
		helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusReserved))

		receipt := &entities.TransferReceipt{}
		mocks.Ledger.On("Settle", mock.Anything, TestHoldID, TestBobID, mock.MatchedBy(func(itemID *int64) bool {
			return itemID != nil && *itemID == TestItemID
		})).Return(receipt, nil)
		mocks.ReservationRepo.On("Update", mock.Anything, mock.MatchedBy(func(r *entities.Reservation) bool {
			return r.Status == entities.ReservationStatusConfirmed && r.ResolvedAt != nil
		})).Return(nil)
		mocks.ItemRepo.On("UpdateStatus", mock.Anything, TestItemID, entities.ItemStatusSold).Return(nil)
		helper.ExpectEventPublish(events.EventTypeReservationResolved)
		helper.ExpectEventPublish(events.EventTypeItemStateChange)

		svc := newTestReservationService(mocks)
		got, err := svc.Confirm(context.Background(), reservation.ID, "ABCD2345", TestBobID)

		require.NoError(t, err)
		assert.Same(t, receipt, got)
		mocks.AssertAllExpectations(t)
	})

	t.Run("wrong code is rejected without consuming the attempt", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)

		reservation := testPendingReservation()
		helper.ExpectReservationLookup(reservation.ID, reservation)
		helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusReserved))

		svc := newTestReservationService(mocks)
		got, err := svc.Confirm(context.Background(), reservation.ID, "WRONG234", TestBobID)

		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.ErrorKindInvalidCode))
		assert.Nil(t, got)
		mocks.Ledger.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mocks.AssertAllExpectations(t)
	})

	t.Run("retries remain possible after mismatches", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)

		reservation := testPendingReservation()
		mocks.ReservationRepo.On("GetByID", mock.Anything, reservation.ID).Return(reservation, nil)
		mocks.ItemRepo.On("GetByIDForUpdate", mock.Anything, TestItemID).Return(testItem(entities.ItemStatusReserved), nil)

		mocks.Ledger.On("Settle", mock.Anything, TestHoldID, TestBobID, mock.Anything).
			Return(&entities.TransferReceipt{}, nil).Once()
		mocks.ReservationRepo.On("Update", mock.Anything, mock.Anything).Return(nil).Once()
		mocks.ItemRepo.On("UpdateStatus", mock.Anything, TestItemID, entities.ItemStatusSold).Return(nil).Once()
		helper.ExpectAnyEvents()

		svc := newTestReservationService(mocks)
		for i := 0; i < 3; i++ {
			_, err := svc.Confirm(context.Background(), reservation.ID, "NOPE2345", TestBobID)
			require.Error(t, err)
			assert.True(t, entities.IsKind(err, entities.ErrorKindInvalidCode))
		}
		receipt, err := svc.Confirm(context.Background(), reservation.ID, "ABCD2345", TestBobID)
		require.NoError(t, err)
		assert.NotNil(t, receipt)
		mocks.AssertAllExpectations(t)
	})

	t.Run("claimant cannot confirm", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		helper.ExpectReservationLookup(int64(1), testPendingReservation())

		svc := newTestReservationService(mocks)
		got, err := svc.Confirm(context.Background(), 1, "ABCD2345", TestAliceID)

		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.ErrorKindNotFound))
		assert.Nil(t, got)
		mocks.AssertAllExpectations(t)
	})

	t.Run("resolved reservation is stale", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)

		reservation := testPendingReservation()
		expired := testPendingReservation()
		expired.Status = entities.ReservationStatusExpired
		// The scheduler resolved it while we waited for the item lock
		mocks.ReservationRepo.On("GetByID", mock.Anything, reservation.ID).Return(reservation, nil).Once()
		helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusAvailable))
		mocks.ReservationRepo.On("GetByID", mock.Anything, reservation.ID).Return(expired, nil).Once()

		svc := newTestReservationService(mocks)
		got, err := svc.Confirm(context.Background(), reservation.ID, "ABCD2345", TestBobID)

		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.ErrorKindStaleState))
		assert.Nil(t, got)
		mocks.AssertAllExpectations(t)
	})
}

func TestReservationService_CancelExpired(t *testing.T) {
	now := time.Now()

	t.Run("expired reservation is cancelled with promotion semantics", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)

		reservation := testPendingReservation()
		reservation.ExpiresAt = now.Add(-time.Minute)
		helper.ExpectReservationLookup(reservation.ID, reservation)
		helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusReserved))

		mocks.Ledger.On("Release", mock.Anything, TestHoldID).Return(nil)
		mocks.ReservationRepo.On("Update", mock.Anything, mock.MatchedBy(func(r *entities.Reservation) bool {
			return r.Status == entities.ReservationStatusExpired
		})).Return(nil)
		mocks.QueueRepo.On("PopHead", mock.Anything, TestItemID).Return(nil, nil)
		mocks.ItemRepo.On("UpdateStatus", mock.Anything, TestItemID, entities.ItemStatusAvailable).Return(nil)
		helper.ExpectAnyEvents()

		svc := newTestReservationService(mocks)
		expired, err := svc.CancelExpired(context.Background(), reservation.ID, now)

		require.NoError(t, err)
		assert.True(t, expired)
		mocks.AssertAllExpectations(t)
	})

	t.Run("racing sweeps process a reservation exactly once", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)

		// Second tick sees the already-expired status after taking the lock
		resolved := testPendingReservation()
		resolved.Status = entities.ReservationStatusExpired
		helper.ExpectReservationLookup(resolved.ID, resolved)
		helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusAvailable))

		svc := newTestReservationService(mocks)
		expired, err := svc.CancelExpired(context.Background(), resolved.ID, now)

		require.NoError(t, err)
		assert.False(t, expired)
		mocks.Ledger.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
		mocks.AssertAllExpectations(t)
	})

	t.Run("not yet expired is left alone", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)

		reservation := testPendingReservation()
		helper.ExpectReservationLookup(reservation.ID, reservation)
		helper.ExpectItemLock(TestItemID, testItem(entities.ItemStatusReserved))

		svc := newTestReservationService(mocks)
		expired, err := svc.CancelExpired(context.Background(), reservation.ID, now)

		require.NoError(t, err)
		assert.False(t, expired)
		mocks.AssertAllExpectations(t)
	})
}

func TestReservationService_QueuePosition(t *testing.T) {
	mocks := NewTestMocks()
	mocks.ItemRepo.On("GetByID", mock.Anything, TestItemID).Return(testItem(entities.ItemStatusReserved), nil)
	mocks.QueueRepo.On("PositionOf", mock.Anything, TestItemID, TestCarolID).Return(2, nil)

	svc := newTestReservationService(mocks)
	position, err := svc.QueuePosition(context.Background(), TestItemID, TestCarolID)

	require.NoError(t, err)
	assert.Equal(t, 2, position)
	mocks.AssertAllExpectations(t)
}
