package services

import (
	"context"
	"math"
	"testing"
	"time"

	"girinhas/domain/entities"
	"girinhas/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_Hold(t *testing.T) {
	tests := []struct {
		name          string
		amount        int64
		setupMocks    func(*TestMocks, *MockHelper)
		expectedError string
		expectedKind  entities.ErrorKind
	}{
		{
			name:   "successful hold",
			amount: 100,
			setupMocks: func(mocks *TestMocks, helper *MockHelper) {
				helper.ExpectAccountLock(TestAliceID, testAccount(TestAliceID, 150, 150))
				mocks.HoldRepo.On("Create", mock.Anything, mock.MatchedBy(func(h *entities.Hold) bool {
					return h.AccountID == TestAliceID && h.Amount == 100 && h.Status == entities.HoldStatusActive
				})).Return(nil)
			},
		},
		{
			name:   "insufficient spendable balance",
			amount: 100,
			setupMocks: func(mocks *TestMocks, helper *MockHelper) {
				// Balance covers the amount but an earlier hold earmarked most of it
				helper.ExpectAccountLock(TestAliceID, testAccount(TestAliceID, 150, 40))
			},
			expectedError: "insufficient girinhas",
			expectedKind:  entities.ErrorKindInsufficientFunds,
		},
		{
			name:   "account not found",
			amount: 100,
			setupMocks: func(mocks *TestMocks, helper *MockHelper) {
				helper.ExpectAccountLock(TestAliceID, nil)
			},
			expectedError: "account not found",
			expectedKind:  entities.ErrorKindNotFound,
		},
		{
			name:   "deactivated account cannot spend",
			amount: 100,
			setupMocks: func(mocks *TestMocks, helper *MockHelper) {
				account := testAccount(TestAliceID, 150, 150)
				account.Active = false
				helper.ExpectAccountLock(TestAliceID, account)
			},
			expectedError: "deactivated",
			expectedKind:  entities.ErrorKindStaleState,
		},
		{
			name:          "non-positive amount",
			amount:        0,
			setupMocks:    func(mocks *TestMocks, helper *MockHelper) {},
			expectedError: "must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := NewTestMocks()
			helper := NewMockHelper(mocks)
			tt.setupMocks(mocks, helper)
			svc := newTestLedgerService(mocks)

			hold, err := svc.Hold(context.Background(), TestAliceID, tt.amount)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				if tt.expectedKind != "" {
					assert.True(t, entities.IsKind(err, tt.expectedKind))
				}
				assert.Nil(t, hold)
			} else {
				require.NoError(t, err)
				assert.Equal(t, TestAliceID, hold.AccountID)
				assert.True(t, hold.IsActive())
			}
			mocks.AssertAllExpectations(t)
		})
	}
}

func TestLedgerService_Settle_ConsumesLotsOldestFirst(t *testing.T) {
	mocks := NewTestMocks()
	helper := NewMockHelper(mocks)

	hold := &entities.Hold{ID: TestHoldID, AccountID: TestAliceID, Amount: 100, Status: entities.HoldStatusActive}
	mocks.HoldRepo.On("GetByID", mock.Anything, TestHoldID).Return(hold, nil)

	// Alice (id 100) locks before Bob (id 200)
	helper.ExpectAccountLock(TestAliceID, testAccount(TestAliceID, 120, 20))
	helper.ExpectAccountLock(TestBobID, testAccount(TestBobID, 50, 50))

	now := time.Now()
	lots := []*entities.Lot{
		{ID: 1, AccountID: TestAliceID, Amount: 60, Remaining: 60, ExpiresAt: now.Add(24 * time.Hour)},
		{ID: 2, AccountID: TestAliceID, Amount: 60, Remaining: 60, ExpiresAt: now.Add(48 * time.Hour)},
	}
	mocks.LotRepo.On("GetSpendableByAccount", mock.Anything, TestAliceID).Return(lots, nil)

	// First lot fully drained, second drained partially
	mocks.LotRepo.On("SetRemaining", mock.Anything, int64(1), int64(0)).Return(nil)
	mocks.LotRepo.On("SetRemaining", mock.Anything, int64(2), int64(20)).Return(nil)

	mocks.HoldRepo.On("Resolve", mock.Anything, TestHoldID, entities.HoldStatusSettled, mock.Anything).Return(nil)
	mocks.LotRepo.On("Create", mock.Anything, mock.MatchedBy(func(l *entities.Lot) bool {
		return l.AccountID == TestBobID && l.Remaining == 100 && l.Source == entities.TransactionKindSaleProceeds
	})).Return(nil)

	var recorded []*entities.Transaction
	mocks.TransactionRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Transaction")).
		Run(func(args mock.Arguments) {
			recorded = append(recorded, args.Get(1).(*entities.Transaction))
		}).Return(nil).Twice()

	helper.ExpectAnyEvents()

	itemID := TestItemID
	svc := newTestLedgerService(mocks)
	receipt, err := svc.Settle(context.Background(), TestHoldID, TestBobID, &itemID)

	require.NoError(t, err)
	require.Len(t, recorded, 2)
	assert.Equal(t, entities.TransactionKindPurchase, recorded[0].Kind)
	assert.Equal(t, int64(20), recorded[0].BalanceAfter)
	assert.Equal(t, entities.TransactionKindSaleProceeds, recorded[1].Kind)
	assert.Equal(t, int64(150), recorded[1].BalanceAfter)

	// Both rows share the transfer id for joint auditability
	require.NotNil(t, recorded[0].TransferID)
	require.NotNil(t, recorded[1].TransferID)
	assert.Equal(t, *recorded[0].TransferID, *recorded[1].TransferID)
	assert.Equal(t, receipt.TransferID, *recorded[0].TransferID)

	mocks.AssertAllExpectations(t)
}

func TestLedgerService_Settle_ResolvedHoldIsStale(t *testing.T) {
	mocks := NewTestMocks()

	resolvedAt := time.Now()
	hold := &entities.Hold{ID: TestHoldID, AccountID: TestAliceID, Amount: 100, Status: entities.HoldStatusReleased, ResolvedAt: &resolvedAt}
	mocks.HoldRepo.On("GetByID", mock.Anything, TestHoldID).Return(hold, nil)

	svc := newTestLedgerService(mocks)
	receipt, err := svc.Settle(context.Background(), TestHoldID, TestBobID, nil)

	require.Error(t, err)
	assert.True(t, entities.IsKind(err, entities.ErrorKindStaleState))
	assert.Nil(t, receipt)
	mocks.AssertAllExpectations(t)
}

func TestLedgerService_Release(t *testing.T) {
	mocks := NewTestMocks()

	hold := &entities.Hold{ID: TestHoldID, AccountID: TestAliceID, Amount: 100, Status: entities.HoldStatusActive}
	mocks.HoldRepo.On("GetByID", mock.Anything, TestHoldID).Return(hold, nil)
	mocks.HoldRepo.On("Resolve", mock.Anything, TestHoldID, entities.HoldStatusReleased, mock.Anything).Return(nil)

	svc := newTestLedgerService(mocks)
	require.NoError(t, svc.Release(context.Background(), TestHoldID))

	// No transaction row and no balance event: the hold never became real
	mocks.TransactionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mocks.EventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
	mocks.AssertAllExpectations(t)
}

func TestLedgerService_Credit_Overflow(t *testing.T) {
	mocks := NewTestMocks()
	helper := NewMockHelper(mocks)
	helper.ExpectAccountLock(TestAliceID, testAccount(TestAliceID, math.MaxInt64-10, math.MaxInt64-10))

	svc := newTestLedgerService(mocks)
	lot, err := svc.Credit(context.Background(), TestAliceID, 100, entities.TransactionKindAdminCredit)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "overflow")
	assert.Nil(t, lot)
	mocks.AssertAllExpectations(t)
}

func TestLedgerService_Transfer_SelfTransferRejected(t *testing.T) {
	mocks := NewTestMocks()
	svc := newTestLedgerService(mocks)

	receipt, err := svc.Transfer(context.Background(), TestAliceID, TestAliceID, 50)

	require.Error(t, err)
	assert.True(t, entities.IsKind(err, entities.ErrorKindSelfClaim))
	assert.Nil(t, receipt)
	mocks.AssertAllExpectations(t)
}

func TestLedgerService_SweepExpiredLots(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name              string
		account           *entities.Account
		expiredLots       []*entities.Lot
		activeHoldTotal   int64
		expectedForfeited int64
		setupMocks        func(*TestMocks)
	}{
		{
			name:    "forfeits unheld expired funds",
			account: testAccount(TestAliceID, 100, 100),
			expiredLots: []*entities.Lot{
				{ID: 1, AccountID: TestAliceID, Amount: 60, Remaining: 60, ExpiresAt: now.Add(-time.Hour)},
				{ID: 2, AccountID: TestAliceID, Amount: 40, Remaining: 40, ExpiresAt: now.Add(-time.Minute)},
			},
			expectedForfeited: 100,
			setupMocks: func(mocks *TestMocks) {
				mocks.LotRepo.On("SetRemaining", mock.Anything, int64(1), int64(0)).Return(nil)
				mocks.LotRepo.On("SetRemaining", mock.Anything, int64(2), int64(0)).Return(nil)
				mocks.TransactionRepo.On("Create", mock.Anything, mock.MatchedBy(func(txn *entities.Transaction) bool {
					return txn.Kind == entities.TransactionKindForfeiture && txn.Amount == 100 && txn.BalanceAfter == 0
				})).Return(nil)
			},
		},
		{
			name: "held funds are deferred until the hold resolves",
			// 100 balance, 70 under an active hold: only 30 may be forfeited
			account: testAccount(TestAliceID, 100, 30),
			expiredLots: []*entities.Lot{
				{ID: 1, AccountID: TestAliceID, Amount: 100, Remaining: 100, ExpiresAt: now.Add(-time.Hour)},
			},
			activeHoldTotal:   70,
			expectedForfeited: 30,
			setupMocks: func(mocks *TestMocks) {
				mocks.LotRepo.On("SetRemaining", mock.Anything, int64(1), int64(70)).Return(nil)
				mocks.TransactionRepo.On("Create", mock.Anything, mock.MatchedBy(func(txn *entities.Transaction) bool {
					return txn.Kind == entities.TransactionKindForfeiture && txn.Amount == 30 && txn.BalanceAfter == 70
				})).Return(nil)
			},
		},
		{
			name: "hold is pinned to the oldest lot, not just a quantity",
			// Hold of 50 pins the whole expired lot; the live lot elsewhere
			// provides the spendable headroom, so nothing may be forfeited
			account: testAccount(TestAliceID, 100, 50),
			expiredLots: []*entities.Lot{
				{ID: 1, AccountID: TestAliceID, Amount: 50, Remaining: 50, ExpiresAt: now.Add(-time.Hour)},
			},
			activeHoldTotal:   50,
			expectedForfeited: 0,
			setupMocks:        func(mocks *TestMocks) {},
		},
		{
			name:              "nothing expired is a no-op",
			account:           testAccount(TestAliceID, 100, 100),
			expiredLots:       []*entities.Lot{},
			expectedForfeited: 0,
			setupMocks:        func(mocks *TestMocks) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := NewTestMocks()
			helper := NewMockHelper(mocks)
			helper.ExpectAccountLock(TestAliceID, tt.account)
			mocks.LotRepo.On("GetExpiredByAccount", mock.Anything, TestAliceID, now).Return(tt.expiredLots, nil)
			if len(tt.expiredLots) > 0 {
				mocks.HoldRepo.On("ActiveTotalByAccount", mock.Anything, TestAliceID).Return(tt.activeHoldTotal, nil)
			}
			tt.setupMocks(mocks)
			if tt.expectedForfeited > 0 {
				helper.ExpectEventPublish(events.EventTypeBalanceChange)
				helper.ExpectEventPublish(events.EventTypeLotsForfeited)
			}

			svc := newTestLedgerService(mocks)
			forfeited, err := svc.SweepExpiredLots(context.Background(), TestAliceID, now)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedForfeited, forfeited)
			mocks.AssertAllExpectations(t)
		})
	}
}

func TestLedgerService_Summary(t *testing.T) {
	mocks := NewTestMocks()
	account := testAccount(TestAliceID, 150, 50)
	mocks.AccountRepo.On("GetByID", mock.Anything, TestAliceID).Return(account, nil)

	expirations := []entities.LotExpiration{
		{LotID: 1, Remaining: 50, ExpiresAt: time.Now().Add(24 * time.Hour)},
	}
	mocks.LotRepo.On("GetUpcomingExpirations", mock.Anything, TestAliceID, 5).Return(expirations, nil)

	svc := newTestLedgerService(mocks)
	summary, err := svc.Summary(context.Background(), TestAliceID)

	require.NoError(t, err)
	assert.Equal(t, int64(150), summary.Balance)
	assert.Equal(t, int64(50), summary.SpendableBalance)
	assert.Equal(t, int64(100), summary.HeldAmount)
	assert.Equal(t, expirations, summary.UpcomingExpirations)
	mocks.AssertAllExpectations(t)
}
