package services

import (
	"context"
	"testing"
	"time"

	"girinhas/domain/entities"
	"girinhas/domain/events"
	"girinhas/domain/interfaces"
	"girinhas/domain/testhelpers"

	"github.com/stretchr/testify/mock"
)

// Test constants for consistent test data
const (
	TestAliceID     = int64(100)
	TestBobID       = int64(200)
	TestCarolID     = int64(300)
	TestItemID      = int64(1)
	TestItemPrice   = int64(100)
	TestHoldID      = int64(10)
	TestLotLifetime = 90 * 24 * time.Hour
	TestTTL         = 48 * time.Hour
	TestCodeLength  = 8
)

// TestMocks aggregates all repository mocks for testing
type TestMocks struct {
	AccountRepo     *testhelpers.MockAccountRepository
	LotRepo         *testhelpers.MockLotRepository
	HoldRepo        *testhelpers.MockHoldRepository
	TransactionRepo *testhelpers.MockTransactionRepository
	ItemRepo        *testhelpers.MockItemRepository
	ReservationRepo *testhelpers.MockReservationRepository
	QueueRepo       *testhelpers.MockQueueRepository
	EventPublisher  *testhelpers.MockEventPublisher
	Ledger          *testhelpers.MockLedgerService
}

// NewTestMocks creates a new set of mocks
func NewTestMocks() *TestMocks {
	return &TestMocks{
		AccountRepo:     &testhelpers.MockAccountRepository{},
		LotRepo:         &testhelpers.MockLotRepository{},
		HoldRepo:        &testhelpers.MockHoldRepository{},
		TransactionRepo: &testhelpers.MockTransactionRepository{},
		ItemRepo:        &testhelpers.MockItemRepository{},
		ReservationRepo: &testhelpers.MockReservationRepository{},
		QueueRepo:       &testhelpers.MockQueueRepository{},
		EventPublisher:  &testhelpers.MockEventPublisher{},
		Ledger:          &testhelpers.MockLedgerService{},
	}
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.AccountRepo.AssertExpectations(t)
	m.LotRepo.AssertExpectations(t)
	m.HoldRepo.AssertExpectations(t)
	m.TransactionRepo.AssertExpectations(t)
	m.ItemRepo.AssertExpectations(t)
	m.ReservationRepo.AssertExpectations(t)
	m.QueueRepo.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
	m.Ledger.AssertExpectations(t)
}

func newTestLedgerService(m *TestMocks) interfaces.LedgerService {
	return NewLedgerService(m.AccountRepo, m.LotRepo, m.HoldRepo, m.TransactionRepo, m.EventPublisher, TestLotLifetime)
}

func newTestReservationService(m *TestMocks) interfaces.ReservationService {
	return NewReservationService(m.Ledger, m.ItemRepo, m.ReservationRepo, m.QueueRepo, m.EventPublisher, TestTTL, TestCodeLength)
}

// MockHelper provides common mock setup patterns
type MockHelper struct {
	mocks *TestMocks
	ctx   context.Context
}

// NewMockHelper creates a new mock helper
func NewMockHelper(mocks *TestMocks) *MockHelper {
	return &MockHelper{
		mocks: mocks,
		ctx:   context.Background(),
	}
}

// ExpectAccountLock sets up a locked account lookup
func (h *MockHelper) ExpectAccountLock(accountID int64, account *entities.Account) {
	h.mocks.AccountRepo.On("GetByIDForUpdate", mock.Anything, accountID).Return(account, nil)
}

// ExpectItemLock sets up a locked item lookup
func (h *MockHelper) ExpectItemLock(itemID int64, item *entities.Item) {
	h.mocks.ItemRepo.On("GetByIDForUpdate", mock.Anything, itemID).Return(item, nil)
}

// ExpectReservationLookup sets up a reservation lookup
func (h *MockHelper) ExpectReservationLookup(id int64, reservation *entities.Reservation) {
	h.mocks.ReservationRepo.On("GetByID", mock.Anything, id).Return(reservation, nil)
}

// ExpectEventPublish sets up an expectation for one event of the given type
func (h *MockHelper) ExpectEventPublish(eventType events.EventType) {
	h.mocks.EventPublisher.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		return e.Type() == eventType
	})).Return(nil)
}

// ExpectAnyEvents accepts any number of published events
func (h *MockHelper) ExpectAnyEvents() {
	h.mocks.EventPublisher.On("Publish", mock.Anything).Return(nil).Maybe()
}

// testAccount builds an account with the given balances
func testAccount(id, balance, spendable int64) *entities.Account {
	return &entities.Account{
		ID:               id,
		Username:         "tester",
		Active:           true,
		Balance:          balance,
		SpendableBalance: spendable,
	}
}

// testItem builds an item owned by Bob at the standard test price
func testItem(status entities.ItemStatus) *entities.Item {
	return &entities.Item{
		ID:             TestItemID,
		OwnerAccountID: TestBobID,
		Title:          "used bicycle",
		Price:          TestItemPrice,
		Status:         status,
	}
}

// testPendingReservation builds a pending reservation for Alice on the test item
func testPendingReservation() *entities.Reservation {
	return &entities.Reservation{
		ID:                1,
		ItemID:            TestItemID,
		ClaimantAccountID: TestAliceID,
		OwnerAccountID:    TestBobID,
		AmountHeld:        TestItemPrice,
		HoldID:            TestHoldID,
		Status:            entities.ReservationStatusPending,
		ConfirmationCode:  "ABCD2345",
		ExpiresAt:         time.Now().Add(TestTTL),
	}
}
