package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"girinhas/application"
	"girinhas/domain/entities"
	"girinhas/infrastructure"
	"girinhas/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryPositionCache is a map-backed cache for exercising the cache path
// without Redis
type memoryPositionCache struct {
	mu        sync.Mutex
	positions map[[2]int64]int
}

func newMemoryPositionCache() *memoryPositionCache {
	return &memoryPositionCache{positions: make(map[[2]int64]int)}
}

func (c *memoryPositionCache) Get(_ context.Context, itemID, accountID int64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	position, ok := c.positions[[2]int64{itemID, accountID}]
	return position, ok
}

func (c *memoryPositionCache) Set(_ context.Context, itemID, accountID int64, position int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.positions[[2]int64{itemID, accountID}] = position
}

func (c *memoryPositionCache) Invalidate(_ context.Context, itemID, accountID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.positions, [2]int64{itemID, accountID})
}

func newTradeService(t *testing.T, cfg application.TradeConfig) (*application.TradeService, application.UnitOfWorkFactory, *memoryPositionCache) {
	t.Helper()
	testDB := testutil.SetupTestDatabase(t)
	uowFactory := infrastructure.NewUnitOfWorkFactory(testDB.DB, infrastructure.NewNoopEventPublisher())
	cache := newMemoryPositionCache()
	return application.NewTradeService(uowFactory, cache, cfg), uowFactory, cache
}

func defaultTradeConfig() application.TradeConfig {
	return application.TradeConfig{
		ReservationTTL: 48 * time.Hour,
		LotLifetime:    90 * 24 * time.Hour,
		CodeLength:     8,
		SignupBonus:    500,
	}
}

func TestTradeService_FullPurchaseFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	svc, _, _ := newTradeService(t, defaultTradeConfig())

	seller, err := svc.RegisterAccount(ctx, "seller")
	require.NoError(t, err)
	buyer, err := svc.RegisterAccount(ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, int64(500), buyer.Balance)

	item, err := svc.PublishItem(ctx, seller.ID, "used bicycle", 150)
	require.NoError(t, err)
	assert.Equal(t, entities.ItemStatusAvailable, item.Status)

	result, err := svc.Claim(ctx, item.ID, buyer.ID, 150)
	require.NoError(t, err)
	require.NotNil(t, result.Reservation)

	// The claimant sees the code, the owner does not
	mine, err := svc.GetReservation(ctx, result.Reservation.ID, buyer.ID)
	require.NoError(t, err)
	assert.Len(t, mine.ConfirmationCode, 8)

	theirs, err := svc.GetReservation(ctx, result.Reservation.ID, seller.ID)
	require.NoError(t, err)
	assert.Empty(t, theirs.ConfirmationCode)

	// A stranger sees nothing at all
	stranger, err := svc.RegisterAccount(ctx, "stranger")
	require.NoError(t, err)
	_, err = svc.GetReservation(ctx, result.Reservation.ID, stranger.ID)
	require.Error(t, err)
	assert.True(t, entities.IsKind(err, entities.ErrorKindNotFound))

	// Held funds are earmarked but not moved
	wallet, err := svc.WalletSummary(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), wallet.Balance)
	assert.Equal(t, int64(350), wallet.SpendableBalance)
	assert.Equal(t, int64(150), wallet.HeldAmount)

	// Only the owner may confirm, and only with the right code
	_, err = svc.Confirm(ctx, result.Reservation.ID, mine.ConfirmationCode, buyer.ID)
	require.Error(t, err)
	assert.True(t, entities.IsKind(err, entities.ErrorKindNotFound))

	receipt, err := svc.Confirm(ctx, result.Reservation.ID, mine.ConfirmationCode, seller.ID)
	require.NoError(t, err)
	require.NotNil(t, receipt.Debit)
	require.NotNil(t, receipt.Credit)
	assert.Equal(t, receipt.Debit.TransferID, receipt.Credit.TransferID)

	buyerWallet, err := svc.WalletSummary(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(350), buyerWallet.Balance)
	assert.Equal(t, int64(350), buyerWallet.SpendableBalance)

	sellerWallet, err := svc.WalletSummary(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(650), sellerWallet.Balance)

	soldItem, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ItemStatusSold, soldItem.Status)

	// Both sides see the purchase in their history
	buyerTxns, err := svc.ListTransactions(ctx, buyer.ID, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, buyerTxns)
	assert.Equal(t, entities.TransactionKindPurchase, buyerTxns[0].Kind)
}

func TestTradeService_QueueAndCache(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	svc, _, cache := newTradeService(t, defaultTradeConfig())

	seller, err := svc.RegisterAccount(ctx, "seller")
	require.NoError(t, err)
	first, err := svc.RegisterAccount(ctx, "first")
	require.NoError(t, err)
	second, err := svc.RegisterAccount(ctx, "second")
	require.NoError(t, err)

	item, err := svc.PublishItem(ctx, seller.ID, "rare vinyl", 100)
	require.NoError(t, err)

	firstResult, err := svc.Claim(ctx, item.ID, first.ID, 100)
	require.NoError(t, err)
	require.NotNil(t, firstResult.Reservation)

	secondResult, err := svc.Claim(ctx, item.ID, second.ID, 100)
	require.NoError(t, err)
	require.NotNil(t, secondResult.QueueEntry)
	assert.Equal(t, 1, secondResult.QueueEntry.Position)

	// First lookup hits the database and warms the cache
	position, err := svc.QueuePosition(ctx, item.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, position)

	cached, ok := cache.Get(ctx, item.ID, second.ID)
	require.True(t, ok)
	assert.Equal(t, 1, cached)

	// Leaving the queue invalidates the cached position
	left, err := svc.LeaveQueue(ctx, item.ID, second.ID)
	require.NoError(t, err)
	assert.True(t, left)

	_, ok = cache.Get(ctx, item.ID, second.ID)
	assert.False(t, ok)

	position, err = svc.QueuePosition(ctx, item.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, position)
}

func TestTradeService_CancelPromotesNextInLine(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	svc, _, _ := newTradeService(t, defaultTradeConfig())

	seller, err := svc.RegisterAccount(ctx, "seller")
	require.NoError(t, err)
	first, err := svc.RegisterAccount(ctx, "first")
	require.NoError(t, err)
	second, err := svc.RegisterAccount(ctx, "second")
	require.NoError(t, err)

	item, err := svc.PublishItem(ctx, seller.ID, "standing desk", 200)
	require.NoError(t, err)

	firstResult, err := svc.Claim(ctx, item.ID, first.ID, 200)
	require.NoError(t, err)
	require.NotNil(t, firstResult.Reservation)

	_, err = svc.Claim(ctx, item.ID, second.ID, 200)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, firstResult.Reservation.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, cancelled)

	// Promotion held the next claimant's funds
	wallet, err := svc.WalletSummary(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), wallet.HeldAmount)

	// The promoted reservation is visible to its claimant
	reservedItem, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ItemStatusReserved, reservedItem.Status)

	// Second cancel of the same reservation is a no-op
	cancelled, err = svc.Cancel(ctx, firstResult.Reservation.ID, first.ID)
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestTradeService_ClaimValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	svc, _, _ := newTradeService(t, defaultTradeConfig())

	seller, err := svc.RegisterAccount(ctx, "seller")
	require.NoError(t, err)
	buyer, err := svc.RegisterAccount(ctx, "buyer")
	require.NoError(t, err)

	item, err := svc.PublishItem(ctx, seller.ID, "espresso machine", 600)
	require.NoError(t, err)

	// The 500 signup bonus cannot cover a 600 item
	_, err = svc.Claim(ctx, item.ID, buyer.ID, 600)
	require.Error(t, err)
	assert.True(t, entities.IsKind(err, entities.ErrorKindInsufficientFunds))

	_, err = svc.Claim(ctx, item.ID, seller.ID, 600)
	require.Error(t, err)
	assert.True(t, entities.IsKind(err, entities.ErrorKindSelfClaim))

	_, err = svc.Claim(ctx, item.ID, buyer.ID, 550)
	require.Error(t, err)
	assert.True(t, entities.IsKind(err, entities.ErrorKindPriceMismatch))

	// Failed claims leave the item untouched
	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ItemStatusAvailable, got.Status)
}

func TestTradeService_TransferAndCredit(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	svc, _, _ := newTradeService(t, defaultTradeConfig())

	alice, err := svc.RegisterAccount(ctx, "alice")
	require.NoError(t, err)
	bob, err := svc.RegisterAccount(ctx, "bob")
	require.NoError(t, err)

	lot, err := svc.CreditAccount(ctx, alice.ID, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), lot.Amount)

	receipt, err := svc.Transfer(ctx, alice.ID, bob.ID, 300)
	require.NoError(t, err)
	assert.Equal(t, receipt.Debit.TransferID, receipt.Credit.TransferID)

	aliceWallet, err := svc.WalletSummary(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), aliceWallet.Balance)

	bobWallet, err := svc.WalletSummary(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(800), bobWallet.Balance)
}

func TestExpirationWorker_CancelsOverdueReservations(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	cfg := defaultTradeConfig()
	cfg.ReservationTTL = 50 * time.Millisecond
	svc, uowFactory, _ := newTradeService(t, cfg)

	seller, err := svc.RegisterAccount(ctx, "seller")
	require.NoError(t, err)
	buyer, err := svc.RegisterAccount(ctx, "buyer")
	require.NoError(t, err)

	item, err := svc.PublishItem(ctx, seller.ID, "camping tent", 100)
	require.NoError(t, err)

	result, err := svc.Claim(ctx, item.ID, buyer.ID, 100)
	require.NoError(t, err)
	require.NotNil(t, result.Reservation)

	worker := application.NewExpirationWorker(uowFactory, 20*time.Millisecond, cfg)
	stop := worker.Start(ctx)
	defer stop()

	require.Eventually(t, func() bool {
		reservation, err := svc.GetReservation(ctx, result.Reservation.ID, buyer.ID)
		if err != nil {
			return false
		}
		return reservation.Status == entities.ReservationStatusExpired
	}, 5*time.Second, 25*time.Millisecond)

	// The hold was released and the item went back on the market
	wallet, err := svc.WalletSummary(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.HeldAmount)

	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ItemStatusAvailable, got.Status)
}
