package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rekberkan/kahade-sub000/internal/errors"
	"github.com/rekberkan/kahade-sub000/internal/models"
	"github.com/rekberkan/kahade-sub000/internal/repositories"
	"github.com/rekberkan/kahade-sub000/internal/repositories/cache"
)

type ledgerFixture struct {
	manager  repositories.Manager
	service  Service
	platform *models.Wallet
	buyer    *models.Wallet
	seller   *models.Wallet
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	manager := repositories.NewMemoryManager()
	store := cache.NewMemoryStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	platform := &models.Wallet{UserID: 100, Currency: "IDR", Status: models.WalletStatusActive}
	buyer := &models.Wallet{UserID: 1, Currency: "IDR", Status: models.WalletStatusActive}
	seller := &models.Wallet{UserID: 2, Currency: "IDR", Status: models.WalletStatusActive}
	for _, w := range []*models.Wallet{platform, buyer, seller} {
		require.NoError(t, manager.Wallets().Create(ctx, w))
	}

	service := NewService(manager, store, WalletConfig{PlatformWalletID: platform.ID}, nil)
	return &ledgerFixture{
		manager:  manager,
		service:  service,
		platform: platform,
		buyer:    buyer,
		seller:   seller,
	}
}

func (f *ledgerFixture) wallet(t *testing.T, id uint) *models.Wallet {
	t.Helper()
	w, err := f.manager.Wallets().GetByID(context.Background(), id)
	require.NoError(t, err)
	return w
}

// systemTotal sums every wallet balance; only deposits and withdrawals may
// change it.
func (f *ledgerFixture) systemTotal(t *testing.T) int64 {
	t.Helper()
	total := int64(0)
	for _, id := range []uint{f.platform.ID, f.buyer.ID, f.seller.ID} {
		w := f.wallet(t, id)
		total += w.AvailableMinor + w.LockedMinor
	}
	return total
}

func TestDepositAndLock(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Deposit(ctx, f.manager, f.buyer.ID, 1_000_000, OrderRef(1)))
	require.NoError(t, f.service.Lock(ctx, f.manager, f.buyer.ID, 1_000_000, OrderRef(1)))

	buyer := f.wallet(t, f.buyer.ID)
	assert.Equal(t, int64(0), buyer.AvailableMinor)
	assert.Equal(t, int64(1_000_000), buyer.LockedMinor)
	assert.Equal(t, int64(1_000_000), f.systemTotal(t))
}

func TestLockInsufficientFunds(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Deposit(ctx, f.manager, f.buyer.ID, 500, OrderRef(1)))
	err := f.service.Lock(ctx, f.manager, f.buyer.ID, 501, OrderRef(1))
	assert.ErrorIs(t, err, errors.ErrInsufficientFunds)

	buyer := f.wallet(t, f.buyer.ID)
	assert.Equal(t, int64(500), buyer.AvailableMinor)
	assert.Equal(t, int64(0), buyer.LockedMinor)
}

func TestCaptureSettlesSellerAndFee(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Deposit(ctx, f.manager, f.buyer.ID, 1_000_000, OrderRef(1)))
	require.NoError(t, f.service.Lock(ctx, f.manager, f.buyer.ID, 1_000_000, OrderRef(1)))
	require.NoError(t, f.service.Capture(ctx, f.manager, f.buyer.ID, f.seller.ID, 1_000_000, 50_000, OrderRef(1)))

	assert.Equal(t, int64(0), f.wallet(t, f.buyer.ID).LockedMinor)
	assert.Equal(t, int64(950_000), f.wallet(t, f.seller.ID).AvailableMinor)
	assert.Equal(t, int64(50_000), f.wallet(t, f.platform.ID).AvailableMinor)
	assert.Equal(t, int64(1_000_000), f.systemTotal(t))

	// every cross-wallet pair sums to zero
	movements, err := f.manager.Movements().ListByOrderID(ctx, 1)
	require.NoError(t, err)
	pairSums := make(map[string]int64)
	for _, mv := range movements {
		if mv.Kind == models.MovementCapture || mv.Kind == models.MovementFee {
			pairSums[mv.PairID] += mv.AmountMinor
		}
	}
	for pairID, sum := range pairSums {
		assert.Zerof(t, sum, "pair %s does not sum to zero", pairID)
	}
}

func TestCaptureFeeMustStayBelowAmount(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Deposit(ctx, f.manager, f.buyer.ID, 1_000, OrderRef(1)))
	require.NoError(t, f.service.Lock(ctx, f.manager, f.buyer.ID, 1_000, OrderRef(1)))

	err := f.service.Capture(ctx, f.manager, f.buyer.ID, f.seller.ID, 1_000, 1_000, OrderRef(1))
	assert.ErrorIs(t, err, errors.ErrInvalidAmount)
	err = f.service.Capture(ctx, f.manager, f.buyer.ID, f.seller.ID, 1_000, -1, OrderRef(1))
	assert.ErrorIs(t, err, errors.ErrInvalidAmount)
}

func TestSplitArithmetic(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Deposit(ctx, f.manager, f.buyer.ID, 1_000_000, OrderRef(1)))
	require.NoError(t, f.service.Lock(ctx, f.manager, f.buyer.ID, 1_000_000, OrderRef(1)))
	require.NoError(t, f.service.Split(ctx, f.manager, f.buyer.ID, f.seller.ID, 600_000, 400_000, DisputeRef(1, 1)))

	buyer := f.wallet(t, f.buyer.ID)
	assert.Equal(t, int64(400_000), buyer.AvailableMinor)
	assert.Equal(t, int64(0), buyer.LockedMinor)
	assert.Equal(t, int64(600_000), f.wallet(t, f.seller.ID).AvailableMinor)
	assert.Equal(t, int64(1_000_000), f.systemTotal(t))
}

func TestSplitRejectsOverdraw(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Deposit(ctx, f.manager, f.buyer.ID, 1_000, OrderRef(1)))
	require.NoError(t, f.service.Lock(ctx, f.manager, f.buyer.ID, 1_000, OrderRef(1)))

	err := f.service.Split(ctx, f.manager, f.buyer.ID, f.seller.ID, 800, 300, DisputeRef(1, 1))
	assert.ErrorIs(t, err, errors.ErrInsufficientFunds)
}

func TestReclaimPullsSettledFundsBackToEscrow(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Deposit(ctx, f.manager, f.seller.ID, 600_000, DisputeRef(1, 1)))
	require.NoError(t, f.service.Reclaim(ctx, f.manager, f.seller.ID, f.buyer.ID, 600_000, DisputeRef(1, 1)))

	assert.Equal(t, int64(0), f.wallet(t, f.seller.ID).AvailableMinor)
	assert.Equal(t, int64(600_000), f.wallet(t, f.buyer.ID).LockedMinor)
	assert.Equal(t, int64(600_000), f.systemTotal(t))
}

func TestWithdrawLeavesTheSystem(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Deposit(ctx, f.manager, f.seller.ID, 500_000, WithdrawalRef(1)))
	require.NoError(t, f.service.Lock(ctx, f.manager, f.seller.ID, 500_000, WithdrawalRef(1)))
	require.NoError(t, f.service.Withdraw(ctx, f.manager, f.seller.ID, 500_000, WithdrawalRef(1)))

	seller := f.wallet(t, f.seller.ID)
	assert.Equal(t, int64(0), seller.AvailableMinor)
	assert.Equal(t, int64(0), seller.LockedMinor)
	assert.Equal(t, int64(0), f.systemTotal(t))
}

func TestFrozenWalletRejected(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	buyer := f.wallet(t, f.buyer.ID)
	buyer.Status = models.WalletStatusFrozen
	require.NoError(t, f.manager.Wallets().Save(ctx, buyer))

	err := f.service.Deposit(ctx, f.manager, f.buyer.ID, 1_000, OrderRef(1))
	assert.ErrorIs(t, err, errors.ErrWalletFrozen)
}

func TestTransferBetweenSameWalletRejected(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	err := f.service.Reclaim(ctx, f.manager, f.buyer.ID, f.buyer.ID, 1_000, DisputeRef(1, 1))
	require.Error(t, err)
	de, ok := errors.AsDomain(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION", de.Code)
}
