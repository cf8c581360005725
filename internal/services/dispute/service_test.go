package dispute

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rekberkan/kahade-sub000/internal/errors"
	"github.com/rekberkan/kahade-sub000/internal/models"
	"github.com/rekberkan/kahade-sub000/internal/repositories"
	"github.com/rekberkan/kahade-sub000/internal/repositories/cache"
	"github.com/rekberkan/kahade-sub000/internal/services/order"
	"github.com/rekberkan/kahade-sub000/internal/services/wallet"
)

const (
	buyerID      uint = 1
	sellerID     uint = 2
	adminID      uint = 10
	arbitratorID uint = 11
)

type disputeFixture struct {
	manager  repositories.Manager
	wallets  wallet.Service
	orders   order.Service
	disputes Service
	buyerW   *models.Wallet
	sellerW  *models.Wallet
	platform *models.Wallet
}

func newDisputeFixture(t *testing.T) *disputeFixture {
	t.Helper()
	manager := repositories.NewMemoryManager()
	store := cache.NewMemoryStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	platform := &models.Wallet{UserID: 100, Currency: "IDR", Status: models.WalletStatusActive}
	buyerW := &models.Wallet{UserID: buyerID, Currency: "IDR", Status: models.WalletStatusActive}
	sellerW := &models.Wallet{UserID: sellerID, Currency: "IDR", Status: models.WalletStatusActive}
	for _, w := range []*models.Wallet{platform, buyerW, sellerW} {
		require.NoError(t, manager.Wallets().Create(ctx, w))
	}

	wallets := wallet.NewService(manager, store, wallet.WalletConfig{PlatformWalletID: platform.ID}, nil)
	orders := order.NewService(manager, wallets)
	disputes := NewService(manager, orders, wallets, Config{PlatformWalletID: platform.ID})

	return &disputeFixture{
		manager:  manager,
		wallets:  wallets,
		orders:   orders,
		disputes: disputes,
		buyerW:   buyerW,
		sellerW:  sellerW,
		platform: platform,
	}
}

// paidOrder drives an order to PAID with the escrow locked on the buyer.
func (f *disputeFixture) paidOrder(t *testing.T, amount, fee int64) *models.Order {
	t.Helper()
	ctx := context.Background()
	counterparty := buyerID
	o, err := f.orders.Create(ctx, order.CreateInput{
		InitiatorID:    sellerID,
		CounterpartyID: &counterparty,
		InitiatorRole:  models.OrderRoleSeller,
		Title:          "disputed goods",
		AmountMinor:    amount,
		FeeMinor:       fee,
	})
	require.NoError(t, err)
	_, err = f.orders.Accept(ctx, o.ID, buyerID)
	require.NoError(t, err)
	require.NoError(t, f.wallets.Deposit(ctx, f.manager, f.buyerW.ID, amount, wallet.OrderRef(o.ID)))
	o, err = f.orders.Pay(ctx, o.ID, buyerID)
	require.NoError(t, err)
	return o
}

// decided opens, escalates, assigns and resolves a dispute in one move.
func (f *disputeFixture) decided(t *testing.T, o *models.Order, input ResolveInput) *models.Dispute {
	t.Helper()
	ctx := context.Background()
	d, err := f.disputes.Create(ctx, o.ID, buyerID, "item not as described")
	require.NoError(t, err)
	_, err = f.disputes.Escalate(ctx, d.ID, adminID)
	require.NoError(t, err)
	_, err = f.disputes.AssignArbitrator(ctx, d.ID, adminID, arbitratorID)
	require.NoError(t, err)
	d, err = f.disputes.Resolve(ctx, d.ID, arbitratorID, input)
	require.NoError(t, err)
	return d
}

func (f *disputeFixture) wallet(t *testing.T, id uint) *models.Wallet {
	t.Helper()
	w, err := f.manager.Wallets().GetByID(context.Background(), id)
	require.NoError(t, err)
	return w
}

func TestCreateFreezesOrderAndStartsTimeline(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	o := f.paidOrder(t, 1_000_000, 50_000)
	d, err := f.disputes.Create(ctx, o.ID, buyerID, "never arrived")
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusOpen, d.Status)
	require.NotNil(t, d.ResponseDeadline)

	updated, err := f.manager.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDisputed, updated.Status)

	entries, err := f.manager.Timeline().ListByDisputeID(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.TimelineOpened, entries[0].Action)
	assert.Equal(t, buyerID, entries[0].PerformedBy)
}

func TestSecondDisputeOnSameOrderRejected(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	o := f.paidOrder(t, 1_000, 0)
	_, err := f.disputes.Create(ctx, o.ID, buyerID, "first")
	require.NoError(t, err)

	// the order is already DISPUTED, so the transition guard fires
	_, err = f.disputes.Create(ctx, o.ID, sellerID, "second")
	require.Error(t, err)
}

func TestConcurrentOpensYieldOneDispute(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	o := f.paidOrder(t, 1_000, 0)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, caller := range []uint{buyerID, sellerID} {
		wg.Add(1)
		go func(i int, caller uint) {
			defer wg.Done()
			_, errs[i] = f.disputes.Create(ctx, o.ID, caller, "raced open")
		}(i, caller)
	}
	wg.Wait()

	// exactly one open wins the DISPUTED transition, the other loses under
	// the row lock
	opened := 0
	for _, err := range errs {
		if err == nil {
			opened++
		}
	}
	assert.Equal(t, 1, opened)

	updated, err := f.manager.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDisputed, updated.Status)

	d, err := f.manager.Disputes().GetOpenByOrderID(ctx, o.ID)
	require.NoError(t, err)
	entries, err := f.manager.Timeline().ListByDisputeID(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOutsiderCannotOpenDispute(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	o := f.paidOrder(t, 1_000, 0)
	_, err := f.disputes.Create(ctx, o.ID, 99, "not my order")
	assert.ErrorIs(t, err, errors.ErrNotOrderParty)
}

func TestRespondOnlyByNonOpeningParty(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	o := f.paidOrder(t, 1_000, 0)
	d, err := f.disputes.Create(ctx, o.ID, buyerID, "damaged")
	require.NoError(t, err)

	_, err = f.disputes.Respond(ctx, d.ID, buyerID, "responding to myself")
	require.Error(t, err)

	d, err = f.disputes.Respond(ctx, d.ID, sellerID, "it was fine when shipped")
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResponded, d.Status)
}

func TestAssignArbitratorFromOpenEscalatesImplicitly(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	o := f.paidOrder(t, 1_000, 0)
	d, err := f.disputes.Create(ctx, o.ID, buyerID, "no response")
	require.NoError(t, err)

	d, err = f.disputes.AssignArbitrator(ctx, d.ID, adminID, arbitratorID)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusUnderArbitration, d.Status)
	require.NotNil(t, d.ArbitratorID)
	assert.Equal(t, arbitratorID, *d.ArbitratorID)

	entries, err := f.manager.Timeline().ListByDisputeID(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.TimelineEscalated, entries[1].Action)
	assert.Equal(t, models.TimelineArbitratorAssigned, entries[2].Action)
}

func TestResolveReleaseAllToSeller(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	o := f.paidOrder(t, 1_000_000, 50_000)
	d := f.decided(t, o, ResolveInput{Decision: models.DecisionReleaseAllToSeller})

	assert.Equal(t, models.DisputeStatusDecided, d.Status)
	assert.True(t, d.Settled)
	require.NotNil(t, d.AppealDeadline)
	assert.Equal(t, int64(950_000), d.SellerAmountMinor)

	updated, err := f.manager.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, updated.Status)

	assert.Equal(t, int64(950_000), f.wallet(t, f.sellerW.ID).AvailableMinor)
	assert.Equal(t, int64(50_000), f.wallet(t, f.platform.ID).AvailableMinor)
	assert.Equal(t, int64(0), f.wallet(t, f.buyerW.ID).LockedMinor)
}

func TestResolveRefundAllToBuyer(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	o := f.paidOrder(t, 1_000_000, 50_000)
	f.decided(t, o, ResolveInput{Decision: models.DecisionRefundAllToBuyer})

	updated, err := f.manager.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, updated.Status)

	buyerW := f.wallet(t, f.buyerW.ID)
	assert.Equal(t, int64(1_000_000), buyerW.AvailableMinor)
	assert.Equal(t, int64(0), buyerW.LockedMinor)
	assert.Equal(t, int64(0), f.wallet(t, f.sellerW.ID).AvailableMinor)
}

func TestResolveSplitSettlement(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	o := f.paidOrder(t, 1_000_000, 0)
	d := f.decided(t, o, ResolveInput{
		Decision:          models.DecisionSplitSettlement,
		SellerAmountMinor: 600_000,
		BuyerRefundMinor:  400_000,
	})

	assert.Equal(t, int64(600_000), d.SellerAmountMinor)
	assert.Equal(t, int64(400_000), d.BuyerRefundMinor)

	updated, err := f.manager.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, updated.Status)

	assert.Equal(t, int64(600_000), f.wallet(t, f.sellerW.ID).AvailableMinor)
	buyerW := f.wallet(t, f.buyerW.ID)
	assert.Equal(t, int64(400_000), buyerW.AvailableMinor)
	assert.Equal(t, int64(0), buyerW.LockedMinor)
}

func TestResolveSplitRejectsOverAllocation(t *testing.T) {
	f := newDisputeFixture(t)
	o := f.paidOrder(t, 1_000, 0)
	ctx := context.Background()

	d, err := f.disputes.Create(ctx, o.ID, buyerID, "partial damage")
	require.NoError(t, err)
	_, err = f.disputes.Escalate(ctx, d.ID, adminID)
	require.NoError(t, err)
	_, err = f.disputes.AssignArbitrator(ctx, d.ID, adminID, arbitratorID)
	require.NoError(t, err)

	_, err = f.disputes.Resolve(ctx, d.ID, arbitratorID, ResolveInput{
		Decision:          models.DecisionSplitSettlement,
		SellerAmountMinor: 800,
		BuyerRefundMinor:  300,
	})
	require.Error(t, err)
}

func TestResolveCancelVoidReleasesEscrow(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	o := f.paidOrder(t, 1_000_000, 0)
	f.decided(t, o, ResolveInput{Decision: models.DecisionCancelVoid})

	updated, err := f.manager.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, updated.Status)
	assert.Equal(t, int64(1_000_000), f.wallet(t, f.buyerW.ID).AvailableMinor)
}

func TestResolveRejectsUnknownDecision(t *testing.T) {
	f := newDisputeFixture(t)
	_, err := f.disputes.Resolve(context.Background(), 1, arbitratorID, ResolveInput{Decision: "FLIP_A_COIN"})
	assert.ErrorIs(t, err, errors.ErrInvalidDecision)
}

func TestAppealUnwindsSettlement(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	o := f.paidOrder(t, 1_000_000, 50_000)
	d := f.decided(t, o, ResolveInput{Decision: models.DecisionReleaseAllToSeller})

	d, err := f.disputes.Appeal(ctx, d.ID, buyerID, "new evidence")
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusAppealed, d.Status)
	assert.False(t, d.Settled)
	assert.Equal(t, 1, d.AppealCount)
	assert.Nil(t, d.AppealDeadline)

	// the settlement is fully unwound: escrow back on the buyer, order
	// back in dispute
	assert.Equal(t, int64(0), f.wallet(t, f.sellerW.ID).AvailableMinor)
	assert.Equal(t, int64(0), f.wallet(t, f.platform.ID).AvailableMinor)
	assert.Equal(t, int64(1_000_000), f.wallet(t, f.buyerW.ID).LockedMinor)

	updated, err := f.manager.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDisputed, updated.Status)

	// re-review reaches the opposite outcome
	_, err = f.disputes.Resolve(ctx, d.ID, arbitratorID, ResolveInput{Decision: models.DecisionRefundAllToBuyer})
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), f.wallet(t, f.buyerW.ID).AvailableMinor)
}

func TestAppealFailsWhenRecipientSpentTheFunds(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	o := f.paidOrder(t, 1_000_000, 0)
	d := f.decided(t, o, ResolveInput{Decision: models.DecisionReleaseAllToSeller})

	// the seller moves the settled funds out before the appeal lands
	require.NoError(t, f.wallets.Lock(ctx, f.manager, f.sellerW.ID, 1_000_000, wallet.WithdrawalRef(1)))
	require.NoError(t, f.wallets.Withdraw(ctx, f.manager, f.sellerW.ID, 1_000_000, wallet.WithdrawalRef(1)))

	_, err := f.disputes.Appeal(ctx, d.ID, buyerID, "too late")
	assert.ErrorIs(t, err, errors.ErrInsufficientFunds)
}

func TestAppealAfterDeadlineRejected(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	o := f.paidOrder(t, 1_000, 0)
	d := f.decided(t, o, ResolveInput{Decision: models.DecisionReleaseAllToSeller})

	past := time.Now().Add(-time.Minute)
	d.AppealDeadline = &past
	require.NoError(t, f.manager.Disputes().Save(ctx, d))

	_, err := f.disputes.Appeal(ctx, d.ID, buyerID, "expired")
	assert.ErrorIs(t, err, errors.ErrDeadlinePassed)
}

func TestCloseExpiredSweep(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	o := f.paidOrder(t, 1_000, 0)
	d := f.decided(t, o, ResolveInput{Decision: models.DecisionReleaseAllToSeller})

	past := time.Now().Add(-time.Minute)
	d.AppealDeadline = &past
	require.NoError(t, f.manager.Disputes().Save(ctx, d))

	closed, err := f.disputes.CloseExpired(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	d, err = f.manager.Disputes().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusClosed, d.Status)
	require.NotNil(t, d.ClosedAt)

	// sweep is idempotent
	closed, err = f.disputes.CloseExpired(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)
}

func TestEvidenceAppendsTimelineWithoutStatusChange(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	o := f.paidOrder(t, 1_000, 0)
	d, err := f.disputes.Create(ctx, o.ID, buyerID, "wrong color")
	require.NoError(t, err)

	d, err = f.disputes.SubmitEvidence(ctx, d.ID, sellerID, "shipping photo", []string{"https://cdn.example/p.jpg"})
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusOpen, d.Status)

	entries, err := f.manager.Timeline().ListByDisputeID(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.TimelineEvidenceSubmitted, entries[1].Action)
}
