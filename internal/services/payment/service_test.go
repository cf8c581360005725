package payment

import (
	"context"
	"fmt"
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
	buyerID  uint = 1
	sellerID uint = 2

	callbackToken = "cb-secret"
)

type paymentFixture struct {
	manager repositories.Manager
	wallets wallet.Service
	orders  order.Service
	events  Service
	buyerW  *models.Wallet
	sellerW *models.Wallet
}

func newPaymentFixture(t *testing.T) *paymentFixture {
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
	events := NewService(manager, orders, wallets, map[string]Verifier{
		"xendit": NewCallbackTokenVerifier(callbackToken),
	}, DefaultConfig())

	return &paymentFixture{
		manager: manager,
		wallets: wallets,
		orders:  orders,
		events:  events,
		buyerW:  buyerW,
		sellerW: sellerW,
	}
}

// acceptedOrder creates an order awaiting payment and returns it with its
// provider correlation reference.
func (f *paymentFixture) acceptedOrder(t *testing.T, amount int64) *models.Order {
	t.Helper()
	ctx := context.Background()
	counterparty := buyerID
	o, err := f.orders.Create(ctx, order.CreateInput{
		InitiatorID:    sellerID,
		CounterpartyID: &counterparty,
		InitiatorRole:  models.OrderRoleSeller,
		Title:          "handmade desk",
		AmountMinor:    amount,
	})
	require.NoError(t, err)
	o, err = f.orders.Accept(ctx, o.ID, buyerID)
	require.NoError(t, err)
	return o
}

func invoicePayload(eventID, externalID, status string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"event_type":"invoice","external_id":%q,"status":%q}`,
		eventID, externalID, status))
}

func disbursementPayload(eventID, externalID, status string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"event_type":"disbursement","external_id":%q,"status":%q}`,
		eventID, externalID, status))
}

func TestIngestPaidInvoiceSettlesOrder(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	o := f.acceptedOrder(t, 2_500_000)
	event, err := f.events.Ingest(ctx, IngestInput{
		Provider:  "xendit",
		Signature: callbackToken,
		Payload:   invoicePayload("evt-1", o.ExternalRef, "PAID"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentEventProcessed, event.Status)
	assert.True(t, event.SignatureValid)
	require.NotNil(t, event.LinkedOrderID)
	assert.Equal(t, o.ID, *event.LinkedOrderID)
	require.NotNil(t, event.ProcessedAt)

	updated, err := f.manager.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, updated.Status)
	require.NotNil(t, updated.PaidAt)

	buyerW, err := f.manager.Wallets().GetByID(ctx, f.buyerW.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2_500_000), buyerW.LockedMinor)
}

func TestDuplicateDeliveryReturnsOriginalRecord(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	o := f.acceptedOrder(t, 1_000)
	input := IngestInput{
		Provider:  "xendit",
		Signature: callbackToken,
		Payload:   invoicePayload("evt-dup", o.ExternalRef, "PAID"),
	}
	first, err := f.events.Ingest(ctx, input)
	require.NoError(t, err)

	second, err := f.events.Ingest(ctx, input)
	assert.ErrorIs(t, err, errors.ErrDuplicateEvent)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	// the escrow was locked exactly once
	buyerW, err := f.manager.Wallets().GetByID(ctx, f.buyerW.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), buyerW.LockedMinor)
}

func TestBadSignatureRecordsFailureWithoutSideEffects(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	o := f.acceptedOrder(t, 1_000)
	event, err := f.events.Ingest(ctx, IngestInput{
		Provider:  "xendit",
		Signature: "wrong-token",
		Payload:   invoicePayload("evt-forged", o.ExternalRef, "PAID"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentEventFailed, event.Status)
	assert.False(t, event.SignatureValid)
	assert.Equal(t, 1, event.RetryCount)

	updated, err := f.manager.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAccepted, updated.Status)
}

func TestRedeliveryWithValidSignatureRecovers(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	o := f.acceptedOrder(t, 1_000)
	forged := invoicePayload("evt-retry", o.ExternalRef, "PENDING")
	genuine := invoicePayload("evt-retry", o.ExternalRef, "PAID")

	_, err := f.events.Ingest(ctx, IngestInput{Provider: "xendit", Signature: "bad", Payload: forged})
	require.NoError(t, err)

	event, err := f.events.Ingest(ctx, IngestInput{Provider: "xendit", Signature: callbackToken, Payload: genuine})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentEventProcessed, event.Status)
	assert.True(t, event.SignatureValid)
	// the audit row carries the authenticated body, not the first delivery's
	assert.Equal(t, string(genuine), event.PayloadJSON)

	updated, err := f.manager.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, updated.Status)
}

func TestForgedRedeliveryOfFailedEventNotApplied(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	// an authentic delivery fails because its reference resolves to nothing
	authentic := invoicePayload("evt-hijack", "no-such-ref", "PAID")
	event, err := f.events.Ingest(ctx, IngestInput{
		Provider:  "xendit",
		Signature: callbackToken,
		Payload:   authentic,
	})
	require.NoError(t, err)
	require.Equal(t, models.PaymentEventFailed, event.Status)
	require.True(t, event.SignatureValid)

	// a forged body reusing that event id points at a real unpaid order
	o := f.acceptedOrder(t, 1_000_000)
	event, err = f.events.Ingest(ctx, IngestInput{
		Provider:  "xendit",
		Signature: "wrong-token",
		Payload:   invoicePayload("evt-hijack", o.ExternalRef, "PAID"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentEventFailed, event.Status)
	assert.Contains(t, event.ProcessingError, "authenticity")

	updated, err := f.manager.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAccepted, updated.Status)

	buyerW, err := f.manager.Wallets().GetByID(ctx, f.buyerW.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), buyerW.AvailableMinor)
	assert.Equal(t, int64(0), buyerW.LockedMinor)

	// the stored payload is still the authentic one, so the retry sweep
	// re-applies the original body
	stored, err := f.manager.PaymentEvents().Find(ctx, "xendit", "evt-hijack")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, string(authentic), stored.PayloadJSON)
}

func TestUnknownProviderRecordsFailure(t *testing.T) {
	f := newPaymentFixture(t)

	event, err := f.events.Ingest(context.Background(), IngestInput{
		Provider:  "paypal",
		Signature: "anything",
		Payload:   invoicePayload("evt-paypal", "ref", "PAID"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentEventFailed, event.Status)
	assert.Contains(t, event.ProcessingError, "provider")
}

func TestExpiredInvoiceCancelsUnpaidOrder(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	o := f.acceptedOrder(t, 1_000)
	event, err := f.events.Ingest(ctx, IngestInput{
		Provider:  "xendit",
		Signature: callbackToken,
		Payload:   invoicePayload("evt-exp", o.ExternalRef, "EXPIRED"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentEventProcessed, event.Status)

	updated, err := f.manager.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, updated.Status)
}

func TestUnknownStatusProcessesWithoutMovingMoney(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	o := f.acceptedOrder(t, 1_000)
	event, err := f.events.Ingest(ctx, IngestInput{
		Provider:  "xendit",
		Signature: callbackToken,
		Payload:   invoicePayload("evt-odd", o.ExternalRef, "SOMETHING_NEW"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentEventProcessed, event.Status)

	updated, err := f.manager.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAccepted, updated.Status)
}

func TestUnlinkedEventRecordsFailure(t *testing.T) {
	f := newPaymentFixture(t)

	event, err := f.events.Ingest(context.Background(), IngestInput{
		Provider:  "xendit",
		Signature: callbackToken,
		Payload:   invoicePayload("evt-orphan", "no-such-ref", "PAID"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentEventFailed, event.Status)
}

func TestDisbursementCompletedSettlesWithdrawal(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	require.NoError(t, f.wallets.Deposit(ctx, f.manager, f.sellerW.ID, 500_000, wallet.OrderRef(1)))
	withdrawal, err := f.wallets.RequestWithdrawal(ctx, sellerID, 500_000, "disb-1")
	require.NoError(t, err)

	event, err := f.events.Ingest(ctx, IngestInput{
		Provider:  "xendit",
		Signature: callbackToken,
		Payload:   disbursementPayload("evt-disb", "disb-1", "COMPLETED"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentEventProcessed, event.Status)
	require.NotNil(t, event.LinkedWithdrawalID)
	assert.Equal(t, withdrawal.ID, *event.LinkedWithdrawalID)

	w, err := f.manager.Withdrawals().GetByID(ctx, withdrawal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusCompleted, w.Status)
	require.NotNil(t, w.CompletedAt)

	sellerW, err := f.manager.Wallets().GetByID(ctx, f.sellerW.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sellerW.AvailableMinor)
	assert.Equal(t, int64(0), sellerW.LockedMinor)
}

func TestDisbursementFailedReleasesFunds(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	require.NoError(t, f.wallets.Deposit(ctx, f.manager, f.sellerW.ID, 500_000, wallet.OrderRef(1)))
	withdrawal, err := f.wallets.RequestWithdrawal(ctx, sellerID, 500_000, "disb-2")
	require.NoError(t, err)

	_, err = f.events.Ingest(ctx, IngestInput{
		Provider:  "xendit",
		Signature: callbackToken,
		Payload:   disbursementPayload("evt-disb-fail", "disb-2", "FAILED"),
	})
	require.NoError(t, err)

	w, err := f.manager.Withdrawals().GetByID(ctx, withdrawal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusFailed, w.Status)
	require.NotNil(t, w.FailedAt)

	sellerW, err := f.manager.Wallets().GetByID(ctx, f.sellerW.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), sellerW.AvailableMinor)
	assert.Equal(t, int64(0), sellerW.LockedMinor)
}

func TestRetryFailedReappliesOutOfOrderDelivery(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	// the disbursement callback lands before the withdrawal exists
	event, err := f.events.Ingest(ctx, IngestInput{
		Provider:  "xendit",
		Signature: callbackToken,
		Payload:   disbursementPayload("evt-early", "disb-3", "COMPLETED"),
	})
	require.NoError(t, err)
	require.Equal(t, models.PaymentEventFailed, event.Status)

	require.NoError(t, f.wallets.Deposit(ctx, f.manager, f.sellerW.ID, 100_000, wallet.OrderRef(1)))
	_, err = f.wallets.RequestWithdrawal(ctx, sellerID, 100_000, "disb-3")
	require.NoError(t, err)

	processed, err := f.events.RetryFailed(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	event, err = f.manager.PaymentEvents().Find(ctx, "xendit", "evt-early")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, models.PaymentEventProcessed, event.Status)
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"PAID", statusSuccess},
		{"SETTLED", statusSuccess},
		{"COMPLETED", statusSuccess},
		{"PENDING", statusPending},
		{"EXPIRED", statusExpired},
		{"FAILED", statusFailed},
		{"SOMETHING_ELSE", statusPending},
		{"", statusPending},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, mapStatus(tt.provider), "status %q", tt.provider)
	}
}
