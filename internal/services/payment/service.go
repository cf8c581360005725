// Package payment ingests payment-provider callbacks. Every delivery runs the
// same pipeline: authenticate, persist the audit record before any side
// effect, dedupe on (provider, external event id), apply the financial effect
// in one transaction, finalize the audit record with the true outcome. The
// HTTP acknowledgment is always success-shaped; the audit trail is where the
// truth lives.
package payment

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/rekberkan/kahade-sub000/internal/errors"
	"github.com/rekberkan/kahade-sub000/internal/models"
	"github.com/rekberkan/kahade-sub000/internal/repositories"
	"github.com/rekberkan/kahade-sub000/internal/services/order"
	"github.com/rekberkan/kahade-sub000/internal/services/wallet"
)

// providerEvent is the common envelope across supported providers: a
// provider-assigned event id, the business reference the event settles, and
// the provider's status word.
type providerEvent struct {
	ID         string `json:"id"`
	EventType  string `json:"event_type"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

func parseEvent(payload []byte) (providerEvent, error) {
	var env providerEvent
	if err := json.Unmarshal(payload, &env); err != nil {
		return env, errors.Validation("unparseable event payload")
	}
	if env.ID == "" {
		return env, errors.Validation("event payload has no id")
	}
	return env, nil
}

// mapStatus folds the provider status vocabulary into internal outcomes.
// Unknown words map to pending: an unrecognized status must never move money.
func mapStatus(providerStatus string) string {
	switch providerStatus {
	case "PAID", "SETTLED", "COMPLETED":
		return statusSuccess
	case "PENDING":
		return statusPending
	case "EXPIRED":
		return statusExpired
	case "FAILED":
		return statusFailed
	default:
		return statusPending
	}
}

func eventType(env providerEvent) string {
	switch env.EventType {
	case models.EventTypeInvoice, models.EventTypeDisbursement, models.EventTypeVirtualAccount:
		return env.EventType
	default:
		return models.EventTypeInvoice
	}
}

type service struct {
	manager   repositories.Manager
	orders    order.Service
	ledger    wallet.Ledger
	verifiers map[string]Verifier
	config    Config
}

// NewService creates a new payment ingestion service
func NewService(manager repositories.Manager, orders order.Service, ledger wallet.Ledger, verifiers map[string]Verifier, config Config) Service {
	if manager == nil {
		panic("manager is required")
	}
	if orders == nil {
		panic("order service is required")
	}
	if ledger == nil {
		panic("ledger is required")
	}
	if len(verifiers) == 0 {
		panic("at least one provider verifier is required")
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultConfig().MaxRetries
	}
	return &service{manager: manager, orders: orders, ledger: ledger, verifiers: verifiers, config: config}
}

func (s *service) Ingest(ctx context.Context, input IngestInput) (*models.PaymentEvent, error) {
	verifier, known := s.verifiers[input.Provider]
	env, parseErr := parseEvent(input.Payload)

	eventID := env.ID
	if eventID == "" {
		// Unparseable deliveries still get an audit row, keyed so the
		// unique index cannot collide with a real event.
		eventID = "unparsed-" + uuid.NewString()
	}

	signatureValid := known && verifier.Verify(input.Payload, input.Signature)

	event, err := s.manager.PaymentEvents().Find(ctx, input.Provider, eventID)
	if err != nil {
		return nil, err
	}
	if event != nil && event.Status == models.PaymentEventProcessed {
		return event, errors.ErrDuplicateEvent
	}
	if event == nil {
		event = &models.PaymentEvent{
			Provider:        input.Provider,
			ExternalEventID: eventID,
			EventType:       eventType(env),
			PayloadJSON:     string(input.Payload),
			SignatureValid:  signatureValid,
			Status:          models.PaymentEventPending,
		}
		if err := s.manager.PaymentEvents().Create(ctx, event); err != nil {
			return nil, err
		}
	} else if signatureValid {
		// An authenticated re-delivery supersedes the stored payload, so
		// the audit row always carries the body that gets applied.
		event.SignatureValid = true
		event.PayloadJSON = string(input.Payload)
		event.EventType = eventType(env)
	}

	switch {
	case !known:
		return s.finalize(ctx, event, errors.ErrUnknownProvider)
	case !signatureValid:
		// Gate on this delivery's verification. The stored flag only says
		// an earlier delivery authenticated; a body that failed
		// verification is never applied, and the stored payload stays
		// untouched for the retry sweep.
		return s.finalize(ctx, event, errors.ErrInvalidSignature)
	case parseErr != nil:
		return s.finalize(ctx, event, parseErr)
	}

	return s.finalize(ctx, event, s.apply(ctx, event, env))
}

// finalize records the true outcome on the audit row. It runs outside the
// apply transaction so a rolled-back apply still leaves a FAILED record.
func (s *service) finalize(ctx context.Context, event *models.PaymentEvent, applyErr error) (*models.PaymentEvent, error) {
	if applyErr != nil {
		event.Status = models.PaymentEventFailed
		event.ProcessingError = applyErr.Error()
		event.RetryCount++
	} else {
		now := time.Now()
		event.Status = models.PaymentEventProcessed
		event.ProcessingError = ""
		event.ProcessedAt = &now
	}
	if err := s.manager.PaymentEvents().Save(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) apply(ctx context.Context, event *models.PaymentEvent, env providerEvent) error {
	if env.ExternalID == "" {
		return errors.ErrEventUnlinked
	}
	if event.EventType == models.EventTypeDisbursement {
		return s.applyDisbursement(ctx, event, env)
	}
	return s.applyInvoice(ctx, event, env)
}

// applyInvoice settles an inbound payment against its order. Invoice and
// virtual-account events carry the order's external reference.
func (s *service) applyInvoice(ctx context.Context, event *models.PaymentEvent, env providerEvent) error {
	return s.manager.WithinTransaction(ctx, func(uow repositories.UnitOfWork) error {
		o, err := uow.Orders().GetByExternalRef(ctx, env.ExternalID)
		if err != nil {
			if goerrors.Is(err, errors.ErrOrderNotFound) {
				return errors.ErrEventUnlinked
			}
			return err
		}
		orderID := o.ID
		event.LinkedOrderID = &orderID

		switch mapStatus(env.Status) {
		case statusSuccess:
			if o.PaidAt != nil {
				// A later SETTLED echo of an already-paid invoice.
				return nil
			}
			_, err := s.orders.MarkPaidFromProvider(ctx, uow, o.ID)
			return err
		case statusExpired, statusFailed:
			_, err := s.orders.CancelFromProvider(ctx, uow, o.ID)
			return err
		default:
			return nil
		}
	})
}

// applyDisbursement settles an outbound payout against its withdrawal: a
// confirmed disbursement takes the locked funds out of the platform, a failed
// one releases them back to the user.
func (s *service) applyDisbursement(ctx context.Context, event *models.PaymentEvent, env providerEvent) error {
	return s.manager.WithinTransaction(ctx, func(uow repositories.UnitOfWork) error {
		w, err := uow.Withdrawals().GetByExternalRef(ctx, env.ExternalID)
		if err != nil {
			if goerrors.Is(err, errors.ErrWithdrawalNotFound) {
				return errors.ErrEventUnlinked
			}
			return err
		}
		w, err = uow.Withdrawals().GetForUpdate(ctx, w.ID)
		if err != nil {
			return err
		}
		withdrawalID := w.ID
		event.LinkedWithdrawalID = &withdrawalID

		if w.Status != models.WithdrawalStatusPending {
			return nil
		}
		now := time.Now()
		switch mapStatus(env.Status) {
		case statusSuccess:
			if err := s.ledger.Withdraw(ctx, uow, w.WalletID, w.AmountMinor, wallet.WithdrawalRef(w.ID)); err != nil {
				return err
			}
			w.Status = models.WithdrawalStatusCompleted
			w.CompletedAt = &now
		case statusExpired, statusFailed:
			if err := s.ledger.Release(ctx, uow, w.WalletID, w.AmountMinor, wallet.WithdrawalRef(w.ID)); err != nil {
				return err
			}
			w.Status = models.WithdrawalStatusFailed
			w.FailedAt = &now
		default:
			return nil
		}
		return uow.Withdrawals().Save(ctx, w)
	})
}

func (s *service) RetryFailed(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	events, err := s.manager.PaymentEvents().ListFailedRetryable(ctx, s.config.MaxRetries, limit)
	if err != nil {
		return 0, err
	}
	processed := 0
	for i := range events {
		event := &events[i]
		env, parseErr := parseEvent([]byte(event.PayloadJSON))
		var applyErr error
		if parseErr != nil {
			applyErr = parseErr
		} else {
			applyErr = s.apply(ctx, event, env)
		}
		if _, err := s.finalize(ctx, event, applyErr); err != nil {
			return processed, err
		}
		if applyErr == nil {
			processed++
		}
	}
	return processed, nil
}
