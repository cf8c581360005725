// Package order implements the escrow order lifecycle. All transitions are
// guarded by (caller role, current state); the ones that move money compose
// the wallet ledger operation with the status write in a single storage
// transaction.
package order

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rekberkan/kahade-sub000/internal/errors"
	"github.com/rekberkan/kahade-sub000/internal/models"
	"github.com/rekberkan/kahade-sub000/internal/repositories"
	"github.com/rekberkan/kahade-sub000/internal/services/wallet"
)

type service struct {
	manager repositories.Manager
	ledger  wallet.Ledger
}

// NewService creates a new order service
func NewService(manager repositories.Manager, ledger wallet.Ledger) Service {
	if manager == nil {
		panic("manager is required")
	}
	if ledger == nil {
		panic("ledger is required")
	}
	return &service{manager: manager, ledger: ledger}
}

// EscrowAmount is what the buyer locks: the order amount, plus the fee when
// the buyer bears it. The seller-side fee comes out of the capture instead.
func EscrowAmount(o *models.Order) int64 {
	if o.FeePayer == models.FeePayerBuyer {
		return o.AmountMinor + o.FeeMinor
	}
	return o.AmountMinor
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.AmountMinor <= 0 {
		return nil, errors.ErrInvalidAmount
	}
	if input.FeeMinor < 0 || input.FeeMinor >= input.AmountMinor {
		return nil, errors.Validation("fee must be non-negative and below the order amount")
	}
	if input.InitiatorRole != models.OrderRoleBuyer && input.InitiatorRole != models.OrderRoleSeller {
		return nil, errors.Validation("initiator role must be buyer or seller")
	}
	if input.FeePayer != "" && input.FeePayer != models.FeePayerBuyer && input.FeePayer != models.FeePayerSeller {
		return nil, errors.Validation("fee payer must be buyer or seller")
	}
	if input.CounterpartyID != nil && *input.CounterpartyID == input.InitiatorID {
		return nil, errors.Validation("counterparty must differ from initiator")
	}

	order := &models.Order{
		InitiatorID:    input.InitiatorID,
		CounterpartyID: input.CounterpartyID,
		InitiatorRole:  input.InitiatorRole,
		Title:          input.Title,
		Description:    input.Description,
		AmountMinor:    input.AmountMinor,
		FeeMinor:       input.FeeMinor,
		FeePayer:       input.FeePayer,
		Currency:       input.Currency,
		Status:         models.OrderStatusPendingAccept,
		ExternalRef:    uuid.NewString(),
	}
	if order.FeePayer == "" {
		order.FeePayer = models.FeePayerSeller
	}
	if err := s.manager.Orders().Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID, callerID uint) (*models.Order, error) {
	order, err := s.manager.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParty(callerID) {
		return nil, errors.ErrNotOrderParty
	}
	return order, nil
}

func (s *service) List(ctx context.Context, callerID uint, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.manager.Orders().ListByParty(ctx, callerID, limit)
}

// transition runs one guarded status change in its own transaction. fn sees
// the row-locked order and may compose ledger operations on the same unit of
// work; the status write and any wallet mutation commit or roll back
// together.
func (s *service) transition(ctx context.Context, orderID uint, fn func(uow repositories.UnitOfWork, o *models.Order) error) (*models.Order, error) {
	var order *models.Order
	err := s.manager.WithinTransaction(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		order, err = uow.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(uow, order); err != nil {
			return err
		}
		return uow.Orders().Save(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Accept(ctx context.Context, orderID, callerID uint) (*models.Order, error) {
	return s.transition(ctx, orderID, func(uow repositories.UnitOfWork, o *models.Order) error {
		if o.InitiatorID == callerID {
			return errors.ErrWrongRole
		}
		if o.CounterpartyID != nil && *o.CounterpartyID != callerID {
			return errors.ErrNotOrderParty
		}
		if !CanTransition(o.Status, models.OrderStatusAccepted) {
			return errors.NewTransitionError(o.Status, models.OrderStatusAccepted)
		}
		if o.CounterpartyID == nil {
			id := callerID
			o.CounterpartyID = &id
		}
		now := time.Now()
		o.Status = models.OrderStatusAccepted
		o.AcceptedAt = &now
		return nil
	})
}

func (s *service) Cancel(ctx context.Context, orderID, callerID uint) (*models.Order, error) {
	return s.transition(ctx, orderID, func(uow repositories.UnitOfWork, o *models.Order) error {
		if !o.IsParty(callerID) {
			return errors.ErrNotOrderParty
		}
		if !CanTransition(o.Status, models.OrderStatusCancelled) {
			return errors.NewTransitionError(o.Status, models.OrderStatusCancelled)
		}
		now := time.Now()
		o.Status = models.OrderStatusCancelled
		o.ClosedAt = &now
		return nil
	})
}

func (s *service) Pay(ctx context.Context, orderID, callerID uint) (*models.Order, error) {
	return s.transition(ctx, orderID, func(uow repositories.UnitOfWork, o *models.Order) error {
		buyerID, known := o.BuyerID()
		if !known || buyerID != callerID {
			if !o.IsParty(callerID) {
				return errors.ErrNotOrderParty
			}
			return errors.ErrWrongRole
		}
		if !CanTransition(o.Status, models.OrderStatusPaid) {
			return errors.NewTransitionError(o.Status, models.OrderStatusPaid)
		}
		buyerWallet, err := uow.Wallets().GetByUserID(ctx, buyerID)
		if err != nil {
			return err
		}
		if err := s.ledger.Lock(ctx, uow, buyerWallet.ID, EscrowAmount(o), wallet.OrderRef(o.ID)); err != nil {
			return err
		}
		now := time.Now()
		o.Status = models.OrderStatusPaid
		o.PaidAt = &now
		return nil
	})
}

func (s *service) ConfirmDelivery(ctx context.Context, orderID, callerID uint) (*models.Order, error) {
	return s.transition(ctx, orderID, func(uow repositories.UnitOfWork, o *models.Order) error {
		sellerID, known := o.SellerID()
		if !known || sellerID != callerID {
			if !o.IsParty(callerID) {
				return errors.ErrNotOrderParty
			}
			return errors.ErrWrongRole
		}
		if !CanTransition(o.Status, models.OrderStatusDelivered) {
			return errors.NewTransitionError(o.Status, models.OrderStatusDelivered)
		}
		now := time.Now()
		o.Status = models.OrderStatusDelivered
		o.DeliveredAt = &now
		return nil
	})
}

func (s *service) ConfirmReceipt(ctx context.Context, orderID, callerID uint) (*models.Order, error) {
	return s.transition(ctx, orderID, func(uow repositories.UnitOfWork, o *models.Order) error {
		buyerID, known := o.BuyerID()
		if !known || buyerID != callerID {
			if !o.IsParty(callerID) {
				return errors.ErrNotOrderParty
			}
			return errors.ErrWrongRole
		}
		if !CanTransition(o.Status, models.OrderStatusCompleted) {
			return errors.NewTransitionError(o.Status, models.OrderStatusCompleted)
		}
		if err := s.capture(ctx, uow, o); err != nil {
			return err
		}
		now := time.Now()
		o.Status = models.OrderStatusCompleted
		o.CompletedAt = &now
		o.ClosedAt = &now
		return nil
	})
}

// capture settles the escrow to the seller, fee to the platform.
func (s *service) capture(ctx context.Context, uow repositories.UnitOfWork, o *models.Order) error {
	buyerID, _ := o.BuyerID()
	sellerID, _ := o.SellerID()
	buyerWallet, err := uow.Wallets().GetByUserID(ctx, buyerID)
	if err != nil {
		return err
	}
	sellerWallet, err := uow.Wallets().GetByUserID(ctx, sellerID)
	if err != nil {
		return err
	}
	return s.ledger.Capture(ctx, uow, buyerWallet.ID, sellerWallet.ID,
		EscrowAmount(o), o.FeeMinor, wallet.OrderRef(o.ID))
}

func (s *service) MarkDisputed(ctx context.Context, uow repositories.UnitOfWork, orderID, callerID uint) (*models.Order, error) {
	o, err := uow.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsParty(callerID) {
		return nil, errors.ErrNotOrderParty
	}
	if !CanTransition(o.Status, models.OrderStatusDisputed) {
		return nil, errors.NewTransitionError(o.Status, models.OrderStatusDisputed)
	}
	now := time.Now()
	o.Status = models.OrderStatusDisputed
	o.DisputedAt = &now
	if err := uow.Orders().Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) FinalizeDisputed(ctx context.Context, uow repositories.UnitOfWork, orderID uint, target string) (*models.Order, error) {
	o, err := uow.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.OrderStatusDisputed || !CanTransition(o.Status, target) {
		return nil, errors.NewTransitionError(o.Status, target)
	}
	now := time.Now()
	o.Status = target
	o.ClosedAt = &now
	if target == models.OrderStatusCompleted {
		o.CompletedAt = &now
	}
	if err := uow.Orders().Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ReopenDisputed undoes a dispute resolution when the decision is appealed.
// This is the one privileged path back out of a terminal status; party-facing
// actions still reject terminal orders unconditionally.
func (s *service) ReopenDisputed(ctx context.Context, uow repositories.UnitOfWork, orderID uint) (*models.Order, error) {
	o, err := uow.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsTerminal() {
		return nil, errors.NewTransitionError(o.Status, models.OrderStatusDisputed)
	}
	o.Status = models.OrderStatusDisputed
	o.CompletedAt = nil
	o.ClosedAt = nil
	if err := uow.Orders().Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) MarkPaidFromProvider(ctx context.Context, uow repositories.UnitOfWork, orderID uint) (*models.Order, error) {
	o, err := uow.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, models.OrderStatusPaid) {
		return nil, errors.NewTransitionError(o.Status, models.OrderStatusPaid)
	}
	buyerID, known := o.BuyerID()
	if !known {
		return nil, errors.Conflict("order has no buyer yet")
	}
	buyerWallet, err := uow.Wallets().GetByUserID(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	amount := EscrowAmount(o)
	if err := s.ledger.Deposit(ctx, uow, buyerWallet.ID, amount, wallet.OrderRef(o.ID)); err != nil {
		return nil, err
	}
	if err := s.ledger.Lock(ctx, uow, buyerWallet.ID, amount, wallet.OrderRef(o.ID)); err != nil {
		return nil, err
	}
	now := time.Now()
	o.Status = models.OrderStatusPaid
	o.PaidAt = &now
	if err := uow.Orders().Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// CancelFromProvider handles invoice expiry or failure. Notices arriving
// after the order was already paid are ignored rather than erroring, so a
// provider's late expiry callback cannot fail a settled order.
func (s *service) CancelFromProvider(ctx context.Context, uow repositories.UnitOfWork, orderID uint) (*models.Order, error) {
	o, err := uow.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.OrderStatusPendingAccept && o.Status != models.OrderStatusAccepted {
		return o, nil
	}
	now := time.Now()
	o.Status = models.OrderStatusCancelled
	o.ClosedAt = &now
	if err := uow.Orders().Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}
