// Package dispute implements the dispute engine: the guarded path from an
// opened dispute through response, escalation and arbitration to a settled
// decision, plus the appeal path that unwinds a settlement. Every
// status-changing operation appends to the dispute's timeline in the same
// transaction.
package dispute

import (
	"context"
	goerrors "errors"
	"time"

	"github.com/rekberkan/kahade-sub000/internal/errors"
	"github.com/rekberkan/kahade-sub000/internal/models"
	"github.com/rekberkan/kahade-sub000/internal/repositories"
	"github.com/rekberkan/kahade-sub000/internal/services/order"
	"github.com/rekberkan/kahade-sub000/internal/services/wallet"
)

// systemActor marks timeline entries written by the sweeper rather than a
// user.
const systemActor uint = 0

type service struct {
	manager repositories.Manager
	orders  order.Service
	ledger  wallet.Ledger
	config  Config
}

// NewService creates a new dispute service
func NewService(manager repositories.Manager, orders order.Service, ledger wallet.Ledger, config Config) Service {
	if manager == nil {
		panic("manager is required")
	}
	if orders == nil {
		panic("order service is required")
	}
	if ledger == nil {
		panic("ledger is required")
	}
	defaults := DefaultConfig()
	if config.ResponseWindow <= 0 {
		config.ResponseWindow = defaults.ResponseWindow
	}
	if config.AppealWindow <= 0 {
		config.AppealWindow = defaults.AppealWindow
	}
	return &service{manager: manager, orders: orders, ledger: ledger, config: config}
}

func (s *service) timeline(ctx context.Context, uow repositories.UnitOfWork, disputeID uint, action string, actor uint, details models.JSON) error {
	return uow.Timeline().Append(ctx, &models.DisputeTimelineEntry{
		DisputeID:   disputeID,
		Action:      action,
		PerformedBy: actor,
		Details:     details,
	})
}

func (s *service) Create(ctx context.Context, orderID, callerID uint, reason string) (*models.Dispute, error) {
	if reason == "" {
		return nil, errors.Validation("a dispute needs a reason")
	}
	var dispute *models.Dispute
	err := s.manager.WithinTransaction(ctx, func(uow repositories.UnitOfWork) error {
		// MarkDisputed row-locks the order and rejects non-parties and
		// non-disputable states; a concurrent second open loses the
		// DISPUTED transition race here.
		o, err := s.orders.MarkDisputed(ctx, uow, orderID, callerID)
		if err != nil {
			return err
		}
		if _, err := uow.Disputes().GetOpenByOrderID(ctx, o.ID); err == nil {
			return errors.ErrDisputeExists
		} else if !goerrors.Is(err, errors.ErrDisputeNotFound) {
			return err
		}
		deadline := time.Now().Add(s.config.ResponseWindow)
		dispute = &models.Dispute{
			OrderID:          o.ID,
			OpenedBy:         callerID,
			Reason:           reason,
			Status:           models.DisputeStatusOpen,
			ResponseDeadline: &deadline,
		}
		if err := uow.Disputes().Create(ctx, dispute); err != nil {
			return err
		}
		return s.timeline(ctx, uow, dispute.ID, models.TimelineOpened, callerID, models.JSON{
			"order_id": o.ID,
			"reason":   reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

func (s *service) Get(ctx context.Context, disputeID, callerID uint, isAdmin bool) (*models.Dispute, []models.DisputeTimelineEntry, error) {
	dispute, err := s.manager.Disputes().GetByID(ctx, disputeID)
	if err != nil {
		return nil, nil, err
	}
	if !isAdmin {
		o, err := s.manager.Orders().GetByID(ctx, dispute.OrderID)
		if err != nil {
			return nil, nil, err
		}
		if !o.IsParty(callerID) {
			return nil, nil, errors.ErrNotDisputeParty
		}
	}
	entries, err := s.manager.Timeline().ListByDisputeID(ctx, disputeID)
	if err != nil {
		return nil, nil, err
	}
	return dispute, entries, nil
}

// mutate runs one guarded dispute change in its own transaction with the
// dispute row locked, mirroring the order service's transition helper.
func (s *service) mutate(ctx context.Context, disputeID uint, fn func(uow repositories.UnitOfWork, d *models.Dispute) error) (*models.Dispute, error) {
	var dispute *models.Dispute
	err := s.manager.WithinTransaction(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		dispute, err = uow.Disputes().GetForUpdate(ctx, disputeID)
		if err != nil {
			return err
		}
		if err := fn(uow, dispute); err != nil {
			return err
		}
		return uow.Disputes().Save(ctx, dispute)
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

func (s *service) Respond(ctx context.Context, disputeID, callerID uint, response string) (*models.Dispute, error) {
	if response == "" {
		return nil, errors.Validation("a response needs content")
	}
	return s.mutate(ctx, disputeID, func(uow repositories.UnitOfWork, d *models.Dispute) error {
		if d.Status != models.DisputeStatusOpen {
			return errors.ErrDisputeWrongStatus
		}
		o, err := uow.Orders().GetByID(ctx, d.OrderID)
		if err != nil {
			return err
		}
		if !o.IsParty(callerID) {
			return errors.ErrNotDisputeParty
		}
		if callerID == d.OpenedBy {
			return errors.Forbidden("the opening party cannot respond to its own dispute")
		}
		if d.ResponseDeadline != nil && time.Now().After(*d.ResponseDeadline) {
			return errors.ErrDeadlinePassed
		}
		d.Status = models.DisputeStatusResponded
		return s.timeline(ctx, uow, d.ID, models.TimelineResponded, callerID, models.JSON{
			"response": response,
		})
	})
}

func (s *service) Escalate(ctx context.Context, disputeID, adminID uint) (*models.Dispute, error) {
	return s.mutate(ctx, disputeID, func(uow repositories.UnitOfWork, d *models.Dispute) error {
		if d.Status != models.DisputeStatusOpen && d.Status != models.DisputeStatusResponded {
			return errors.ErrDisputeWrongStatus
		}
		d.Status = models.DisputeStatusEscalated
		return s.timeline(ctx, uow, d.ID, models.TimelineEscalated, adminID, nil)
	})
}

func (s *service) AssignArbitrator(ctx context.Context, disputeID, adminID, arbitratorID uint) (*models.Dispute, error) {
	return s.mutate(ctx, disputeID, func(uow repositories.UnitOfWork, d *models.Dispute) error {
		switch d.Status {
		case models.DisputeStatusOpen, models.DisputeStatusResponded:
			// Assigning straight from the party phase escalates implicitly.
			if err := s.timeline(ctx, uow, d.ID, models.TimelineEscalated, adminID, nil); err != nil {
				return err
			}
		case models.DisputeStatusEscalated, models.DisputeStatusAppealed:
		default:
			return errors.ErrDisputeWrongStatus
		}
		d.ArbitratorID = &arbitratorID
		d.Status = models.DisputeStatusUnderArbitration
		return s.timeline(ctx, uow, d.ID, models.TimelineArbitratorAssigned, adminID, models.JSON{
			"arbitrator_id": arbitratorID,
		})
	})
}

// escrowWallets resolves the buyer's and seller's wallets for a disputed
// order. The buyer's wallet is the one holding the escrow.
func escrowWallets(ctx context.Context, uow repositories.UnitOfWork, o *models.Order) (buyer, seller *models.Wallet, err error) {
	buyerID, buyerKnown := o.BuyerID()
	sellerID, sellerKnown := o.SellerID()
	if !buyerKnown || !sellerKnown {
		return nil, nil, errors.Conflict("disputed order has an unresolved party")
	}
	if buyer, err = uow.Wallets().GetByUserID(ctx, buyerID); err != nil {
		return nil, nil, err
	}
	if seller, err = uow.Wallets().GetByUserID(ctx, sellerID); err != nil {
		return nil, nil, err
	}
	return buyer, seller, nil
}

func (s *service) Resolve(ctx context.Context, disputeID, arbitratorID uint, input ResolveInput) (*models.Dispute, error) {
	switch input.Decision {
	case models.DecisionReleaseAllToSeller, models.DecisionRefundAllToBuyer,
		models.DecisionSplitSettlement, models.DecisionCancelVoid:
	default:
		return nil, errors.ErrInvalidDecision
	}
	return s.mutate(ctx, disputeID, func(uow repositories.UnitOfWork, d *models.Dispute) error {
		if d.Status != models.DisputeStatusUnderArbitration && d.Status != models.DisputeStatusAppealed {
			return errors.ErrDisputeWrongStatus
		}
		if d.ArbitratorID != nil && *d.ArbitratorID != arbitratorID {
			return errors.Forbidden("only the assigned arbitrator can resolve this dispute")
		}
		o, err := uow.Orders().GetByID(ctx, d.OrderID)
		if err != nil {
			return err
		}
		target, err := s.settle(ctx, uow, d, o, input)
		if err != nil {
			return err
		}
		if _, err := s.orders.FinalizeDisputed(ctx, uow, o.ID, target); err != nil {
			return err
		}
		now := time.Now()
		appealDeadline := now.Add(s.config.AppealWindow)
		d.Status = models.DisputeStatusDecided
		d.Decision = input.Decision
		d.ResolutionNotes = input.Notes
		d.ArbitratorID = &arbitratorID
		d.Settled = true
		d.DecidedAt = &now
		d.AppealDeadline = &appealDeadline
		return s.timeline(ctx, uow, d.ID, models.TimelineResolved, arbitratorID, models.JSON{
			"decision":            d.Decision,
			"seller_amount_minor": d.SellerAmountMinor,
			"buyer_refund_minor":  d.BuyerRefundMinor,
			"notes":               input.Notes,
		})
	})
}

// settle applies the decision's fund movements and returns the order status
// the dispute resolves into. An order disputed before payment holds no escrow,
// so the only decision that makes sense for it is CANCEL_VOID, with nothing to
// move.
func (s *service) settle(ctx context.Context, uow repositories.UnitOfWork, d *models.Dispute, o *models.Order, input ResolveInput) (string, error) {
	if o.PaidAt == nil {
		if input.Decision != models.DecisionCancelVoid {
			return "", errors.ErrInvalidDecision.WithDetails(map[string]interface{}{
				"reason": "order holds no escrow; only CANCEL_VOID applies",
			})
		}
		d.SellerAmountMinor = 0
		d.BuyerRefundMinor = 0
		return models.OrderStatusCancelled, nil
	}

	buyerWallet, sellerWallet, err := escrowWallets(ctx, uow, o)
	if err != nil {
		return "", err
	}
	escrow := order.EscrowAmount(o)
	ref := wallet.DisputeRef(o.ID, d.ID)

	switch input.Decision {
	case models.DecisionReleaseAllToSeller:
		if err := s.ledger.Capture(ctx, uow, buyerWallet.ID, sellerWallet.ID, escrow, o.FeeMinor, ref); err != nil {
			return "", err
		}
		d.SellerAmountMinor = escrow - o.FeeMinor
		d.BuyerRefundMinor = 0
		return models.OrderStatusCompleted, nil

	case models.DecisionRefundAllToBuyer:
		if err := s.ledger.Refund(ctx, uow, buyerWallet.ID, escrow, ref); err != nil {
			return "", err
		}
		d.SellerAmountMinor = 0
		d.BuyerRefundMinor = escrow
		return models.OrderStatusRefunded, nil

	case models.DecisionSplitSettlement:
		if input.SellerAmountMinor < 0 || input.BuyerRefundMinor < 0 {
			return "", errors.ErrInvalidAmount
		}
		total := input.SellerAmountMinor + input.BuyerRefundMinor
		if total <= 0 || total > escrow {
			return "", errors.Validation("split amounts must be positive and within the escrowed total")
		}
		if err := s.ledger.Split(ctx, uow, buyerWallet.ID, sellerWallet.ID,
			input.SellerAmountMinor, input.BuyerRefundMinor, ref); err != nil {
			return "", err
		}
		// Any remainder the arbitrator left unassigned goes back to the
		// buyer rather than staying locked on a finalized order.
		if remainder := escrow - total; remainder > 0 {
			if err := s.ledger.Release(ctx, uow, buyerWallet.ID, remainder, ref); err != nil {
				return "", err
			}
		}
		d.SellerAmountMinor = input.SellerAmountMinor
		d.BuyerRefundMinor = escrow - input.SellerAmountMinor
		return models.OrderStatusCompleted, nil

	default: // models.DecisionCancelVoid
		if err := s.ledger.Release(ctx, uow, buyerWallet.ID, escrow, ref); err != nil {
			return "", err
		}
		d.SellerAmountMinor = 0
		d.BuyerRefundMinor = escrow
		return models.OrderStatusCancelled, nil
	}
}

func (s *service) Appeal(ctx context.Context, disputeID, callerID uint, reason string) (*models.Dispute, error) {
	if reason == "" {
		return nil, errors.Validation("an appeal needs a reason")
	}
	return s.mutate(ctx, disputeID, func(uow repositories.UnitOfWork, d *models.Dispute) error {
		if d.Status != models.DisputeStatusDecided {
			return errors.ErrDisputeWrongStatus
		}
		if d.AppealDeadline == nil || time.Now().After(*d.AppealDeadline) {
			return errors.ErrDeadlinePassed
		}
		o, err := uow.Orders().GetByID(ctx, d.OrderID)
		if err != nil {
			return err
		}
		if !o.IsParty(callerID) {
			return errors.ErrNotDisputeParty
		}
		if d.Settled {
			if err := s.unwind(ctx, uow, d, o); err != nil {
				return err
			}
		}
		if _, err := s.orders.ReopenDisputed(ctx, uow, o.ID); err != nil {
			return err
		}
		d.Status = models.DisputeStatusAppealed
		d.Settled = false
		d.AppealCount++
		d.AppealDeadline = nil
		return s.timeline(ctx, uow, d.ID, models.TimelineAppealed, callerID, models.JSON{
			"reason":            reason,
			"appealed_decision": d.Decision,
		})
	})
}

// unwind reverses the appealed decision's settlement: every amount the
// decision paid out returns to the buyer's locked balance, so the re-review
// starts from the same escrow the first one did. If a recipient already spent
// the funds this fails with insufficient funds and the appeal is rejected.
func (s *service) unwind(ctx context.Context, uow repositories.UnitOfWork, d *models.Dispute, o *models.Order) error {
	if o.PaidAt == nil {
		return nil
	}
	buyerWallet, sellerWallet, err := escrowWallets(ctx, uow, o)
	if err != nil {
		return err
	}
	escrow := order.EscrowAmount(o)
	ref := wallet.DisputeRef(o.ID, d.ID)

	switch d.Decision {
	case models.DecisionReleaseAllToSeller:
		if err := s.ledger.Reclaim(ctx, uow, sellerWallet.ID, buyerWallet.ID, escrow-o.FeeMinor, ref); err != nil {
			return err
		}
		if o.FeeMinor > 0 {
			if err := s.ledger.Reclaim(ctx, uow, s.config.PlatformWalletID, buyerWallet.ID, o.FeeMinor, ref); err != nil {
				return err
			}
		}
		return nil

	case models.DecisionSplitSettlement:
		if d.SellerAmountMinor > 0 {
			if err := s.ledger.Reclaim(ctx, uow, sellerWallet.ID, buyerWallet.ID, d.SellerAmountMinor, ref); err != nil {
				return err
			}
		}
		if d.BuyerRefundMinor > 0 {
			if err := s.ledger.Lock(ctx, uow, buyerWallet.ID, d.BuyerRefundMinor, ref); err != nil {
				return err
			}
		}
		return nil

	default: // refund and cancel both returned the escrow to the buyer
		return s.ledger.Lock(ctx, uow, buyerWallet.ID, escrow, ref)
	}
}

func (s *service) SubmitEvidence(ctx context.Context, disputeID, callerID uint, description string, attachments []string) (*models.Dispute, error) {
	if description == "" && len(attachments) == 0 {
		return nil, errors.Validation("evidence needs a description or attachments")
	}
	return s.mutate(ctx, disputeID, func(uow repositories.UnitOfWork, d *models.Dispute) error {
		// Once decided the record is fixed until an appeal reopens it.
		if d.Status == models.DisputeStatusDecided || d.IsClosed() {
			return errors.ErrDisputeWrongStatus
		}
		o, err := uow.Orders().GetByID(ctx, d.OrderID)
		if err != nil {
			return err
		}
		if !o.IsParty(callerID) {
			return errors.ErrNotDisputeParty
		}
		return s.timeline(ctx, uow, d.ID, models.TimelineEvidenceSubmitted, callerID, models.JSON{
			"description": description,
			"attachments": attachments,
		})
	})
}

func (s *service) CloseExpired(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	expired, err := s.manager.Disputes().ListExpiredDecided(ctx, time.Now(), limit)
	if err != nil {
		return 0, err
	}
	closed := 0
	for i := range expired {
		_, err := s.mutate(ctx, expired[i].ID, func(uow repositories.UnitOfWork, d *models.Dispute) error {
			// Re-check under the row lock: an appeal may have landed
			// between the scan and this transaction.
			if d.Status != models.DisputeStatusDecided ||
				d.AppealDeadline == nil || time.Now().Before(*d.AppealDeadline) {
				return errors.ErrDisputeWrongStatus
			}
			now := time.Now()
			d.Status = models.DisputeStatusClosed
			d.ClosedAt = &now
			return s.timeline(ctx, uow, d.ID, models.TimelineClosed, systemActor, models.JSON{
				"appeal_deadline": d.AppealDeadline,
			})
		})
		if err != nil {
			continue
		}
		closed++
	}
	return closed, nil
}
