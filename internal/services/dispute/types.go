package dispute

import (
	"context"
	"time"

	"github.com/rekberkan/kahade-sub000/internal/models"
)

// Config holds the dispute engine's deadlines.
type Config struct {
	// ResponseWindow is how long the non-opening party has to respond.
	ResponseWindow time.Duration
	// AppealWindow is how long a decision stays appealable.
	AppealWindow time.Duration
	// PlatformWalletID is where captured fees live; appeals reclaim the fee
	// leg from it.
	PlatformWalletID uint
}

// DefaultConfig matches the product rules: 48h to respond, 7 days to appeal.
func DefaultConfig() Config {
	return Config{
		ResponseWindow: 48 * time.Hour,
		AppealWindow:   7 * 24 * time.Hour,
	}
}

// ResolveInput carries an arbitrator's decision. The amount fields are only
// read for SPLIT_SETTLEMENT.
type ResolveInput struct {
	Decision          string
	SellerAmountMinor int64
	BuyerRefundMinor  int64
	Notes             string
}

// Service is the dispute engine API.
type Service interface {
	Create(ctx context.Context, orderID, callerID uint, reason string) (*models.Dispute, error)
	Get(ctx context.Context, disputeID, callerID uint, isAdmin bool) (*models.Dispute, []models.DisputeTimelineEntry, error)

	// Respond is open to the non-opening party while the dispute is OPEN.
	Respond(ctx context.Context, disputeID, callerID uint, response string) (*models.Dispute, error)
	// Escalate and AssignArbitrator are admin actions.
	Escalate(ctx context.Context, disputeID, adminID uint) (*models.Dispute, error)
	AssignArbitrator(ctx context.Context, disputeID, adminID, arbitratorID uint) (*models.Dispute, error)
	// Resolve settles funds, finalizes the order and opens the appeal
	// window, all in one transaction.
	Resolve(ctx context.Context, disputeID, arbitratorID uint, input ResolveInput) (*models.Dispute, error)
	// Appeal unwinds the settlement and sends the dispute back for
	// re-review.
	Appeal(ctx context.Context, disputeID, callerID uint, reason string) (*models.Dispute, error)
	// SubmitEvidence appends to the timeline without changing status.
	SubmitEvidence(ctx context.Context, disputeID, callerID uint, description string, attachments []string) (*models.Dispute, error)

	// CloseExpired finalizes DECIDED disputes whose appeal window has
	// passed. Driven by the sweeper; returns how many were closed.
	CloseExpired(ctx context.Context, limit int) (int, error)
}
