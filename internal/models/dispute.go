package models

import (
	"time"

	"gorm.io/gorm"
)

// Dispute statuses
const (
	DisputeStatusOpen             = "OPEN"
	DisputeStatusResponded        = "RESPONDED"
	DisputeStatusEscalated        = "ESCALATED"
	DisputeStatusUnderArbitration = "UNDER_ARBITRATION"
	DisputeStatusDecided          = "DECIDED"
	DisputeStatusAppealed         = "APPEALED"
	DisputeStatusClosed           = "CLOSED"
)

// Dispute decisions
const (
	DecisionReleaseAllToSeller = "RELEASE_ALL_TO_SELLER"
	DecisionRefundAllToBuyer   = "REFUND_ALL_TO_BUYER"
	DecisionSplitSettlement    = "SPLIT_SETTLEMENT"
	DecisionCancelVoid         = "CANCEL_VOID"
)

// Timeline actions
const (
	TimelineOpened             = "dispute_opened"
	TimelineResponded          = "dispute_responded"
	TimelineEscalated          = "dispute_escalated"
	TimelineArbitratorAssigned = "arbitrator_assigned"
	TimelineResolved           = "dispute_resolved"
	TimelineAppealed           = "dispute_appealed"
	TimelineClosed             = "dispute_closed"
	TimelineEvidenceSubmitted  = "evidence_submitted"
)

// Dispute freezes an order while the parties and, if escalated, an arbitrator
// work out who gets the locked funds. At most one dispute per order may be in
// a non-CLOSED state.
type Dispute struct {
	gorm.Model
	OrderID           uint   `gorm:"not null;index"`
	OpenedBy          uint   `gorm:"not null"`
	Reason            string `gorm:"not null"`
	Status            string `gorm:"not null;default:'OPEN';index"`
	Decision          string
	SellerAmountMinor int64 `gorm:"default:0"`
	BuyerRefundMinor  int64 `gorm:"default:0"`
	ResolutionNotes   string
	ArbitratorID      *uint
	ResponseDeadline  *time.Time
	AppealDeadline    *time.Time
	AppealCount       int  `gorm:"default:0"`
	Settled           bool `gorm:"default:false"`
	DecidedAt         *time.Time
	ClosedAt          *time.Time
}

// IsClosed reports whether the dispute reached its final state.
func (d *Dispute) IsClosed() bool {
	return d.Status == DisputeStatusClosed
}

// DisputeTimelineEntry is the append-only audit trail of record for a
// dispute. Entries are never mutated or deleted, even after the dispute
// closes.
type DisputeTimelineEntry struct {
	ID          uint   `gorm:"primarykey"`
	DisputeID   uint   `gorm:"not null;index"`
	Action      string `gorm:"not null"`
	PerformedBy uint   `gorm:"not null"`
	Details     JSON   `gorm:"type:jsonb"`
	CreatedAt   time.Time
}
