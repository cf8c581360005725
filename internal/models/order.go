package models

import (
	"time"

	"gorm.io/gorm"
)

// Order statuses
const (
	OrderStatusPendingAccept = "PENDING_ACCEPT"
	OrderStatusAccepted      = "ACCEPTED"
	OrderStatusPaid          = "PAID"
	OrderStatusDelivered     = "DELIVERED"
	OrderStatusCompleted     = "COMPLETED"
	OrderStatusDisputed      = "DISPUTED"
	OrderStatusCancelled     = "CANCELLED"
	OrderStatusRefunded      = "REFUNDED"
)

// Roles the initiator can take in an order.
const (
	OrderRoleBuyer  = "buyer"
	OrderRoleSeller = "seller"
)

// Fee payer values
const (
	FeePayerBuyer  = "buyer"
	FeePayerSeller = "seller"
)

// Order is one escrowed transaction between two parties. The counterparty is
// unknown until acceptance; after COMPLETED/CANCELLED/REFUNDED the row is
// immutable.
type Order struct {
	gorm.Model
	InitiatorID    uint   `gorm:"not null;index"`
	CounterpartyID *uint  `gorm:"index"`
	InitiatorRole  string `gorm:"not null;default:'buyer'"`
	Title          string
	Description    string
	AmountMinor    int64  `gorm:"not null"`
	FeeMinor       int64  `gorm:"not null;default:0"`
	FeePayer       string `gorm:"default:'seller'"`
	Currency       string `gorm:"default:'IDR'"`
	Status         string `gorm:"not null;default:'PENDING_ACCEPT';index"`
	ExternalRef    string `gorm:"index"` // provider invoice correlation id

	AcceptedAt  *time.Time
	PaidAt      *time.Time
	DeliveredAt *time.Time
	CompletedAt *time.Time
	DisputedAt  *time.Time
	ClosedAt    *time.Time
}

// BuyerID returns the paying side, once both parties are known. The second
// return is false while the order is still open for acceptance.
func (o *Order) BuyerID() (uint, bool) {
	if o.InitiatorRole == OrderRoleBuyer {
		return o.InitiatorID, true
	}
	if o.CounterpartyID == nil {
		return 0, false
	}
	return *o.CounterpartyID, true
}

// SellerID returns the delivering side, once both parties are known.
func (o *Order) SellerID() (uint, bool) {
	if o.InitiatorRole == OrderRoleSeller {
		return o.InitiatorID, true
	}
	if o.CounterpartyID == nil {
		return 0, false
	}
	return *o.CounterpartyID, true
}

// IsParty reports whether userID is the initiator or counterparty.
func (o *Order) IsParty(userID uint) bool {
	if o.InitiatorID == userID {
		return true
	}
	return o.CounterpartyID != nil && *o.CounterpartyID == userID
}

// IsTerminal reports whether the order reached a final state.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}
