package wallet

import "time"

// WalletConfig holds configuration for wallet operations
type WalletConfig struct {
	DefaultCurrency string
	// PlatformWalletID receives captured fees. Seeded at startup.
	PlatformWalletID uint
	CacheTTL         time.Duration
}

// MovementRef links ledger movements to the business object that caused
// them. Exactly the relevant field is set by the caller.
type MovementRef struct {
	OrderID      *uint
	DisputeID    *uint
	WithdrawalID *uint
}

// OrderRef builds a MovementRef for an order.
func OrderRef(orderID uint) MovementRef {
	return MovementRef{OrderID: &orderID}
}

// DisputeRef builds a MovementRef for a dispute settlement, keeping the
// order link as well.
func DisputeRef(orderID, disputeID uint) MovementRef {
	return MovementRef{OrderID: &orderID, DisputeID: &disputeID}
}

// WithdrawalRef builds a MovementRef for a disbursement.
func WithdrawalRef(withdrawalID uint) MovementRef {
	return MovementRef{WithdrawalID: &withdrawalID}
}
