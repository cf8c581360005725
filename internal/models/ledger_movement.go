package models

import "time"

// Movement kinds
const (
	MovementDeposit      = "deposit"
	MovementLock         = "lock"
	MovementRelease      = "release"
	MovementCapture      = "capture"
	MovementFee          = "fee"
	MovementRefund       = "refund"
	MovementSplitRelease = "split_release"
	MovementSplitRefund  = "split_refund"
	MovementWithdraw     = "withdraw"
	MovementReclaim      = "reclaim"
)

// LedgerMovement records money movement for audit. Legs of a transfer
// between wallets share a PairID and their signed amounts sum to zero.
// Single-wallet reclassifications (lock, release, refund) and external
// settlements (deposit, withdraw) are single-leg rows; the sum of deposit and
// withdraw legs is the only way the system total may change. Rows are
// append-only.
type LedgerMovement struct {
	ID           uint   `gorm:"primarykey"`
	PairID       string `gorm:"size:36;not null;index"`
	WalletID     uint   `gorm:"not null;index"`
	AmountMinor  int64  `gorm:"not null"`
	Kind         string `gorm:"not null"`
	OrderID      *uint  `gorm:"index"`
	DisputeID    *uint  `gorm:"index"`
	WithdrawalID *uint  `gorm:"index"`
	CreatedAt    time.Time
}
