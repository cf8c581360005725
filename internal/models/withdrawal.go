package models

import (
	"time"

	"gorm.io/gorm"
)

// Withdrawal statuses
const (
	WithdrawalStatusPending   = "PENDING"
	WithdrawalStatusCompleted = "COMPLETED"
	WithdrawalStatusFailed    = "FAILED"
)

// Withdrawal is an outbound disbursement request. The requested amount moves
// to the user's locked balance until the provider's disbursement callback
// confirms or fails the payout.
type Withdrawal struct {
	gorm.Model
	UserID      uint   `gorm:"not null;index"`
	WalletID    uint   `gorm:"not null;index"`
	AmountMinor int64  `gorm:"not null"`
	Currency    string `gorm:"default:'IDR'"`
	Status      string `gorm:"not null;default:'PENDING';index"`
	ExternalRef string `gorm:"size:191;index"` // provider disbursement id
	CompletedAt *time.Time
	FailedAt    *time.Time
}
