package models

import (
	"time"

	"gorm.io/gorm"
)

// Wallet statuses
const (
	WalletStatusActive = "active"
	WalletStatusFrozen = "frozen"
)

// Wallet keeps a user's funds split between an available balance and a
// locked (escrowed) balance, both in integer minor currency units. Rows are
// mutated only by the wallet service's ledger operations, under a row lock.
type Wallet struct {
	ID             uint   `gorm:"primarykey"`
	UserID         uint   `gorm:"uniqueIndex;not null"`
	AvailableMinor int64  `gorm:"not null;default:0"`
	LockedMinor    int64  `gorm:"not null;default:0"`
	Currency       string `gorm:"default:'IDR'"`
	Status         string `gorm:"default:'active'"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	// Balances always start at zero; deposits come through the ledger.
	w.AvailableMinor = 0
	w.LockedMinor = 0
	return nil
}

// TotalMinor is the wallet's full holding, spendable or not.
func (w *Wallet) TotalMinor() int64 {
	return w.AvailableMinor + w.LockedMinor
}
