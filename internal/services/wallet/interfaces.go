package wallet

import (
	"context"

	"github.com/rekberkan/kahade-sub000/internal/models"
	"github.com/rekberkan/kahade-sub000/internal/repositories"
)

// Ledger exposes the atomic balance operations. Every method mutates wallet
// rows under a row lock and records ledger movements through the unit of work
// it is handed, so callers compose a ledger operation with their own writes
// in one storage transaction. No operation ever applies a partial effect.
type Ledger interface {
	// Deposit settles external funds into available balance.
	Deposit(ctx context.Context, uow repositories.UnitOfWork, walletID uint, amount int64, ref MovementRef) error
	// Lock reserves available funds; requires available >= amount.
	Lock(ctx context.Context, uow repositories.UnitOfWork, walletID uint, amount int64, ref MovementRef) error
	// Release moves locked funds back to available on the same wallet.
	Release(ctx context.Context, uow repositories.UnitOfWork, walletID uint, amount int64, ref MovementRef) error
	// Capture moves locked funds to the counterparty, minus the fee, which
	// lands on the platform wallet as a separate movement leg.
	Capture(ctx context.Context, uow repositories.UnitOfWork, fromWalletID, toWalletID uint, amount, feeMinor int64, ref MovementRef) error
	// Refund returns locked funds to the same wallet's available balance.
	Refund(ctx context.Context, uow repositories.UnitOfWork, walletID uint, amount int64, ref MovementRef) error
	// Split pays sellerAmount to the counterparty and refunds buyerRefund on
	// the locked wallet; sellerAmount+buyerRefund must not exceed the lock.
	Split(ctx context.Context, uow repositories.UnitOfWork, fromWalletID, toWalletID uint, sellerAmount, buyerRefund int64, ref MovementRef) error
	// Withdraw settles locked funds out of the platform.
	Withdraw(ctx context.Context, uow repositories.UnitOfWork, walletID uint, amount int64, ref MovementRef) error
	// Reclaim pulls previously settled funds back into the escrow of
	// another wallet; the inverse of a cross-wallet settlement leg. Used
	// when an appealed dispute decision is unwound.
	Reclaim(ctx context.Context, uow repositories.UnitOfWork, fromWalletID, toWalletID uint, amount int64, ref MovementRef) error
}

// Service is the wallet-facing API used by handlers. Ledger operations run
// in their own transaction here; components that need to compose them with
// other writes use the embedded Ledger against their own unit of work.
type Service interface {
	Ledger

	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	CreateWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error)
	// RequestWithdrawal locks the amount and opens a PENDING withdrawal
	// awaiting the provider's disbursement callback.
	RequestWithdrawal(ctx context.Context, userID uint, amount int64, externalRef string) (*models.Withdrawal, error)
	ListMovements(ctx context.Context, userID uint, limit int) ([]models.LedgerMovement, error)
}
