package repositories

import (
	"context"
	"time"

	"github.com/rekberkan/kahade-sub000/internal/models"
)

// WalletRepository is the data access surface for wallet rows. The ForUpdate
// variants take a row lock and are only meaningful inside a unit of work.
type WalletRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Wallet, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, userID uint) (*models.Wallet, error)
	Create(ctx context.Context, wallet *models.Wallet) error
	Save(ctx context.Context, wallet *models.Wallet) error
}

// MovementRepository appends double-entry ledger movements. There is no
// update or delete: the ledger is append-only.
type MovementRepository interface {
	Create(ctx context.Context, movements ...*models.LedgerMovement) error
	ListByOrderID(ctx context.Context, orderID uint) ([]models.LedgerMovement, error)
	ListByWalletID(ctx context.Context, walletID uint, limit int) ([]models.LedgerMovement, error)
}

type OrderRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Order, error)
	GetByExternalRef(ctx context.Context, ref string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	Save(ctx context.Context, order *models.Order) error
	ListByParty(ctx context.Context, userID uint, limit int) ([]models.Order, error)
}

type DisputeRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Dispute, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Dispute, error)
	// GetOpenByOrderID returns the order's non-CLOSED dispute, if any.
	GetOpenByOrderID(ctx context.Context, orderID uint) (*models.Dispute, error)
	Create(ctx context.Context, dispute *models.Dispute) error
	Save(ctx context.Context, dispute *models.Dispute) error
	// ListExpiredDecided returns DECIDED disputes whose appeal deadline is
	// before now, for the close sweep.
	ListExpiredDecided(ctx context.Context, now time.Time, limit int) ([]models.Dispute, error)
}

type TimelineRepository interface {
	Append(ctx context.Context, entry *models.DisputeTimelineEntry) error
	ListByDisputeID(ctx context.Context, disputeID uint) ([]models.DisputeTimelineEntry, error)
}

type PaymentEventRepository interface {
	GetByID(ctx context.Context, id uint) (*models.PaymentEvent, error)
	// Find looks up the audit record for a logical event in any status.
	// Returns (nil, nil) on miss.
	Find(ctx context.Context, provider, externalEventID string) (*models.PaymentEvent, error)
	Create(ctx context.Context, event *models.PaymentEvent) error
	Save(ctx context.Context, event *models.PaymentEvent) error
	// ListFailedRetryable returns FAILED events under the retry budget, for
	// the retry sweep.
	ListFailedRetryable(ctx context.Context, maxRetries, limit int) ([]models.PaymentEvent, error)
}

type WithdrawalRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Withdrawal, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Withdrawal, error)
	GetByExternalRef(ctx context.Context, ref string) (*models.Withdrawal, error)
	Create(ctx context.Context, withdrawal *models.Withdrawal) error
	Save(ctx context.Context, withdrawal *models.Withdrawal) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	IncrementTokenVersion(ctx context.Context, userID uint) error
}

// UnitOfWork exposes only the typed repositories a transaction is allowed to
// touch; the underlying storage handle never crosses a package boundary.
type UnitOfWork interface {
	Wallets() WalletRepository
	Movements() MovementRepository
	Orders() OrderRepository
	Disputes() DisputeRepository
	Timeline() TimelineRepository
	PaymentEvents() PaymentEventRepository
	Withdrawals() WithdrawalRepository
	Users() UserRepository
}

// Manager hands out units of work. Direct method calls run against the root
// connection; WithinTransaction binds one unit of work to a single storage
// transaction that commits or rolls back as a whole.
type Manager interface {
	UnitOfWork
	WithinTransaction(ctx context.Context, fn func(uow UnitOfWork) error) error
}
