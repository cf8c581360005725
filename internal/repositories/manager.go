package repositories

import (
	"context"

	"gorm.io/gorm"
)

// NewManager wraps a gorm handle in the unit-of-work Manager.
func NewManager(db *gorm.DB) Manager {
	return &gormManager{gormUnitOfWork{db: db}}
}

type gormManager struct {
	gormUnitOfWork
}

func (m *gormManager) WithinTransaction(ctx context.Context, fn func(uow UnitOfWork) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormUnitOfWork{db: tx})
	})
}

// gormUnitOfWork binds the typed repositories to one gorm handle, which is
// either the root connection or an open transaction.
type gormUnitOfWork struct {
	db *gorm.DB
}

func (u *gormUnitOfWork) Wallets() WalletRepository             { return &walletRepo{db: u.db} }
func (u *gormUnitOfWork) Movements() MovementRepository         { return &movementRepo{db: u.db} }
func (u *gormUnitOfWork) Orders() OrderRepository               { return &orderRepo{db: u.db} }
func (u *gormUnitOfWork) Disputes() DisputeRepository           { return &disputeRepo{db: u.db} }
func (u *gormUnitOfWork) Timeline() TimelineRepository          { return &timelineRepo{db: u.db} }
func (u *gormUnitOfWork) PaymentEvents() PaymentEventRepository { return &paymentEventRepo{db: u.db} }
func (u *gormUnitOfWork) Withdrawals() WithdrawalRepository     { return &withdrawalRepo{db: u.db} }
func (u *gormUnitOfWork) Users() UserRepository                 { return &userRepo{db: u.db} }
