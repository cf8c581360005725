package wallet

import (
	"context"
	"time"

	"github.com/rekberkan/kahade-sub000/internal/errors"
	"github.com/rekberkan/kahade-sub000/internal/models"
	"github.com/rekberkan/kahade-sub000/internal/repositories"
	"github.com/rekberkan/kahade-sub000/internal/repositories/cache"
)

type service struct {
	manager repositories.Manager
	cache   cache.Store
	config  WalletConfig
	metrics MetricsCollector
}

// NewService creates a new wallet service
func NewService(manager repositories.Manager, store cache.Store, config WalletConfig, metrics MetricsCollector) Service {
	if manager == nil {
		panic("manager is required")
	}
	if store == nil {
		panic("cache store is required")
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "IDR"
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	return &service{
		manager: manager,
		cache:   store,
		config:  config,
		metrics: metrics,
	}
}

func (s *service) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	key := cache.Key("wallet", "user", userID)
	var cached models.Wallet
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	wallet, err := s.manager.Wallets().GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, wallet, s.config.CacheTTL)
	return wallet, nil
}

func (s *service) CreateWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error) {
	if currency == "" {
		currency = s.config.DefaultCurrency
	}
	wallet := &models.Wallet{
		UserID:   userID,
		Currency: currency,
		Status:   models.WalletStatusActive,
	}
	if err := s.manager.Wallets().Create(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *service) RequestWithdrawal(ctx context.Context, userID uint, amount int64, externalRef string) (*models.Withdrawal, error) {
	if amount <= 0 {
		return nil, errors.ErrInvalidAmount
	}

	var withdrawal *models.Withdrawal
	err := s.manager.WithinTransaction(ctx, func(uow repositories.UnitOfWork) error {
		wallet, err := uow.Wallets().GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		withdrawal = &models.Withdrawal{
			UserID:      userID,
			WalletID:    wallet.ID,
			AmountMinor: amount,
			Currency:    wallet.Currency,
			Status:      models.WithdrawalStatusPending,
			ExternalRef: externalRef,
		}
		if err := uow.Withdrawals().Create(ctx, withdrawal); err != nil {
			return err
		}
		return s.Lock(ctx, uow, wallet.ID, amount, WithdrawalRef(withdrawal.ID))
	})
	if err != nil {
		return nil, err
	}
	return withdrawal, nil
}

func (s *service) ListMovements(ctx context.Context, userID uint, limit int) ([]models.LedgerMovement, error) {
	wallet, err := s.manager.Wallets().GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.manager.Movements().ListByWalletID(ctx, wallet.ID, limit)
}

func (s *service) invalidate(ctx context.Context, userIDs ...uint) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, cache.Key("wallet", "user", id))
	}
	// Best effort: a stale delete is harmless, a failed delete only delays
	// the TTL expiry.
	_ = s.cache.Delete(ctx, keys...)
}
