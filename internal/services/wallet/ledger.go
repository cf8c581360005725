package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rekberkan/kahade-sub000/internal/errors"
	"github.com/rekberkan/kahade-sub000/internal/models"
	"github.com/rekberkan/kahade-sub000/internal/repositories"
)

// lockWallet fetches a wallet under a row lock and rejects frozen wallets.
func lockWallet(ctx context.Context, uow repositories.UnitOfWork, walletID uint) (*models.Wallet, error) {
	wallet, err := uow.Wallets().GetForUpdate(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if wallet.Status != models.WalletStatusActive {
		return nil, errors.ErrWalletFrozen
	}
	return wallet, nil
}

// lockTwo locks two distinct wallets in ascending id order so concurrent
// two-wallet operations cannot deadlock.
func lockTwo(ctx context.Context, uow repositories.UnitOfWork, firstID, secondID uint) (*models.Wallet, *models.Wallet, error) {
	if firstID == secondID {
		return nil, nil, errors.Validation("cannot transfer between a wallet and itself")
	}
	lo, hi := firstID, secondID
	if lo > hi {
		lo, hi = hi, lo
	}
	loWallet, err := lockWallet(ctx, uow, lo)
	if err != nil {
		return nil, nil, err
	}
	hiWallet, err := lockWallet(ctx, uow, hi)
	if err != nil {
		return nil, nil, err
	}
	if firstID == lo {
		return loWallet, hiWallet, nil
	}
	return hiWallet, loWallet, nil
}

func movement(pairID string, walletID uint, amount int64, kind string, ref MovementRef) *models.LedgerMovement {
	return &models.LedgerMovement{
		PairID:       pairID,
		WalletID:     walletID,
		AmountMinor:  amount,
		Kind:         kind,
		OrderID:      ref.OrderID,
		DisputeID:    ref.DisputeID,
		WithdrawalID: ref.WithdrawalID,
	}
}

func (s *service) observe(op string, start time.Time, err error) {
	s.metrics.RecordOperationDuration(op, time.Since(start))
	if err != nil {
		if de, ok := errors.AsDomain(err); ok {
			s.metrics.RecordError(op, de.Code)
		} else {
			s.metrics.RecordError(op, "internal")
		}
	}
}

func (s *service) Deposit(ctx context.Context, uow repositories.UnitOfWork, walletID uint, amount int64, ref MovementRef) (err error) {
	start := time.Now()
	defer func() { s.observe("deposit", start, err) }()
	if amount <= 0 {
		return errors.ErrInvalidAmount
	}
	wallet, err := lockWallet(ctx, uow, walletID)
	if err != nil {
		return err
	}
	wallet.AvailableMinor += amount
	if err = uow.Wallets().Save(ctx, wallet); err != nil {
		return err
	}
	if err = uow.Movements().Create(ctx,
		movement(uuid.NewString(), wallet.ID, amount, models.MovementDeposit, ref)); err != nil {
		return err
	}
	s.metrics.RecordMovement(models.MovementDeposit, amount)
	s.invalidate(ctx, wallet.UserID)
	return nil
}

func (s *service) Lock(ctx context.Context, uow repositories.UnitOfWork, walletID uint, amount int64, ref MovementRef) (err error) {
	start := time.Now()
	defer func() { s.observe("lock", start, err) }()
	if amount <= 0 {
		return errors.ErrInvalidAmount
	}
	wallet, err := lockWallet(ctx, uow, walletID)
	if err != nil {
		return err
	}
	if wallet.AvailableMinor < amount {
		return errors.ErrInsufficientFunds
	}
	wallet.AvailableMinor -= amount
	wallet.LockedMinor += amount
	if err = uow.Wallets().Save(ctx, wallet); err != nil {
		return err
	}
	if err = uow.Movements().Create(ctx,
		movement(uuid.NewString(), wallet.ID, amount, models.MovementLock, ref)); err != nil {
		return err
	}
	s.metrics.RecordMovement(models.MovementLock, amount)
	s.invalidate(ctx, wallet.UserID)
	return nil
}

func (s *service) Release(ctx context.Context, uow repositories.UnitOfWork, walletID uint, amount int64, ref MovementRef) (err error) {
	start := time.Now()
	defer func() { s.observe("release", start, err) }()
	return s.unlock(ctx, uow, walletID, amount, models.MovementRelease, ref)
}

func (s *service) Refund(ctx context.Context, uow repositories.UnitOfWork, walletID uint, amount int64, ref MovementRef) (err error) {
	start := time.Now()
	defer func() { s.observe("refund", start, err) }()
	return s.unlock(ctx, uow, walletID, amount, models.MovementRefund, ref)
}

// unlock moves locked funds back to available on the same wallet. Release
// and refund differ only in the movement kind recorded.
func (s *service) unlock(ctx context.Context, uow repositories.UnitOfWork, walletID uint, amount int64, kind string, ref MovementRef) error {
	if amount <= 0 {
		return errors.ErrInvalidAmount
	}
	wallet, err := lockWallet(ctx, uow, walletID)
	if err != nil {
		return err
	}
	if wallet.LockedMinor < amount {
		return errors.ErrInsufficientFunds
	}
	wallet.LockedMinor -= amount
	wallet.AvailableMinor += amount
	if err := uow.Wallets().Save(ctx, wallet); err != nil {
		return err
	}
	if err := uow.Movements().Create(ctx,
		movement(uuid.NewString(), wallet.ID, amount, kind, ref)); err != nil {
		return err
	}
	s.metrics.RecordMovement(kind, amount)
	s.invalidate(ctx, wallet.UserID)
	return nil
}

func (s *service) Capture(ctx context.Context, uow repositories.UnitOfWork, fromWalletID, toWalletID uint, amount, feeMinor int64, ref MovementRef) (err error) {
	start := time.Now()
	defer func() { s.observe("capture", start, err) }()
	if amount <= 0 || feeMinor < 0 || feeMinor >= amount {
		return errors.ErrInvalidAmount
	}
	from, to, err := lockTwo(ctx, uow, fromWalletID, toWalletID)
	if err != nil {
		return err
	}
	if from.Currency != to.Currency {
		return errors.ErrCurrencyMismatch
	}
	if from.LockedMinor < amount {
		return errors.ErrInsufficientFunds
	}

	from.LockedMinor -= amount
	to.AvailableMinor += amount - feeMinor

	pairID := uuid.NewString()
	movements := []*models.LedgerMovement{
		movement(pairID, from.ID, -amount, models.MovementCapture, ref),
		movement(pairID, to.ID, amount-feeMinor, models.MovementCapture, ref),
	}

	if feeMinor > 0 {
		platform, err := lockWallet(ctx, uow, s.config.PlatformWalletID)
		if err != nil {
			return err
		}
		platform.AvailableMinor += feeMinor
		if err := uow.Wallets().Save(ctx, platform); err != nil {
			return err
		}
		movements = append(movements,
			movement(pairID, platform.ID, feeMinor, models.MovementFee, ref))
	}

	if err = uow.Wallets().Save(ctx, from); err != nil {
		return err
	}
	if err = uow.Wallets().Save(ctx, to); err != nil {
		return err
	}
	if err = uow.Movements().Create(ctx, movements...); err != nil {
		return err
	}
	s.metrics.RecordMovement(models.MovementCapture, amount)
	s.invalidate(ctx, from.UserID, to.UserID)
	return nil
}

func (s *service) Split(ctx context.Context, uow repositories.UnitOfWork, fromWalletID, toWalletID uint, sellerAmount, buyerRefund int64, ref MovementRef) (err error) {
	start := time.Now()
	defer func() { s.observe("split", start, err) }()
	if sellerAmount < 0 || buyerRefund < 0 || sellerAmount+buyerRefund <= 0 {
		return errors.ErrInvalidAmount
	}
	from, to, err := lockTwo(ctx, uow, fromWalletID, toWalletID)
	if err != nil {
		return err
	}
	if from.Currency != to.Currency {
		return errors.ErrCurrencyMismatch
	}
	total := sellerAmount + buyerRefund
	if from.LockedMinor < total {
		return errors.ErrInsufficientFunds
	}

	from.LockedMinor -= total
	to.AvailableMinor += sellerAmount
	from.AvailableMinor += buyerRefund

	pairID := uuid.NewString()
	movements := make([]*models.LedgerMovement, 0, 3)
	if sellerAmount > 0 {
		movements = append(movements,
			movement(pairID, from.ID, -sellerAmount, models.MovementSplitRelease, ref),
			movement(pairID, to.ID, sellerAmount, models.MovementSplitRelease, ref))
	}
	if buyerRefund > 0 {
		movements = append(movements,
			movement(pairID, from.ID, buyerRefund, models.MovementSplitRefund, ref))
	}

	if err = uow.Wallets().Save(ctx, from); err != nil {
		return err
	}
	if err = uow.Wallets().Save(ctx, to); err != nil {
		return err
	}
	if err = uow.Movements().Create(ctx, movements...); err != nil {
		return err
	}
	s.metrics.RecordMovement(models.MovementSplitRelease, sellerAmount)
	s.metrics.RecordMovement(models.MovementSplitRefund, buyerRefund)
	s.invalidate(ctx, from.UserID, to.UserID)
	return nil
}

func (s *service) Reclaim(ctx context.Context, uow repositories.UnitOfWork, fromWalletID, toWalletID uint, amount int64, ref MovementRef) (err error) {
	start := time.Now()
	defer func() { s.observe("reclaim", start, err) }()
	if amount <= 0 {
		return errors.ErrInvalidAmount
	}
	from, to, err := lockTwo(ctx, uow, fromWalletID, toWalletID)
	if err != nil {
		return err
	}
	if from.AvailableMinor < amount {
		return errors.ErrInsufficientFunds
	}
	from.AvailableMinor -= amount
	to.LockedMinor += amount
	if err = uow.Wallets().Save(ctx, from); err != nil {
		return err
	}
	if err = uow.Wallets().Save(ctx, to); err != nil {
		return err
	}
	pairID := uuid.NewString()
	if err = uow.Movements().Create(ctx,
		movement(pairID, from.ID, -amount, models.MovementReclaim, ref),
		movement(pairID, to.ID, amount, models.MovementReclaim, ref)); err != nil {
		return err
	}
	s.metrics.RecordMovement(models.MovementReclaim, amount)
	s.invalidate(ctx, from.UserID, to.UserID)
	return nil
}

func (s *service) Withdraw(ctx context.Context, uow repositories.UnitOfWork, walletID uint, amount int64, ref MovementRef) (err error) {
	start := time.Now()
	defer func() { s.observe("withdraw", start, err) }()
	if amount <= 0 {
		return errors.ErrInvalidAmount
	}
	wallet, err := lockWallet(ctx, uow, walletID)
	if err != nil {
		return err
	}
	if wallet.LockedMinor < amount {
		return errors.ErrInsufficientFunds
	}
	wallet.LockedMinor -= amount
	if err = uow.Wallets().Save(ctx, wallet); err != nil {
		return err
	}
	if err = uow.Movements().Create(ctx,
		movement(uuid.NewString(), wallet.ID, -amount, models.MovementWithdraw, ref)); err != nil {
		return err
	}
	s.metrics.RecordMovement(models.MovementWithdraw, amount)
	s.invalidate(ctx, wallet.UserID)
	return nil
}
