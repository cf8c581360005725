package repositories

import (
	"context"
	goerrors "errors"

	"github.com/rekberkan/kahade-sub000/internal/errors"
	"github.com/rekberkan/kahade-sub000/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type paymentEventRepo struct {
	db *gorm.DB
}

func (r *paymentEventRepo) GetByID(ctx context.Context, id uint) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("payment event")
		}
		return nil, err
	}
	return &event, nil
}

func (r *paymentEventRepo) Find(ctx context.Context, provider, externalEventID string) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("provider = ? AND external_event_id = ?", provider, externalEventID).
		First(&event).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *paymentEventRepo) Create(ctx context.Context, event *models.PaymentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *paymentEventRepo) Save(ctx context.Context, event *models.PaymentEvent) error {
	return r.db.WithContext(ctx).Save(event).Error
}

func (r *paymentEventRepo) ListFailedRetryable(ctx context.Context, maxRetries, limit int) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("status = ? AND signature_valid = ? AND retry_count < ?",
			models.PaymentEventFailed, true, maxRetries).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

type withdrawalRepo struct {
	db *gorm.DB
}

func (r *withdrawalRepo) GetByID(ctx context.Context, id uint) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	if err := r.db.WithContext(ctx).First(&withdrawal, id).Error; err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrWithdrawalNotFound
		}
		return nil, err
	}
	return &withdrawal, nil
}

func (r *withdrawalRepo) GetForUpdate(ctx context.Context, id uint) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&withdrawal, id).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrWithdrawalNotFound
		}
		return nil, err
	}
	return &withdrawal, nil
}

func (r *withdrawalRepo) GetByExternalRef(ctx context.Context, ref string) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	err := r.db.WithContext(ctx).Where("external_ref = ?", ref).First(&withdrawal).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrWithdrawalNotFound
		}
		return nil, err
	}
	return &withdrawal, nil
}

func (r *withdrawalRepo) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	return r.db.WithContext(ctx).Create(withdrawal).Error
}

func (r *withdrawalRepo) Save(ctx context.Context, withdrawal *models.Withdrawal) error {
	return r.db.WithContext(ctx).Save(withdrawal).Error
}
