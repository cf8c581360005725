package repositories

import (
	"context"
	goerrors "errors"
	"time"

	"github.com/rekberkan/kahade-sub000/internal/errors"
	"github.com/rekberkan/kahade-sub000/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type disputeRepo struct {
	db *gorm.DB
}

func (r *disputeRepo) GetByID(ctx context.Context, id uint) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.WithContext(ctx).First(&dispute, id).Error; err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrDisputeNotFound
		}
		return nil, err
	}
	return &dispute, nil
}

func (r *disputeRepo) GetForUpdate(ctx context.Context, id uint) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&dispute, id).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrDisputeNotFound
		}
		return nil, err
	}
	return &dispute, nil
}

func (r *disputeRepo) GetOpenByOrderID(ctx context.Context, orderID uint) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND status <> ?", orderID, models.DisputeStatusClosed).
		First(&dispute).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrDisputeNotFound
		}
		return nil, err
	}
	return &dispute, nil
}

func (r *disputeRepo) Create(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Create(dispute).Error
}

func (r *disputeRepo) Save(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Save(dispute).Error
}

func (r *disputeRepo) ListExpiredDecided(ctx context.Context, now time.Time, limit int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.WithContext(ctx).
		Where("status = ? AND appeal_deadline IS NOT NULL AND appeal_deadline < ?",
			models.DisputeStatusDecided, now).
		Order("appeal_deadline ASC").
		Limit(limit).
		Find(&disputes).Error
	return disputes, err
}

type timelineRepo struct {
	db *gorm.DB
}

func (r *timelineRepo) Append(ctx context.Context, entry *models.DisputeTimelineEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *timelineRepo) ListByDisputeID(ctx context.Context, disputeID uint) ([]models.DisputeTimelineEntry, error) {
	var entries []models.DisputeTimelineEntry
	err := r.db.WithContext(ctx).
		Where("dispute_id = ?", disputeID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}
