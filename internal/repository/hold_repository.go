package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/opsdesk/dispatch-core/internal/model"
)

type HoldRepository interface {
	Create(ctx context.Context, hold *model.Hold) error
	GetByID(ctx context.Context, id string) (*model.Hold, error)
	// ListActiveByWorkerRange returns ACTIVE, unexpired holds for the worker
	// whose [starts_at, ends_at) overlaps [from, to).
	ListActiveByWorkerRange(ctx context.Context, workerID string, from, to time.Time, now time.Time) ([]model.Hold, error)
	UpdateStatus(ctx context.Context, id string, status model.HoldStatus) error
	// ExpireLapsed bulk-transitions ACTIVE holds past their expiry to EXPIRED
	// and returns how many rows changed.
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

type GormHoldRepository struct {
	db *gorm.DB
}

func NewGormHoldRepository(db *gorm.DB) *GormHoldRepository {
	return &GormHoldRepository{db: db}
}

func (r *GormHoldRepository) Create(ctx context.Context, hold *model.Hold) error {
	return r.db.WithContext(ctx).Create(hold).Error
}

func (r *GormHoldRepository) GetByID(ctx context.Context, id string) (*model.Hold, error) {
	var h model.Hold
	if err := r.db.WithContext(ctx).First(&h, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *GormHoldRepository) ListActiveByWorkerRange(
	ctx context.Context,
	workerID string,
	from, to time.Time,
	now time.Time,
) ([]model.Hold, error) {
	var holds []model.Hold
	err := r.db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Where("status = ?", model.HoldStatusActive).
		Where("expires_at > ?", now).
		Where("starts_at < ? AND ends_at > ?", to, from).
		Order("starts_at ASC").
		Find(&holds).Error
	if err != nil {
		return nil, err
	}
	return holds, nil
}

func (r *GormHoldRepository) UpdateStatus(ctx context.Context, id string, status model.HoldStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.Hold{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}

func (r *GormHoldRepository) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Hold{}).
		Where("status = ?", model.HoldStatusActive).
		Where("expires_at <= ?", now).
		Update("status", model.HoldStatusExpired)
	return res.RowsAffected, res.Error
}
