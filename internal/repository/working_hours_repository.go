package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/opsdesk/dispatch-core/internal/model"
)

type WorkingHoursRepository interface {
	Create(ctx context.Context, wh *model.WorkingHours) error
	ListByWorker(ctx context.Context, workerID string) ([]model.WorkingHours, error)
	ListByWorkerAndWeekday(ctx context.Context, workerID string, weekday int) ([]model.WorkingHours, error)
	Delete(ctx context.Context, id string) error
}

type TimeOffRepository interface {
	Create(ctx context.Context, to *model.TimeOff) error
	// ListOverlapping returns the worker's time-off intervals that intersect
	// [from, to) half-open.
	ListOverlapping(ctx context.Context, workerID string, from, to time.Time) ([]model.TimeOff, error)
	Delete(ctx context.Context, id string) error
}

type GormWorkingHoursRepository struct {
	db *gorm.DB
}

func NewGormWorkingHoursRepository(db *gorm.DB) *GormWorkingHoursRepository {
	return &GormWorkingHoursRepository{db: db}
}

func (r *GormWorkingHoursRepository) Create(ctx context.Context, wh *model.WorkingHours) error {
	return r.db.WithContext(ctx).Create(wh).Error
}

func (r *GormWorkingHoursRepository) ListByWorker(ctx context.Context, workerID string) ([]model.WorkingHours, error) {
	var windows []model.WorkingHours
	err := r.db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Order("weekday ASC, start_minute ASC").
		Find(&windows).Error
	if err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *GormWorkingHoursRepository) ListByWorkerAndWeekday(ctx context.Context, workerID string, weekday int) ([]model.WorkingHours, error) {
	var windows []model.WorkingHours
	err := r.db.WithContext(ctx).
		Where("worker_id = ? AND weekday = ?", workerID, weekday).
		Order("start_minute ASC").
		Find(&windows).Error
	if err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *GormWorkingHoursRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.WorkingHours{}, "id = ?", id).Error
}

type GormTimeOffRepository struct {
	db *gorm.DB
}

func NewGormTimeOffRepository(db *gorm.DB) *GormTimeOffRepository {
	return &GormTimeOffRepository{db: db}
}

func (r *GormTimeOffRepository) Create(ctx context.Context, to *model.TimeOff) error {
	return r.db.WithContext(ctx).Create(to).Error
}

func (r *GormTimeOffRepository) ListOverlapping(ctx context.Context, workerID string, from, to time.Time) ([]model.TimeOff, error) {
	var intervals []model.TimeOff
	err := r.db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Where("starts_at < ? AND ends_at > ?", to, from).
		Order("starts_at ASC").
		Find(&intervals).Error
	if err != nil {
		return nil, err
	}
	return intervals, nil
}

func (r *GormTimeOffRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.TimeOff{}, "id = ?", id).Error
}
