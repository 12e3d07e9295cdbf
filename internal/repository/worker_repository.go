package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/opsdesk/dispatch-core/internal/model"
)

type WorkerRepository interface {
	GetByID(ctx context.Context, id string) (*model.Worker, error)
	// GetMember returns the worker only if it belongs to the organization.
	GetMember(ctx context.Context, orgID, workerID string) (*model.Worker, error)
	ListByOrganization(ctx context.Context, orgID string, onlyActive bool) ([]model.Worker, error)
}

type GormWorkerRepository struct {
	db *gorm.DB
}

func NewGormWorkerRepository(db *gorm.DB) *GormWorkerRepository {
	return &GormWorkerRepository{db: db}
}

func (r *GormWorkerRepository) GetByID(ctx context.Context, id string) (*model.Worker, error) {
	var w model.Worker
	if err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *GormWorkerRepository) GetMember(ctx context.Context, orgID, workerID string) (*model.Worker, error) {
	var w model.Worker
	err := r.db.WithContext(ctx).
		First(&w, "id = ? AND organization_id = ?", workerID, orgID).
		Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *GormWorkerRepository) ListByOrganization(ctx context.Context, orgID string, onlyActive bool) ([]model.Worker, error) {
	q := r.db.WithContext(ctx).Where("organization_id = ?", orgID)
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}

	var workers []model.Worker
	if err := q.Order("display_name ASC").Find(&workers).Error; err != nil {
		return nil, err
	}
	return workers, nil
}
