package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opsdesk/dispatch-core/internal/model"
)

type RotationRepository interface {
	// Get returns the organization's rotation row, creating it on first use.
	Get(ctx context.Context, orgID uuid.UUID) (*model.RotationState, error)
	// Advance moves the pointer to workerID iff the row still carries the
	// version the caller read. Returns false when another resolver won the
	// race; the caller re-reads and retries.
	Advance(ctx context.Context, orgID uuid.UUID, workerID uuid.UUID, version int64) (bool, error)
}

type GormRotationRepository struct {
	db *gorm.DB
}

func NewGormRotationRepository(db *gorm.DB) *GormRotationRepository {
	return &GormRotationRepository{db: db}
}

func (r *GormRotationRepository) Get(ctx context.Context, orgID uuid.UUID) (*model.RotationState, error) {
	var state model.RotationState
	err := r.db.WithContext(ctx).First(&state, "organization_id = ?", orgID.String()).Error
	if err == nil {
		return &state, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	state = model.RotationState{OrganizationID: orgID, Version: 0}
	if err := r.db.WithContext(ctx).Create(&state).Error; err != nil {
		// Lost the creation race; the row exists now.
		var again model.RotationState
		if ferr := r.db.WithContext(ctx).First(&again, "organization_id = ?", orgID.String()).Error; ferr == nil {
			return &again, nil
		}
		return nil, err
	}
	return &state, nil
}

func (r *GormRotationRepository) Advance(ctx context.Context, orgID uuid.UUID, workerID uuid.UUID, version int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.RotationState{}).
		Where("organization_id = ? AND version = ?", orgID.String(), version).
		Updates(map[string]any{
			"last_worker_id": workerID.String(),
			"version":        version + 1,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
