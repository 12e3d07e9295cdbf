package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/opsdesk/dispatch-core/internal/model"
)

type OrganizationRepository interface {
	GetByID(ctx context.Context, id string) (*model.Organization, error)
	// UpdateSettings persists the admin-editable calendar settings.
	UpdateSettings(ctx context.Context, id string, timezone string, allowOverlaps bool, slotMinutes, defaultStartHour, weekStartsOn int) error
}

type GormOrganizationRepository struct {
	db *gorm.DB
}

func NewGormOrganizationRepository(db *gorm.DB) *GormOrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

func (r *GormOrganizationRepository) GetByID(ctx context.Context, id string) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *GormOrganizationRepository) UpdateSettings(
	ctx context.Context,
	id string,
	timezone string,
	allowOverlaps bool,
	slotMinutes, defaultStartHour, weekStartsOn int,
) error {
	return r.db.WithContext(ctx).
		Model(&model.Organization{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"timezone":           timezone,
			"allow_overlaps":     allowOverlaps,
			"slot_minutes":       slotMinutes,
			"default_start_hour": defaultStartHour,
			"week_starts_on":     weekStartsOn,
		}).
		Error
}
