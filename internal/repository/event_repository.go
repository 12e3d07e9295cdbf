package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/opsdesk/dispatch-core/internal/model"
)

type EventRepository interface {
	// CreateAssigned inserts the event and its worker assignments in one
	// transaction.
	CreateAssigned(ctx context.Context, event *model.Event, workerIDs []string) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	// ListBusyByWorkerRange returns busy events assigned to the worker whose
	// [starts_at, ends_at) overlaps [from, to), excluding terminal statuses.
	ListBusyByWorkerRange(ctx context.Context, workerID string, from, to time.Time) ([]model.Event, error)
	ListByOrganizationRange(ctx context.Context, orgID string, from, to time.Time) ([]model.Event, error)
	UpdateStatus(ctx context.Context, id string, status model.EventStatus) error
	// Reschedule moves the event to a new interval.
	Reschedule(ctx context.Context, id string, startsAt, endsAt time.Time) error
}

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) CreateAssigned(ctx context.Context, event *model.Event, workerIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		for _, wid := range workerIDs {
			assignment := map[string]any{
				"event_id":   event.ID.String(),
				"worker_id":  wid,
				"created_at": time.Now().UTC(),
			}
			if err := tx.Table("event_workers").Create(assignment).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormEventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *GormEventRepository) ListBusyByWorkerRange(ctx context.Context, workerID string, from, to time.Time) ([]model.Event, error) {
	var events []model.Event
	err := r.db.WithContext(ctx).
		Table("events").
		Select("events.*").
		Joins("JOIN event_workers ON event_workers.event_id = events.id").
		Where("event_workers.worker_id = ?", workerID).
		Where("events.busy = ?", true).
		Where("events.status NOT IN ?", []model.EventStatus{model.EventStatusCancelled, model.EventStatusNoShow}).
		Where("events.starts_at < ? AND events.ends_at > ?", to, from).
		Order("events.starts_at ASC").
		Scan(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *GormEventRepository) ListByOrganizationRange(ctx context.Context, orgID string, from, to time.Time) ([]model.Event, error) {
	var events []model.Event
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Where("starts_at < ? AND ends_at > ?", to, from).
		Order("starts_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *GormEventRepository) UpdateStatus(ctx context.Context, id string, status model.EventStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}

func (r *GormEventRepository) Reschedule(ctx context.Context, id string, startsAt, endsAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"starts_at": startsAt,
			"ends_at":   endsAt,
		}).
		Error
}
