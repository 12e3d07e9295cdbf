package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type EventStatus string

const (
	EventStatusScheduled  EventStatus = "scheduled"
	EventStatusConfirmed  EventStatus = "confirmed"
	EventStatusEnRoute    EventStatus = "en_route"
	EventStatusOnSite     EventStatus = "on_site"
	EventStatusInProgress EventStatus = "in_progress"
	EventStatusCompleted  EventStatus = "completed"
	EventStatusCancelled  EventStatus = "cancelled"
	EventStatusNoShow     EventStatus = "no_show"
)

// IsTerminal reports whether the status removes the event from conflict
// detection (the event no longer blocks anyone's time).
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusCancelled || s == EventStatusNoShow
}

// events — the unit of scheduled work. Events referenced by billing are never
// hard-deleted; cancellation flips the status instead.
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index"`

	Title       string `gorm:"type:varchar(255);not null"`
	Description string `gorm:"type:text"`

	StartsAt time.Time `gorm:"type:timestamp with time zone;not null;index"`
	EndsAt   time.Time `gorm:"type:timestamp with time zone;not null"`

	// Busy=false events are informational and never participate in
	// availability or conflict detection. No column default: a default tag
	// would make GORM drop an explicit false on insert.
	Busy bool `gorm:"not null;index"`

	Status EventStatus `gorm:"type:varchar(32);not null;default:'scheduled';index"`

	// Set when the event was created by confirming a hold.
	HoldID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`

	// Free-form payload: job numbers, lead references and similar.
	Metadata datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Organization *Organization `gorm:"foreignKey:OrganizationID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Hold         *Hold         `gorm:"foreignKey:HoldID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`

	Workers []Worker `gorm:"many2many:event_workers;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// event_workers — explicit many-to-many join between events and workers.
type EventWorker struct {
	EventID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkerID uuid.UUID `gorm:"type:uuid;primaryKey;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`

	Event  *Event  `gorm:"foreignKey:EventID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Worker *Worker `gorm:"foreignKey:WorkerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
