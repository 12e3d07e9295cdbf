package model

import (
	"time"

	"github.com/google/uuid"
)

// working_hours — one recurring weekly availability window. A worker may have
// zero, one or several windows per weekday (split morning/afternoon shifts).
type WorkingHours struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	WorkerID uuid.UUID `gorm:"type:uuid;not null;index"`

	// 0 = Sunday … 6 = Saturday, in the window's own timezone.
	Weekday int `gorm:"not null;index"`

	// Minute-of-day offsets within the local day, 0–1439. StartMinute < EndMinute.
	StartMinute int `gorm:"not null"`
	EndMinute   int `gorm:"not null"`

	// Optional IANA zone for this window; empty means "resolve through the
	// worker, then the organization".
	Timezone string `gorm:"type:varchar(64)"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Worker *Worker `gorm:"foreignKey:WorkerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// time_off — one-off exception interval overriding the weekly pattern to
// "unavailable". EndsAt > StartsAt.
type TimeOff struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	WorkerID uuid.UUID `gorm:"type:uuid;not null;index"`

	StartsAt time.Time `gorm:"type:timestamp with time zone;not null;index"`
	EndsAt   time.Time `gorm:"type:timestamp with time zone;not null"`

	Reason string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Worker *Worker `gorm:"foreignKey:WorkerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
