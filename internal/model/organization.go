package model

import (
	"time"

	"github.com/google/uuid"
)

// organizations — one row per tenant. Every scheduling operation is anchored
// to Timezone; server-local time is never used for calendar math.
type Organization struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	Name string `gorm:"type:varchar(255);not null"`

	// IANA zone name, e.g. "America/Los_Angeles".
	Timezone string `gorm:"type:varchar(64);not null;default:'UTC'"`

	// When true, conflict detection is opt-out for this tenant.
	AllowOverlaps bool `gorm:"not null;default:false"`

	// Slot granularity in minutes: 15, 30, 60 or 90.
	SlotMinutes int `gorm:"not null;default:30"`

	// Local start hour used when an item arrives with a date but no time.
	DefaultStartHour int `gorm:"not null;default:9"`

	// 0 = Sunday, 1 = Monday.
	WeekStartsOn int `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Workers []Worker `gorm:"foreignKey:OrganizationID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
