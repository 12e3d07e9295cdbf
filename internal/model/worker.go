package model

import (
	"time"

	"github.com/google/uuid"
)

// workers — field staff that can be assigned to events.
type Worker struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index"`

	DisplayName  string `gorm:"type:varchar(255);not null"`
	ContactPhone string `gorm:"type:varchar(32)"`

	// Optional IANA zone override; empty means "use the org timezone".
	Timezone string `gorm:"type:varchar(64)"`

	IsActive bool `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Organization *Organization  `gorm:"foreignKey:OrganizationID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	WorkingHours []WorkingHours `gorm:"foreignKey:WorkerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	TimeOff      []TimeOff      `gorm:"foreignKey:WorkerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	Events []Event `gorm:"many2many:event_workers;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}
