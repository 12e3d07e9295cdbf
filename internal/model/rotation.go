package model

import (
	"time"

	"github.com/google/uuid"
)

// rotation_states — single row per organization tracking the last worker the
// round-robin resolver assigned. Version is the optimistic-concurrency token:
// updates must match the version they read or they lose the race and retry.
type RotationState struct {
	OrganizationID uuid.UUID `gorm:"type:uuid;primaryKey"`

	LastWorkerID *uuid.UUID `gorm:"type:uuid"`

	Version int64 `gorm:"not null;default:0"`

	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Organization *Organization `gorm:"foreignKey:OrganizationID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
