package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/opsdesk/dispatch-core/internal/model"
	"github.com/opsdesk/dispatch-core/internal/repository"
)

// openTestDB builds an in-memory sqlite database with a sqlite-friendly
// mirror of the production schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	schema := []string{
		`CREATE TABLE organizations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			timezone TEXT NOT NULL,
			allow_overlaps BOOLEAN NOT NULL DEFAULT 0,
			slot_minutes INTEGER NOT NULL DEFAULT 30,
			default_start_hour INTEGER NOT NULL DEFAULT 9,
			week_starts_on INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE workers (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			display_name TEXT NOT NULL,
			contact_phone TEXT,
			timezone TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE working_hours (
			id TEXT PRIMARY KEY,
			worker_id TEXT NOT NULL,
			weekday INTEGER NOT NULL,
			start_minute INTEGER NOT NULL,
			end_minute INTEGER NOT NULL,
			timezone TEXT NOT NULL DEFAULT '',
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE time_offs (
			id TEXT PRIMARY KEY,
			worker_id TEXT NOT NULL,
			starts_at DATETIME NOT NULL,
			ends_at DATETIME NOT NULL,
			reason TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE events (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			starts_at DATETIME NOT NULL,
			ends_at DATETIME NOT NULL,
			busy BOOLEAN NOT NULL DEFAULT 1,
			status TEXT NOT NULL DEFAULT 'scheduled',
			hold_id TEXT,
			metadata TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE event_workers (
			event_id TEXT NOT NULL,
			worker_id TEXT NOT NULL,
			created_at DATETIME,
			PRIMARY KEY (event_id, worker_id)
		);`,
		`CREATE TABLE holds (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			worker_id TEXT NOT NULL,
			starts_at DATETIME NOT NULL,
			ends_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			note TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE rotation_states (
			organization_id TEXT PRIMARY KEY,
			last_worker_id TEXT,
			version INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME
		);`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func seedOrg(t *testing.T, db *gorm.DB, timezone string, allowOverlaps bool, slotMinutes int) uuid.UUID {
	t.Helper()
	org := model.Organization{
		ID:               uuid.New(),
		Name:             "Acme Plumbing",
		Timezone:         timezone,
		AllowOverlaps:    allowOverlaps,
		SlotMinutes:      slotMinutes,
		DefaultStartHour: 9,
	}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("seed org: %v", err)
	}
	return org.ID
}

func seedWorker(t *testing.T, db *gorm.DB, orgID uuid.UUID, name, timezone string) uuid.UUID {
	t.Helper()
	w := model.Worker{
		ID:             uuid.New(),
		OrganizationID: orgID,
		DisplayName:    name,
		Timezone:       timezone,
		IsActive:       true,
	}
	if err := db.Create(&w).Error; err != nil {
		t.Fatalf("seed worker: %v", err)
	}
	return w.ID
}

func seedWindow(t *testing.T, db *gorm.DB, workerID uuid.UUID, weekday, startMinute, endMinute int) {
	t.Helper()
	wh := model.WorkingHours{
		ID:          uuid.New(),
		WorkerID:    workerID,
		Weekday:     weekday,
		StartMinute: startMinute,
		EndMinute:   endMinute,
	}
	if err := db.Create(&wh).Error; err != nil {
		t.Fatalf("seed working hours: %v", err)
	}
}

func seedBusyEvent(t *testing.T, db *gorm.DB, orgID, workerID uuid.UUID, startsAt, endsAt time.Time) uuid.UUID {
	t.Helper()
	return seedEvent(t, db, orgID, workerID, startsAt, endsAt, true, model.EventStatusScheduled)
}

func seedEvent(t *testing.T, db *gorm.DB, orgID, workerID uuid.UUID, startsAt, endsAt time.Time, busy bool, status model.EventStatus) uuid.UUID {
	t.Helper()
	e := model.Event{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Title:          "job",
		StartsAt:       startsAt.UTC(),
		EndsAt:         endsAt.UTC(),
		Busy:           busy,
		Status:         status,
	}
	if err := db.Create(&e).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	if err := db.Exec(`INSERT INTO event_workers (event_id, worker_id) VALUES (?, ?)`, e.ID.String(), workerID.String()).Error; err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	return e.ID
}

func seedHold(t *testing.T, db *gorm.DB, orgID, workerID uuid.UUID, startsAt, endsAt, expiresAt time.Time, status model.HoldStatus) uuid.UUID {
	t.Helper()
	h := model.Hold{
		ID:             uuid.New(),
		OrganizationID: orgID,
		WorkerID:       workerID,
		StartsAt:       startsAt.UTC(),
		EndsAt:         endsAt.UTC(),
		ExpiresAt:      expiresAt.UTC(),
		Status:         status,
	}
	if err := db.Create(&h).Error; err != nil {
		t.Fatalf("seed hold: %v", err)
	}
	return h.ID
}

func newAvailability(db *gorm.DB) *AvailabilityService {
	return NewAvailabilityService(
		repository.NewGormOrganizationRepository(db),
		repository.NewGormWorkerRepository(db),
		repository.NewGormWorkingHoursRepository(db),
		repository.NewGormTimeOffRepository(db),
		repository.NewGormEventRepository(db),
		repository.NewGormHoldRepository(db),
	)
}

func newConflicts(db *gorm.DB) *ConflictService {
	return NewConflictService(
		repository.NewGormOrganizationRepository(db),
		repository.NewGormEventRepository(db),
		repository.NewGormHoldRepository(db),
	)
}
