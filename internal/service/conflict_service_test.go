package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/opsdesk/dispatch-core/internal/model"
)

func TestDetectBackToBackIsNotAConflict(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	workerID := seedWorker(t, db, orgID, "Dana", "")
	seedBusyEvent(t, db, orgID, workerID, utc(5, 9, 0), utc(5, 10, 0))

	svc := newConflicts(db)
	conflicts, err := svc.Detect(context.Background(), ConflictParams{
		OrganizationID: orgID,
		WorkerIDs:      []uuid.UUID{workerID},
		StartAt:        utc(5, 10, 0),
		EndAt:          utc(5, 11, 0),
		IncludeEvents:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("10:00 booking after a 09:00-10:00 event: got %d conflicts, want none", len(conflicts))
	}
}

func TestDetectOverlappingEvent(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	workerID := seedWorker(t, db, orgID, "Dana", "")
	eventID := seedBusyEvent(t, db, orgID, workerID, utc(5, 9, 0), utc(5, 10, 0))

	svc := newConflicts(db)
	conflicts, err := svc.Detect(context.Background(), ConflictParams{
		OrganizationID: orgID,
		WorkerIDs:      []uuid.UUID{workerID},
		StartAt:        utc(5, 9, 30),
		EndAt:          utc(5, 10, 30),
		IncludeEvents:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1: %v", len(conflicts), conflicts)
	}
	c := conflicts[0]
	if c.Kind != ConflictKindEvent || c.ItemID != eventID || c.WorkerID != workerID {
		t.Errorf("conflict = %+v, want the seeded event for the seeded worker", c)
	}
}

func TestDetectAllowOverlapsShortCircuits(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", true, 30)
	workerID := seedWorker(t, db, orgID, "Dana", "")
	seedBusyEvent(t, db, orgID, workerID, utc(5, 9, 0), utc(5, 10, 0))

	svc := newConflicts(db)
	params := ConflictParams{
		OrganizationID: orgID,
		WorkerIDs:      []uuid.UUID{workerID},
		StartAt:        utc(5, 9, 0),
		EndAt:          utc(5, 10, 0),
		IncludeEvents:  true,
	}

	conflicts, err := svc.Detect(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conflicts != nil {
		t.Errorf("overlaps allowed: got %v, want nil", conflicts)
	}

	// Force runs the check anyway.
	params.Force = true
	conflicts, err = svc.Detect(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 1 {
		t.Errorf("forced check: got %d conflicts, want 1", len(conflicts))
	}
}

func TestDetectHolds(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	workerID := seedWorker(t, db, orgID, "Dana", "")

	now := utc(5, 8, 0)
	activeID := seedHold(t, db, orgID, workerID, utc(5, 9, 0), utc(5, 10, 0), now.Add(time.Hour), model.HoldStatusActive)
	// Lapsed but not yet swept: must not count.
	seedHold(t, db, orgID, workerID, utc(5, 9, 0), utc(5, 10, 0), now.Add(-time.Minute), model.HoldStatusActive)
	// Already converted: must not count either.
	seedHold(t, db, orgID, workerID, utc(5, 9, 0), utc(5, 10, 0), now.Add(time.Hour), model.HoldStatusConfirmed)

	svc := newConflicts(db)
	svc.now = func() time.Time { return now }

	conflicts, err := svc.Detect(context.Background(), ConflictParams{
		OrganizationID: orgID,
		WorkerIDs:      []uuid.UUID{workerID},
		StartAt:        utc(5, 9, 30),
		EndAt:          utc(5, 10, 30),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want only the active hold: %v", len(conflicts), conflicts)
	}
	if conflicts[0].Kind != ConflictKindHold || conflicts[0].ItemID != activeID {
		t.Errorf("conflict = %+v, want the active hold", conflicts[0])
	}
}

func TestDetectHoldsOnlyPreCheck(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	workerID := seedWorker(t, db, orgID, "Dana", "")
	seedBusyEvent(t, db, orgID, workerID, utc(5, 9, 0), utc(5, 10, 0))

	svc := newConflicts(db)
	// IncludeEvents=false: the lightweight pre-check sees holds only.
	conflicts, err := svc.Detect(context.Background(), ConflictParams{
		OrganizationID: orgID,
		WorkerIDs:      []uuid.UUID{workerID},
		StartAt:        utc(5, 9, 0),
		EndAt:          utc(5, 10, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("got %d conflicts, want none without events", len(conflicts))
	}
}

func TestDetectExcludesRescheduledItem(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	workerID := seedWorker(t, db, orgID, "Dana", "")
	eventID := seedBusyEvent(t, db, orgID, workerID, utc(5, 9, 0), utc(5, 10, 0))

	svc := newConflicts(db)
	conflicts, err := svc.Detect(context.Background(), ConflictParams{
		OrganizationID: orgID,
		WorkerIDs:      []uuid.UUID{workerID},
		StartAt:        utc(5, 9, 0),
		EndAt:          utc(5, 11, 0),
		IncludeEvents:  true,
		ExcludeEventID: &eventID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("rescheduling against itself: got %d conflicts, want none", len(conflicts))
	}
}

func TestDetectMultipleWorkers(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	alice := seedWorker(t, db, orgID, "Alice", "")
	bob := seedWorker(t, db, orgID, "Bob", "")
	seedBusyEvent(t, db, orgID, alice, utc(5, 9, 0), utc(5, 10, 0))
	seedBusyEvent(t, db, orgID, bob, utc(5, 9, 30), utc(5, 10, 30))

	svc := newConflicts(db)
	conflicts, err := svc.Detect(context.Background(), ConflictParams{
		OrganizationID: orgID,
		WorkerIDs:      []uuid.UUID{alice, bob},
		StartAt:        utc(5, 9, 45),
		EndAt:          utc(5, 10, 15),
		IncludeEvents:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 2 {
		t.Errorf("got %d conflicts, want one per worker", len(conflicts))
	}
}

func TestDetectValidation(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	workerID := seedWorker(t, db, orgID, "Dana", "")

	svc := newConflicts(db)
	ctx := context.Background()

	_, err := svc.Detect(ctx, ConflictParams{
		OrganizationID: orgID,
		WorkerIDs:      []uuid.UUID{workerID},
		StartAt:        utc(5, 10, 0),
		EndAt:          utc(5, 10, 0),
	})
	if !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("empty interval: want ErrInvalidInterval, got %v", err)
	}

	_, err = svc.Detect(ctx, ConflictParams{
		OrganizationID: orgID,
		StartAt:        utc(5, 9, 0),
		EndAt:          utc(5, 10, 0),
	})
	if !errors.Is(err, ErrNoWorkers) {
		t.Errorf("no workers: want ErrNoWorkers, got %v", err)
	}
}
