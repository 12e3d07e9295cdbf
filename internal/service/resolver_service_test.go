package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opsdesk/dispatch-core/internal/repository"
)

func newResolver(db *gorm.DB) *ResolverService {
	return NewResolverService(newAvailability(db), repository.NewGormRotationRepository(db))
}

func TestResolvePreferredWorkerWins(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	dana := seedWorker(t, db, orgID, "Dana", "")
	seedWindow(t, db, dana, 1, 540, 1020) // Monday 09:00-17:00 UTC

	svc := newResolver(db)
	res, err := svc.Resolve(context.Background(), ResolveParams{
		OrganizationID:    orgID,
		Date:              laMonday,
		DurationMinutes:   30,
		PreferredWorkerID: dana,
		Strategy:          FallbackOwner,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.WorkerID != dana {
		t.Errorf("worker = %v, want the preferred worker", res.WorkerID)
	}
	if !res.Slot.Equal(utc(5, 9, 0)) {
		t.Errorf("slot = %v, want 09:00Z", res.Slot)
	}
}

func TestResolveOwnerStrategyNoFallback(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	dana := seedWorker(t, db, orgID, "Dana", "") // no working hours
	other := seedWorker(t, db, orgID, "Alice", "")
	seedWindow(t, db, other, 1, 540, 1020)

	svc := newResolver(db)
	_, err := svc.Resolve(context.Background(), ResolveParams{
		OrganizationID:     orgID,
		Date:               laMonday,
		DurationMinutes:    30,
		PreferredWorkerID:  dana,
		Strategy:           FallbackOwner,
		CandidateWorkerIDs: []uuid.UUID{other},
	})
	if !errors.Is(err, ErrNoOpenSlot) {
		t.Errorf("owner strategy never falls back: want ErrNoOpenSlot, got %v", err)
	}
}

func TestResolveLookaheadWalksForward(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	dana := seedWorker(t, db, orgID, "Dana", "")
	seedWindow(t, db, dana, 2, 540, 1020) // Tuesdays only

	svc := newResolver(db)
	res, err := svc.Resolve(context.Background(), ResolveParams{
		OrganizationID:    orgID,
		Date:              laMonday,
		DurationMinutes:   30,
		LookaheadDays:     1,
		PreferredWorkerID: dana,
		Strategy:          FallbackOwner,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Slot.Equal(utc(6, 9, 0)) {
		t.Errorf("slot = %v, want Tuesday 09:00Z", res.Slot)
	}
}

func TestResolveRoundRobinRotates(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	pat := seedWorker(t, db, orgID, "Pat", "") // preferred, never available
	alice := seedWorker(t, db, orgID, "Alice", "")
	bob := seedWorker(t, db, orgID, "Bob", "")
	carol := seedWorker(t, db, orgID, "Carol", "")
	for _, w := range []uuid.UUID{alice, bob, carol} {
		seedWindow(t, db, w, 1, 540, 1020)
	}

	svc := newResolver(db)
	params := ResolveParams{
		OrganizationID:     orgID,
		Date:               laMonday,
		DurationMinutes:    30,
		PreferredWorkerID:  pat,
		Strategy:           FallbackRoundRobin,
		CandidateWorkerIDs: []uuid.UUID{alice, bob, carol},
	}

	// Identical availability, so rotation order alone decides. The pointer
	// must advance each time and wrap after the last candidate.
	want := []uuid.UUID{alice, bob, carol, alice}
	for i, expected := range want {
		res, err := svc.Resolve(context.Background(), params)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if res.WorkerID != expected {
			t.Errorf("call %d: worker = %v, want %v", i, res.WorkerID, expected)
		}
		if !res.Slot.Equal(utc(5, 9, 0)) {
			t.Errorf("call %d: slot = %v, want 09:00Z", i, res.Slot)
		}
	}
}

func TestResolveRoundRobinSkipsUnavailable(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	pat := seedWorker(t, db, orgID, "Pat", "")
	alice := seedWorker(t, db, orgID, "Alice", "")
	bob := seedWorker(t, db, orgID, "Bob", "") // no working hours
	carol := seedWorker(t, db, orgID, "Carol", "")
	seedWindow(t, db, alice, 1, 540, 1020)
	seedWindow(t, db, carol, 1, 540, 1020)

	svc := newResolver(db)
	params := ResolveParams{
		OrganizationID:     orgID,
		Date:               laMonday,
		DurationMinutes:    30,
		PreferredWorkerID:  pat,
		Strategy:           FallbackRoundRobin,
		CandidateWorkerIDs: []uuid.UUID{alice, bob, carol},
	}

	want := []uuid.UUID{alice, carol, alice}
	for i, expected := range want {
		res, err := svc.Resolve(context.Background(), params)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if res.WorkerID != expected {
			t.Errorf("call %d: worker = %v, want %v", i, res.WorkerID, expected)
		}
	}
}

func TestResolveRoundRobinEarlierSlotWins(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	pat := seedWorker(t, db, orgID, "Pat", "")
	alice := seedWorker(t, db, orgID, "Alice", "")
	bob := seedWorker(t, db, orgID, "Bob", "")
	seedWindow(t, db, alice, 1, 600, 1020) // 10:00
	seedWindow(t, db, bob, 1, 540, 1020)   // 09:00

	svc := newResolver(db)
	res, err := svc.Resolve(context.Background(), ResolveParams{
		OrganizationID:     orgID,
		Date:               laMonday,
		DurationMinutes:    30,
		PreferredWorkerID:  pat,
		Strategy:           FallbackRoundRobin,
		CandidateWorkerIDs: []uuid.UUID{alice, bob},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.WorkerID != bob {
		t.Errorf("worker = %v, want the one free earlier", res.WorkerID)
	}
	if !res.Slot.Equal(utc(5, 9, 0)) {
		t.Errorf("slot = %v, want 09:00Z", res.Slot)
	}
}

func TestResolveNobodyAvailable(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	pat := seedWorker(t, db, orgID, "Pat", "")
	alice := seedWorker(t, db, orgID, "Alice", "")

	svc := newResolver(db)
	_, err := svc.Resolve(context.Background(), ResolveParams{
		OrganizationID:     orgID,
		Date:               laMonday,
		DurationMinutes:    30,
		LookaheadDays:      3,
		PreferredWorkerID:  pat,
		Strategy:           FallbackRoundRobin,
		CandidateWorkerIDs: []uuid.UUID{alice},
	})
	if !errors.Is(err, ErrNoOpenSlot) {
		t.Errorf("want ErrNoOpenSlot, got %v", err)
	}
}

func TestResolveValidation(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	dana := seedWorker(t, db, orgID, "Dana", "")

	svc := newResolver(db)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, ResolveParams{OrganizationID: orgID, Date: laMonday, PreferredWorkerID: dana})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("zero duration: want ErrInvalidDuration, got %v", err)
	}

	_, err = svc.Resolve(ctx, ResolveParams{
		OrganizationID:    orgID,
		Date:              laMonday,
		DurationMinutes:   30,
		LookaheadDays:     -1,
		PreferredWorkerID: dana,
	})
	if !errors.Is(err, ErrInvalidLookahead) {
		t.Errorf("negative lookahead: want ErrInvalidLookahead, got %v", err)
	}
}

func TestRotationAdvanceIsCompareAndSet(t *testing.T) {
	db := openTestDB(t)
	orgID := seedOrg(t, db, "UTC", false, 30)
	alice := seedWorker(t, db, orgID, "Alice", "")
	bob := seedWorker(t, db, orgID, "Bob", "")

	repo := repository.NewGormRotationRepository(db)
	ctx := context.Background()

	state, err := repo.Get(ctx, orgID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if state.Version != 0 || state.LastWorkerID != nil {
		t.Fatalf("fresh state = %+v, want version 0 with no pointer", state)
	}

	ok, err := repo.Advance(ctx, orgID, alice, state.Version)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !ok {
		t.Fatal("first advance at the read version must win")
	}

	// A second advance at the stale version loses the race.
	ok, err = repo.Advance(ctx, orgID, bob, state.Version)
	if err != nil {
		t.Fatalf("stale advance: %v", err)
	}
	if ok {
		t.Fatal("stale advance must report a lost race")
	}

	state, err = repo.Get(ctx, orgID)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if state.Version != 1 || state.LastWorkerID == nil || *state.LastWorkerID != alice {
		t.Errorf("state = %+v, want version 1 pointing at the winner", state)
	}
}
