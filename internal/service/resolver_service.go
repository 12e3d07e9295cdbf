package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/opsdesk/dispatch-core/internal/calendar"
	"github.com/opsdesk/dispatch-core/internal/repository"
)

type FallbackStrategy string

const (
	// FallbackOwner: no fallback; the caller picks manually when the
	// preferred worker has no opening.
	FallbackOwner FallbackStrategy = "owner"
	// FallbackRoundRobin rotates among candidate workers to balance load.
	FallbackRoundRobin FallbackStrategy = "round_robin"
)

type ResolveParams struct {
	OrganizationID    uuid.UUID
	Date              string
	DurationMinutes   int
	LookaheadDays     int
	PreferredWorkerID uuid.UUID
	Strategy          FallbackStrategy

	// CandidateWorkerIDs defines the rotation order for round-robin fallback.
	CandidateWorkerIDs []uuid.UUID
}

// Resolution is the earliest open slot found and the worker it lands on.
type Resolution struct {
	Slot     time.Time
	WorkerID uuid.UUID
}

type ResolverService struct {
	availability *AvailabilityService
	rotations    repository.RotationRepository
}

func NewResolverService(availability *AvailabilityService, rotations repository.RotationRepository) *ResolverService {
	return &ResolverService{availability: availability, rotations: rotations}
}

// Resolve finds the earliest open slot day by day over the lookahead window,
// preferred worker first. Greedy, not globally optimal: the first day with an
// opening for the preferred worker wins even if a candidate is free earlier.
// Returns ErrNoOpenSlot when nobody has an opening.
func (s *ResolverService) Resolve(ctx context.Context, params ResolveParams) (*Resolution, error) {
	if params.DurationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	if params.LookaheadDays < 0 {
		return nil, ErrInvalidLookahead
	}

	slot, found, err := s.earliestSlot(ctx, params, params.PreferredWorkerID)
	if err != nil {
		return nil, err
	}
	if found {
		return &Resolution{Slot: slot, WorkerID: params.PreferredWorkerID}, nil
	}

	if params.Strategy != FallbackRoundRobin {
		return nil, ErrNoOpenSlot
	}

	return s.resolveRoundRobin(ctx, params)
}

// resolveRoundRobin scans the candidates in rotation order starting after the
// organization's last-assigned worker. The earliest instant wins; ties go to
// the candidate earlier in the rotation. The pointer is advanced with a
// compare-and-set so concurrent resolvers cannot both claim the same turn.
func (s *ResolverService) resolveRoundRobin(ctx context.Context, params ResolveParams) (*Resolution, error) {
	state, err := s.rotations.Get(ctx, params.OrganizationID)
	if err != nil {
		return nil, err
	}

	candidates := rotate(params.CandidateWorkerIDs, state.LastWorkerID)

	var (
		best       Resolution
		bestFound  bool
		seenWorker = map[uuid.UUID]struct{}{params.PreferredWorkerID: {}}
	)
	for _, workerID := range candidates {
		if _, seen := seenWorker[workerID]; seen {
			continue
		}
		seenWorker[workerID] = struct{}{}

		slot, found, err := s.earliestSlot(ctx, params, workerID)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		if !bestFound || slot.Before(best.Slot) {
			best = Resolution{Slot: slot, WorkerID: workerID}
			bestFound = true
		}
	}
	if !bestFound {
		return nil, ErrNoOpenSlot
	}

	// Best-effort fairness: a CAS loss means another resolver assigned in
	// parallel; re-read and try again a bounded number of times, then return
	// the resolution regardless - the slot itself is still valid.
	version := state.Version
	for attempt := 0; attempt < 3; attempt++ {
		ok, err := s.rotations.Advance(ctx, params.OrganizationID, best.WorkerID, version)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		state, err = s.rotations.Get(ctx, params.OrganizationID)
		if err != nil {
			return nil, err
		}
		version = state.Version
	}

	return &best, nil
}

// earliestSlot walks the lookahead window day by day (inclusive) and returns
// the first slot of the first day with any availability.
func (s *ResolverService) earliestSlot(ctx context.Context, params ResolveParams, workerID uuid.UUID) (time.Time, bool, error) {
	day, err := time.Parse(calendar.DateLayout, params.Date)
	if err != nil {
		return time.Time{}, false, calendar.ErrInvalidDate
	}

	for d := 0; d <= params.LookaheadDays; d++ {
		date := day.AddDate(0, 0, d).Format(calendar.DateLayout)
		res, err := s.availability.ComputeForWorker(ctx, params.OrganizationID, workerID, date, params.DurationMinutes)
		if err != nil {
			return time.Time{}, false, err
		}
		if len(res.SlotsUTC) > 0 {
			return res.SlotsUTC[0], true, nil
		}
	}
	return time.Time{}, false, nil
}

// rotate reorders candidates to start after the last-assigned worker,
// wrapping around. An unknown or nil pointer leaves the order as given.
func rotate(candidates []uuid.UUID, last *uuid.UUID) []uuid.UUID {
	if last == nil {
		return candidates
	}
	for i, id := range candidates {
		if id == *last {
			out := make([]uuid.UUID, 0, len(candidates))
			out = append(out, candidates[i+1:]...)
			out = append(out, candidates[:i+1]...)
			return out
		}
	}
	return candidates
}
