package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opsdesk/dispatch-core/internal/calendar"
	"github.com/opsdesk/dispatch-core/internal/repository"
)

type ConflictKind string

const (
	ConflictKindEvent ConflictKind = "event"
	ConflictKindHold  ConflictKind = "hold"
)

// Conflict pairs a proposed interval with one overlapping item for one
// worker. A proposal touching bookings of two workers yields two entries.
type Conflict struct {
	WorkerID uuid.UUID
	Kind     ConflictKind
	ItemID   uuid.UUID
	Title    string
	StartsAt time.Time
	EndsAt   time.Time
}

// ConflictParams describes a proposed [StartAt, EndAt) interval to check.
type ConflictParams struct {
	OrganizationID uuid.UUID
	WorkerIDs      []uuid.UUID
	StartAt        time.Time
	EndAt          time.Time

	// IncludeEvents=false restricts detection to holds (lightweight pre-check).
	IncludeEvents bool

	// Excluded when re-checking a reschedule of the item itself.
	ExcludeEventID *uuid.UUID
	ExcludeHoldID  *uuid.UUID

	// Force runs detection even when the organization allows overlaps,
	// for "warn but allow" flows.
	Force bool
}

type ConflictService struct {
	orgs   repository.OrganizationRepository
	events repository.EventRepository
	holds  repository.HoldRepository

	now func() time.Time
}

func NewConflictService(
	orgs repository.OrganizationRepository,
	events repository.EventRepository,
	holds repository.HoldRepository,
) *ConflictService {
	return &ConflictService{
		orgs:   orgs,
		events: events,
		holds:  holds,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Detect reports every busy event and active hold overlapping the proposed
// interval for each requested worker. The check is read-only and advisory:
// callers re-check at commit time to bound the race window.
func (s *ConflictService) Detect(ctx context.Context, params ConflictParams) ([]Conflict, error) {
	proposed, err := calendar.NewTimeRange(params.StartAt.UTC(), params.EndAt.UTC())
	if err != nil {
		return nil, ErrInvalidInterval
	}
	if len(params.WorkerIDs) == 0 {
		return nil, ErrNoWorkers
	}

	org, err := s.orgs.GetByID(ctx, params.OrganizationID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("load organization: %w", err)
	}

	// Conflict checking is opt-out per tenant.
	if org.AllowOverlaps && !params.Force {
		return nil, nil
	}

	var conflicts []Conflict
	for _, workerID := range params.WorkerIDs {
		if params.IncludeEvents {
			events, err := s.events.ListBusyByWorkerRange(ctx, workerID.String(), proposed.Start, proposed.End)
			if err != nil {
				return nil, fmt.Errorf("load events: %w", err)
			}
			for _, e := range events {
				if params.ExcludeEventID != nil && e.ID == *params.ExcludeEventID {
					continue
				}
				conflicts = append(conflicts, Conflict{
					WorkerID: workerID,
					Kind:     ConflictKindEvent,
					ItemID:   e.ID,
					Title:    e.Title,
					StartsAt: e.StartsAt.UTC(),
					EndsAt:   e.EndsAt.UTC(),
				})
			}
		}

		holds, err := s.holds.ListActiveByWorkerRange(ctx, workerID.String(), proposed.Start, proposed.End, s.now())
		if err != nil {
			return nil, fmt.Errorf("load holds: %w", err)
		}
		for _, h := range holds {
			if params.ExcludeHoldID != nil && h.ID == *params.ExcludeHoldID {
				continue
			}
			conflicts = append(conflicts, Conflict{
				WorkerID: workerID,
				Kind:     ConflictKindHold,
				ItemID:   h.ID,
				Title:    h.Note,
				StartsAt: h.StartsAt.UTC(),
				EndsAt:   h.EndsAt.UTC(),
			})
		}
	}

	return conflicts, nil
}
