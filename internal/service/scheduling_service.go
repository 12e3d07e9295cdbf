package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opsdesk/dispatch-core/internal/calendar"
	"github.com/opsdesk/dispatch-core/internal/model"
	"github.com/opsdesk/dispatch-core/internal/repository"
)

// errConflictDetected aborts the write transaction when the commit-time
// re-check finds an overlap. Never returned to callers.
var errConflictDetected = errors.New("conflict detected at commit")

type CreateEventParams struct {
	OrganizationID uuid.UUID
	Title          string
	Description    string

	// Either StartsAt (+ EndsAt or DurationMinutes) is set, or Date alone is
	// given and the event is anchored at the org's default start hour.
	StartsAt        time.Time
	EndsAt          time.Time
	DurationMinutes int
	Date            string

	Busy      bool
	WorkerIDs []uuid.UUID
	HoldID    *uuid.UUID
}

// SchedulingService owns the write path: event creation and hold confirmation
// re-run conflict detection inside the transaction, so the advisory check the
// UI saw is re-validated under the storage guarantee before commit.
type SchedulingService struct {
	db           *gorm.DB
	availability *AvailabilityService
}

func NewSchedulingService(db *gorm.DB, availability *AvailabilityService) *SchedulingService {
	return &SchedulingService{db: db, availability: availability}
}

// CreateEvent validates the interval, re-checks conflicts transactionally and
// inserts the event with its worker assignments. A non-empty conflict list
// with a nil error means the write was rejected, not that it failed.
func (s *SchedulingService) CreateEvent(ctx context.Context, params CreateEventParams) (*model.Event, []Conflict, error) {
	if len(params.WorkerIDs) == 0 {
		return nil, nil, ErrNoWorkers
	}

	var (
		created   *model.Event
		conflicts []Conflict
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := NewGormTxRepos(tx)

		org, err := repos.Organizations.GetByID(ctx, params.OrganizationID.String())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrgNotFound
			}
			return fmt.Errorf("load organization: %w", err)
		}

		startsAt, endsAt, err := eventInterval(params, org)
		if err != nil {
			return err
		}

		if params.Busy {
			detector := NewConflictService(repos.Organizations, repos.Events, repos.Holds)
			found, err := detector.Detect(ctx, ConflictParams{
				OrganizationID: params.OrganizationID,
				WorkerIDs:      params.WorkerIDs,
				StartAt:        startsAt,
				EndAt:          endsAt,
				IncludeEvents:  true,
				ExcludeHoldID:  params.HoldID,
			})
			if err != nil {
				return err
			}
			if len(found) > 0 {
				conflicts = found
				return errConflictDetected
			}
		}

		event := &model.Event{
			ID:             uuid.New(),
			OrganizationID: params.OrganizationID,
			Title:          params.Title,
			Description:    params.Description,
			StartsAt:       startsAt,
			EndsAt:         endsAt,
			Busy:           params.Busy,
			Status:         model.EventStatusScheduled,
			HoldID:         params.HoldID,
		}

		workerIDs := make([]string, 0, len(params.WorkerIDs))
		for _, id := range params.WorkerIDs {
			workerIDs = append(workerIDs, id.String())
		}
		if err := repos.Events.CreateAssigned(ctx, event, workerIDs); err != nil {
			return fmt.Errorf("create event: %w", err)
		}

		created = event
		return nil
	})

	if errors.Is(err, errConflictDetected) {
		return nil, conflicts, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return created, nil, nil
}

// ConfirmHold converts an ACTIVE, unexpired hold into its event. The status
// flip is guarded by a rows-affected check, so two concurrent confirms cannot
// both convert the same hold.
func (s *SchedulingService) ConfirmHold(ctx context.Context, holdID uuid.UUID, title string) (*model.Event, error) {
	var created *model.Event

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := NewGormTxRepos(tx)

		hold, err := repos.Holds.GetByID(ctx, holdID.String())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHoldNotActive
			}
			return fmt.Errorf("load hold: %w", err)
		}
		if hold.Status != model.HoldStatusActive || !hold.ExpiresAt.After(time.Now().UTC()) {
			return ErrHoldNotActive
		}

		res := tx.Model(&model.Hold{}).
			Where("id = ? AND status = ?", holdID.String(), model.HoldStatusActive).
			Update("status", model.HoldStatusConfirmed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrHoldNotActive
		}

		hid := hold.ID
		event := &model.Event{
			ID:             uuid.New(),
			OrganizationID: hold.OrganizationID,
			Title:          title,
			StartsAt:       hold.StartsAt,
			EndsAt:         hold.EndsAt,
			Busy:           true,
			Status:         model.EventStatusConfirmed,
			HoldID:         &hid,
		}
		if err := repos.Events.CreateAssigned(ctx, event, []string{hold.WorkerID.String()}); err != nil {
			return fmt.Errorf("create event from hold: %w", err)
		}

		created = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SuggestAlternatives feeds a rejected proposal back into the availability
// engine and returns up to limit open starts on the same local day.
func (s *SchedulingService) SuggestAlternatives(
	ctx context.Context,
	orgID, workerID uuid.UUID,
	date string,
	durationMinutes, limit int,
) ([]time.Time, error) {
	res, err := s.availability.ComputeForWorker(ctx, orgID, workerID, date, durationMinutes)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(res.SlotsUTC) > limit {
		return res.SlotsUTC[:limit], nil
	}
	return res.SlotsUTC, nil
}

// eventInterval resolves the proposed [start, end) from the params: explicit
// instants win, a duration derives the end, and a bare date anchors at the
// organization's default start hour in the org zone.
func eventInterval(params CreateEventParams, org *model.Organization) (time.Time, time.Time, error) {
	startsAt := params.StartsAt
	if startsAt.IsZero() {
		if params.Date == "" {
			return time.Time{}, time.Time{}, calendar.ErrInvalidDate
		}
		start, err := calendar.ToUTCFromLocalDateTime(params.Date, calendar.MinutesToHHMM(org.DefaultStartHour*60), org.Timezone)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		startsAt = start
	}

	endsAt := params.EndsAt
	if endsAt.IsZero() {
		if params.DurationMinutes <= 0 {
			return time.Time{}, time.Time{}, ErrInvalidDuration
		}
		endsAt = startsAt.Add(time.Duration(params.DurationMinutes) * time.Minute)
	}

	if !endsAt.After(startsAt) {
		return time.Time{}, time.Time{}, ErrInvalidInterval
	}
	return startsAt.UTC(), endsAt.UTC(), nil
}

// TxRepos bundles transaction-scoped repositories for the write path.
type TxRepos struct {
	Organizations repository.OrganizationRepository
	Events        repository.EventRepository
	Holds         repository.HoldRepository
}

func NewGormTxRepos(tx *gorm.DB) TxRepos {
	return TxRepos{
		Organizations: repository.NewGormOrganizationRepository(tx),
		Events:        repository.NewGormEventRepository(tx),
		Holds:         repository.NewGormHoldRepository(tx),
	}
}
