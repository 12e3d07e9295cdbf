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

// AvailabilityResult is an ordered, de-duplicated list of candidate slot
// start instants in UTC, plus the zone they were computed against.
type AvailabilityResult struct {
	SlotsUTC []time.Time
	TimeZone string
}

type AvailabilityService struct {
	orgs    repository.OrganizationRepository
	workers repository.WorkerRepository
	hours   repository.WorkingHoursRepository
	timeOff repository.TimeOffRepository
	events  repository.EventRepository
	holds   repository.HoldRepository

	now func() time.Time
}

func NewAvailabilityService(
	orgs repository.OrganizationRepository,
	workers repository.WorkerRepository,
	hours repository.WorkingHoursRepository,
	timeOff repository.TimeOffRepository,
	events repository.EventRepository,
	holds repository.HoldRepository,
) *AvailabilityService {
	return &AvailabilityService{
		orgs:    orgs,
		workers: workers,
		hours:   hours,
		timeOff: timeOff,
		events:  events,
		holds:   holds,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ComputeForWorker computes the worker's open slot starts for one local
// calendar day: weekly windows, minus time off, minus busy events and active
// holds, walked at the organization's slot granularity.
//
// No windows for that weekday, or a duration longer than every remaining
// window, yields an empty result rather than an error.
func (s *AvailabilityService) ComputeForWorker(
	ctx context.Context,
	orgID, workerID uuid.UUID,
	date string,
	durationMinutes int,
) (*AvailabilityResult, error) {
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}

	org, err := s.orgs.GetByID(ctx, orgID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("load organization: %w", err)
	}

	worker, err := s.workers.GetMember(ctx, orgID.String(), workerID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkerNotFound
		}
		return nil, fmt.Errorf("load worker: %w", err)
	}

	tz := worker.Timezone
	if tz == "" {
		tz = org.Timezone
	}
	loc, err := calendar.LoadLocation(tz)
	if err != nil {
		return nil, err
	}

	day, err := time.ParseInLocation(calendar.DateLayout, date, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", calendar.ErrInvalidDate, date)
	}

	// An inactive worker cannot take new work, so the day is simply closed.
	if !worker.IsActive {
		return &AvailabilityResult{TimeZone: tz}, nil
	}

	free, err := s.expandWindows(ctx, workerID, day, loc)
	if err != nil {
		return nil, err
	}
	if len(free) == 0 {
		return &AvailabilityResult{TimeZone: tz}, nil
	}

	// One query envelope covering every window of the day.
	from, to := free[0].Start, free[0].End
	for _, f := range free[1:] {
		if f.Start.Before(from) {
			from = f.Start
		}
		if f.End.After(to) {
			to = f.End
		}
	}

	off, err := s.timeOff.ListOverlapping(ctx, workerID.String(), from, to)
	if err != nil {
		return nil, fmt.Errorf("load time off: %w", err)
	}
	for _, t := range off {
		free = calendar.SubtractRange(free, calendar.TimeRange{Start: t.StartsAt.UTC(), End: t.EndsAt.UTC()})
	}

	busy, err := s.busyIntervals(ctx, workerID, from, to)
	if err != nil {
		return nil, err
	}
	free = calendar.SubtractRanges(free, busy)

	step := time.Duration(calendar.ClampSlotMinutes(org.SlotMinutes)) * time.Minute
	slots, err := calendar.WalkSlots(free, step, time.Duration(durationMinutes)*time.Minute)
	if err != nil {
		return nil, err
	}

	return &AvailabilityResult{SlotsUTC: slots, TimeZone: tz}, nil
}

// WorkerZone resolves the zone a worker's calendar is presented in: the
// worker's override when set, otherwise the organization's zone.
func (s *AvailabilityService) WorkerZone(ctx context.Context, orgID, workerID uuid.UUID) (string, error) {
	worker, err := s.workers.GetMember(ctx, orgID.String(), workerID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrWorkerNotFound
		}
		return "", fmt.Errorf("load worker: %w", err)
	}
	if worker.Timezone != "" {
		return worker.Timezone, nil
	}

	org, err := s.orgs.GetByID(ctx, orgID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrOrgNotFound
		}
		return "", fmt.Errorf("load organization: %w", err)
	}
	return org.Timezone, nil
}

// expandWindows materializes the worker's weekly windows for the given local
// day into UTC ranges. Each window is anchored in its own zone when it has
// one, falling back to the day's zone.
func (s *AvailabilityService) expandWindows(
	ctx context.Context,
	workerID uuid.UUID,
	day time.Time,
	loc *time.Location,
) ([]calendar.TimeRange, error) {
	weekday := int(day.Weekday())

	windows, err := s.hours.ListByWorkerAndWeekday(ctx, workerID.String(), weekday)
	if err != nil {
		return nil, fmt.Errorf("load working hours: %w", err)
	}

	var free []calendar.TimeRange
	for _, w := range windows {
		if w.StartMinute >= w.EndMinute {
			continue
		}
		wloc := loc
		if w.Timezone != "" {
			wloc, err = calendar.LoadLocation(w.Timezone)
			if err != nil {
				return nil, err
			}
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, w.StartMinute, 0, 0, wloc)
		end := time.Date(day.Year(), day.Month(), day.Day(), 0, w.EndMinute, 0, 0, wloc)
		free = append(free, calendar.TimeRange{Start: start.UTC(), End: end.UTC()})
	}
	return calendar.MergeRanges(free), nil
}

// busyIntervals collects the worker's blocking intervals: busy events in
// non-terminal statuses plus active, unexpired holds.
func (s *AvailabilityService) busyIntervals(
	ctx context.Context,
	workerID uuid.UUID,
	from, to time.Time,
) ([]calendar.TimeRange, error) {
	events, err := s.events.ListBusyByWorkerRange(ctx, workerID.String(), from, to)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	holds, err := s.holds.ListActiveByWorkerRange(ctx, workerID.String(), from, to, s.now())
	if err != nil {
		return nil, fmt.Errorf("load holds: %w", err)
	}

	busy := make([]calendar.TimeRange, 0, len(events)+len(holds))
	for _, e := range events {
		busy = append(busy, calendar.TimeRange{Start: e.StartsAt.UTC(), End: e.EndsAt.UTC()})
	}
	for _, h := range holds {
		busy = append(busy, calendar.TimeRange{Start: h.StartsAt.UTC(), End: h.EndsAt.UTC()})
	}
	return busy, nil
}
