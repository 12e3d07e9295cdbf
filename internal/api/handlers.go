package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opsdesk/dispatch-core/internal/calendar"
	"github.com/opsdesk/dispatch-core/internal/model"
	"github.com/opsdesk/dispatch-core/internal/repository"
	"github.com/opsdesk/dispatch-core/internal/service"
)

// API translates the in-process scheduling contracts into HTTP for the portal
// UI. All instants cross the wire as RFC3339 UTC.
type API struct {
	Hours   repository.WorkingHoursRepository
	TimeOff repository.TimeOffRepository
	Events  repository.EventRepository
	Holds   repository.HoldRepository

	Availability *service.AvailabilityService
	Conflicts    *service.ConflictService
	Resolver     *service.ResolverService
	Scheduling   *service.SchedulingService
}

// Register mounts every route under the given (already authenticated) group.
func (a *API) Register(g *gin.RouterGroup) {
	orgs := g.Group("/orgs/:org_id")
	{
		orgs.GET("/workers/:id/availability", a.GetAvailability)
		orgs.POST("/conflicts", a.CheckConflicts)
		orgs.POST("/resolve", a.ResolveNextOpenSlot)
		orgs.GET("/events", a.ListEvents)
		orgs.POST("/events", a.CreateEvent)
		orgs.POST("/holds", a.CreateHold)
	}

	g.PATCH("/events/:id/status", a.UpdateEventStatus)
	g.POST("/holds/:id/confirm", a.ConfirmHold)

	workers := g.Group("/workers/:id")
	{
		workers.GET("/working-hours", a.ListWorkingHours)
		workers.POST("/working-hours", a.CreateWorkingHours)
		workers.POST("/time-off", a.CreateTimeOff)
	}
	g.DELETE("/working-hours/:id", a.DeleteWorkingHours)
	g.DELETE("/time-off/:id", a.DeleteTimeOff)
}

// GET /orgs/:org_id/workers/:id/availability?date=YYYY-MM-DD&duration=30
func (a *API) GetAvailability(c *gin.Context) {
	orgID, ok := pathUUID(c, "org_id")
	if !ok {
		return
	}
	workerID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	duration, err := strconv.Atoi(c.DefaultQuery("duration", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration"})
		return
	}

	res, err := a.Availability.ComputeForWorker(c.Request.Context(), orgID, workerID, c.Query("date"), duration)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slots_utc": rfc3339Slots(res.SlotsUTC),
		"timezone":  res.TimeZone,
	})
}

type conflictCheckReq struct {
	WorkerIDs      []uuid.UUID `json:"worker_ids" binding:"required"`
	StartAt        time.Time   `json:"start_at" binding:"required"`
	EndAt          time.Time   `json:"end_at" binding:"required"`
	IncludeEvents  *bool       `json:"include_events"`
	ExcludeEventID *uuid.UUID  `json:"exclude_event_id"`
	ExcludeHoldID  *uuid.UUID  `json:"exclude_hold_id"`
	Force          bool        `json:"force"`

	// When set, a conflicting response carries alternative slots for this
	// worker on the proposal's local day.
	SuggestForWorker *uuid.UUID `json:"suggest_for_worker"`
}

// POST /orgs/:org_id/conflicts
func (a *API) CheckConflicts(c *gin.Context) {
	orgID, ok := pathUUID(c, "org_id")
	if !ok {
		return
	}
	var req conflictCheckReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	includeEvents := true
	if req.IncludeEvents != nil {
		includeEvents = *req.IncludeEvents
	}

	conflicts, err := a.Conflicts.Detect(c.Request.Context(), service.ConflictParams{
		OrganizationID: orgID,
		WorkerIDs:      req.WorkerIDs,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		IncludeEvents:  includeEvents,
		ExcludeEventID: req.ExcludeEventID,
		ExcludeHoldID:  req.ExcludeHoldID,
		Force:          req.Force,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := gin.H{"conflicts": conflictDTOs(conflicts)}

	if len(conflicts) > 0 && req.SuggestForWorker != nil {
		if slots := a.suggestedSlots(c.Request.Context(), orgID, *req.SuggestForWorker, req.StartAt, req.EndAt); len(slots) > 0 {
			resp["suggested_slots"] = rfc3339Slots(slots)
		}
	}

	c.JSON(http.StatusOK, resp)
}

// suggestedSlots computes up to five alternative starts for the proposal's
// day. The day is projected through the worker's zone, not the UTC calendar:
// a local-evening proposal in a US zone is already tomorrow in UTC.
// Best-effort: any failure yields no suggestions.
func (a *API) suggestedSlots(ctx context.Context, orgID, workerID uuid.UUID, startAt, endAt time.Time) []time.Time {
	tz, err := a.Availability.WorkerZone(ctx, orgID, workerID)
	if err != nil {
		return nil
	}
	date, err := calendar.LocalDateFromUTC(startAt, tz)
	if err != nil {
		return nil
	}
	res, err := a.Availability.ComputeForWorker(ctx, orgID, workerID, date, int(endAt.Sub(startAt).Minutes()))
	if err != nil {
		return nil
	}

	const maxSuggestions = 5
	if len(res.SlotsUTC) > maxSuggestions {
		return res.SlotsUTC[:maxSuggestions]
	}
	return res.SlotsUTC
}

type resolveReq struct {
	Date               string      `json:"date" binding:"required"`
	DurationMinutes    int         `json:"duration_minutes" binding:"required"`
	LookaheadDays      int         `json:"lookahead_days"`
	PreferredWorkerID  uuid.UUID   `json:"preferred_worker_id" binding:"required"`
	FallbackStrategy   string      `json:"fallback_strategy"`
	CandidateWorkerIDs []uuid.UUID `json:"candidate_worker_ids"`
}

// POST /orgs/:org_id/resolve
func (a *API) ResolveNextOpenSlot(c *gin.Context) {
	orgID, ok := pathUUID(c, "org_id")
	if !ok {
		return
	}
	var req resolveReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	strategy := service.FallbackOwner
	if req.FallbackStrategy == string(service.FallbackRoundRobin) {
		strategy = service.FallbackRoundRobin
	}

	resolution, err := a.Resolver.Resolve(c.Request.Context(), service.ResolveParams{
		OrganizationID:     orgID,
		Date:               req.Date,
		DurationMinutes:    req.DurationMinutes,
		LookaheadDays:      req.LookaheadDays,
		PreferredWorkerID:  req.PreferredWorkerID,
		Strategy:           strategy,
		CandidateWorkerIDs: req.CandidateWorkerIDs,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoOpenSlot) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no open time within lookahead window"})
			return
		}
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slot_utc":  resolution.Slot.UTC().Format(time.RFC3339),
		"worker_id": resolution.WorkerID,
	})
}

type createEventReq struct {
	Title           string      `json:"title" binding:"required"`
	Description     string      `json:"description"`
	StartAt         *time.Time  `json:"start_at"`
	EndAt           *time.Time  `json:"end_at"`
	DurationMinutes int         `json:"duration_minutes"`
	Date            string      `json:"date"`
	Busy            *bool       `json:"busy"`
	WorkerIDs       []uuid.UUID `json:"worker_ids" binding:"required"`

	// Links the event to a hold taken for the same interval; the hold is then
	// excluded from the commit-time conflict re-check.
	HoldID *uuid.UUID `json:"hold_id"`
}

// POST /orgs/:org_id/events
func (a *API) CreateEvent(c *gin.Context) {
	orgID, ok := pathUUID(c, "org_id")
	if !ok {
		return
	}
	var req createEventReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := service.CreateEventParams{
		OrganizationID:  orgID,
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Date:            req.Date,
		Busy:            true,
		WorkerIDs:       req.WorkerIDs,
		HoldID:          req.HoldID,
	}
	if req.StartAt != nil {
		params.StartsAt = *req.StartAt
	}
	if req.EndAt != nil {
		params.EndsAt = *req.EndAt
	}
	if req.Busy != nil {
		params.Busy = *req.Busy
	}

	event, conflicts, err := a.Scheduling.CreateEvent(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if len(conflicts) > 0 {
		c.JSON(http.StatusConflict, gin.H{"conflicts": conflictDTOs(conflicts)})
		return
	}

	c.JSON(http.StatusCreated, eventDTO(event))
}

// GET /orgs/:org_id/events?from=ISO&to=ISO&page=1&page_size=20
func (a *API) ListEvents(c *gin.Context) {
	orgID, ok := pathUUID(c, "org_id")
	if !ok {
		return
	}
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
		return
	}
	if !from.Before(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be before to"})
		return
	}

	events, err := a.Events.ListByOrganizationRange(c.Request.Context(), orgID.String(), from.UTC(), to.UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	paged := calendar.Paginate(events, page, pageSize)

	items := make([]gin.H, 0, len(paged.Items))
	for i := range paged.Items {
		items = append(items, eventDTO(&paged.Items[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"events":    items,
		"page":      paged.Page,
		"page_size": paged.PageSize,
		"has_next":  paged.HasNext,
		"has_prev":  paged.HasPrev,
		"total":     paged.Total,
	})
}

type updateEventStatusReq struct {
	Status string `json:"status" binding:"required"`
}

// PATCH /events/:id/status
func (a *API) UpdateEventStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req updateEventStatusReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := model.EventStatus(req.Status)
	switch status {
	case model.EventStatusScheduled, model.EventStatusConfirmed, model.EventStatusEnRoute,
		model.EventStatusOnSite, model.EventStatusInProgress, model.EventStatusCompleted,
		model.EventStatusCancelled, model.EventStatusNoShow:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	if _, err := a.Events.GetByID(c.Request.Context(), id.String()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := a.Events.UpdateStatus(c.Request.Context(), id.String(), status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type createHoldReq struct {
	WorkerID      uuid.UUID `json:"worker_id" binding:"required"`
	StartAt       time.Time `json:"start_at" binding:"required"`
	EndAt         time.Time `json:"end_at" binding:"required"`
	ExpiresAt     time.Time `json:"expires_at" binding:"required"`
	Note          string    `json:"note"`
	SkipConflicts bool      `json:"skip_conflicts"`
}

// POST /orgs/:org_id/holds
func (a *API) CreateHold(c *gin.Context) {
	orgID, ok := pathUUID(c, "org_id")
	if !ok {
		return
	}
	var req createHoldReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.EndAt.After(req.StartAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_at must be after start_at"})
		return
	}

	if !req.SkipConflicts {
		conflicts, err := a.Conflicts.Detect(c.Request.Context(), service.ConflictParams{
			OrganizationID: orgID,
			WorkerIDs:      []uuid.UUID{req.WorkerID},
			StartAt:        req.StartAt,
			EndAt:          req.EndAt,
			IncludeEvents:  true,
		})
		if err != nil {
			respondServiceError(c, err)
			return
		}
		if len(conflicts) > 0 {
			c.JSON(http.StatusConflict, gin.H{"conflicts": conflictDTOs(conflicts)})
			return
		}
	}

	hold := &model.Hold{
		ID:             uuid.New(),
		OrganizationID: orgID,
		WorkerID:       req.WorkerID,
		StartsAt:       req.StartAt.UTC(),
		EndsAt:         req.EndAt.UTC(),
		ExpiresAt:      req.ExpiresAt.UTC(),
		Status:         model.HoldStatusActive,
		Note:           req.Note,
	}
	if err := a.Holds.Create(c.Request.Context(), hold); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         hold.ID,
		"status":     hold.Status,
		"start_at":   hold.StartsAt.Format(time.RFC3339),
		"end_at":     hold.EndsAt.Format(time.RFC3339),
		"expires_at": hold.ExpiresAt.Format(time.RFC3339),
	})
}

type confirmHoldReq struct {
	Title string `json:"title" binding:"required"`
}

// POST /holds/:id/confirm
func (a *API) ConfirmHold(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req confirmHoldReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := a.Scheduling.ConfirmHold(c.Request.Context(), id, req.Title)
	if err != nil {
		if errors.Is(err, service.ErrHoldNotActive) {
			c.JSON(http.StatusConflict, gin.H{"error": "hold is not active"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, eventDTO(event))
}

type createWorkingHoursReq struct {
	Weekday     int    `json:"weekday"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
	Timezone    string `json:"timezone"`
}

// POST /workers/:id/working-hours
func (a *API) CreateWorkingHours(c *gin.Context) {
	workerID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req createWorkingHoursReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Weekday < 0 || req.Weekday > 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "weekday must be 0-6"})
		return
	}
	if req.StartMinute < 0 || req.EndMinute > 1439 || req.StartMinute >= req.EndMinute {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_minute must be before end_minute within 0-1439"})
		return
	}
	if req.Timezone != "" {
		if _, err := calendar.LoadLocation(req.Timezone); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timezone"})
			return
		}
	}

	wh := &model.WorkingHours{
		ID:          uuid.New(),
		WorkerID:    workerID,
		Weekday:     req.Weekday,
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
		Timezone:    req.Timezone,
	}
	if err := a.Hours.Create(c.Request.Context(), wh); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":           wh.ID,
		"weekday":      wh.Weekday,
		"start_minute": wh.StartMinute,
		"end_minute":   wh.EndMinute,
		"start_time":   calendar.MinutesToHHMM(wh.StartMinute),
		"end_time":     calendar.MinutesToHHMM(wh.EndMinute),
	})
}

// GET /workers/:id/working-hours
func (a *API) ListWorkingHours(c *gin.Context) {
	workerID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	windows, err := a.Hours.ListByWorker(c.Request.Context(), workerID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(windows))
	for _, w := range windows {
		out = append(out, gin.H{
			"id":           w.ID,
			"weekday":      w.Weekday,
			"start_minute": w.StartMinute,
			"end_minute":   w.EndMinute,
			"start_time":   calendar.MinutesToHHMM(w.StartMinute),
			"end_time":     calendar.MinutesToHHMM(w.EndMinute),
			"timezone":     w.Timezone,
		})
	}
	c.JSON(http.StatusOK, out)
}

// DELETE /working-hours/:id
func (a *API) DeleteWorkingHours(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := a.Hours.Delete(c.Request.Context(), id.String()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type createTimeOffReq struct {
	StartAt time.Time `json:"start_at" binding:"required"`
	EndAt   time.Time `json:"end_at" binding:"required"`
	Reason  string    `json:"reason"`
}

// POST /workers/:id/time-off
func (a *API) CreateTimeOff(c *gin.Context) {
	workerID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req createTimeOffReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.EndAt.After(req.StartAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_at must be after start_at"})
		return
	}

	to := &model.TimeOff{
		ID:       uuid.New(),
		WorkerID: workerID,
		StartsAt: req.StartAt.UTC(),
		EndsAt:   req.EndAt.UTC(),
		Reason:   req.Reason,
	}
	if err := a.TimeOff.Create(c.Request.Context(), to); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": to.ID})
}

// DELETE /time-off/:id
func (a *API) DeleteTimeOff(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := a.TimeOff.Delete(c.Request.Context(), id.String()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func rfc3339Slots(slots []time.Time) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.UTC().Format(time.RFC3339))
	}
	return out
}

func conflictDTOs(conflicts []service.Conflict) []gin.H {
	out := make([]gin.H, 0, len(conflicts))
	for _, conf := range conflicts {
		out = append(out, gin.H{
			"worker_id": conf.WorkerID,
			"kind":      conf.Kind,
			"item_id":   conf.ItemID,
			"title":     conf.Title,
			"start_at":  conf.StartsAt.Format(time.RFC3339),
			"end_at":    conf.EndsAt.Format(time.RFC3339),
		})
	}
	return out
}

func eventDTO(e *model.Event) gin.H {
	return gin.H{
		"id":       e.ID,
		"title":    e.Title,
		"start_at": e.StartsAt.Format(time.RFC3339),
		"end_at":   e.EndsAt.Format(time.RFC3339),
		"busy":     e.Busy,
		"status":   e.Status,
	}
}

// respondServiceError maps service-layer failures onto HTTP statuses:
// validation sentinels are 400, missing aggregates 404, the rest 500.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDuration),
		errors.Is(err, service.ErrInvalidLookahead),
		errors.Is(err, service.ErrInvalidInterval),
		errors.Is(err, service.ErrNoWorkers),
		errors.Is(err, calendar.ErrInvalidDate),
		errors.Is(err, calendar.ErrInvalidTime),
		errors.Is(err, calendar.ErrInvalidTimezone):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOrgNotFound),
		errors.Is(err, service.ErrWorkerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
