package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crux/internal/adapters/storage"
	"crux/internal/application/orchestrators"
	"crux/internal/domain/apperror"
	cohortDomain "crux/internal/domain/cohort"
	holidayDomain "crux/internal/domain/holiday"
	memberDomain "crux/internal/domain/member"
	scheduleDomain "crux/internal/domain/schedule"
)

// defaultPerfWindow is how far back GET /api/admin/perf looks without ?window=.
const defaultPerfWindow = 15 * time.Minute

// storeError maps storage sentinels from direct store calls onto apperror codes.
func storeError(err error, what string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperror.New(apperror.ErrNotFound, what+" not found")
	case errors.Is(err, storage.ErrConflict):
		return apperror.New(apperror.ErrInvalidField, what+" already exists")
	case errors.Is(err, storage.ErrRowLocked):
		return apperror.Wrap(apperror.ErrResourceLocked, err)
	}
	return err
}

func reconcileDeps() orchestrators.ReconcileDeps {
	return orchestrators.ReconcileDeps{
		Tx:              stores.DB,
		Resolver:        stores.Resolver,
		Holidays:        stores.HolidayStore,
		AttendanceStore: stores.AttendanceStore,
		StatsStore:      stores.StatsStore,
		Roster:          stores.MemberStore,
		GenerateID:      generateID,
		Now:             timeNow,
	}
}

// handleRunJob handles POST /api/admin/jobs/{name}
// Runs one reconciliation job now, as the nightly scheduler would.
func handleRunJob(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	run, ok := orchestrators.ReconcileJobs(reconcileDeps())[name]
	if !ok {
		writeError(w, apperror.New(apperror.ErrNotFound, "unknown job "+name))
		return
	}

	start := time.Now()
	report, err := run(r.Context())
	if perfCollector != nil {
		perfCollector.ObserveJob(name, start, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("job_event", "event", "job_run_manual", "job", name, "created", report.Created, "failed", report.Failed)
	writeJSON(w, http.StatusOK, report)
}

// handleGetPerf handles GET /api/admin/perf?window=15m&top=10
func handleGetPerf(w http.ResponseWriter, r *http.Request) {
	if perfCollector == nil {
		writeError(w, apperror.New(apperror.ErrNotFound, "perf collection is disabled"))
		return
	}
	window := defaultPerfWindow
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, apperror.New(apperror.ErrInvalidField, "window must be a positive duration such as 15m"))
			return
		}
		window = d
	}
	type topParam struct {
		Top int `validate:"min=1,max=100"`
	}
	top := topParam{Top: 10}
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, apperror.New(apperror.ErrInvalidField, "top must be an integer"))
			return
		}
		top.Top = n
	}
	if err := validate.Struct(top); err != nil {
		writeError(w, apperror.New(apperror.ErrInvalidField, validationDetail(err)))
		return
	}
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(time.Now().Add(-window), top.Top))
}

type cohortRequest struct {
	Number    int    `json:"number" validate:"required,min=1"`
	Name      string `json:"name" validate:"required,max=50"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// handleListCohorts handles GET /api/admin/cohorts
func handleListCohorts(w http.ResponseWriter, r *http.Request) {
	cohorts, err := stores.CohortStore.List(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	if cohorts == nil {
		cohorts = []cohortDomain.Cohort{}
	}
	writeJSON(w, http.StatusOK, cohorts)
}

// handleCreateCohort handles POST /api/admin/cohorts
func handleCreateCohort(w http.ResponseWriter, r *http.Request) {
	var body cohortRequest
	if err := decodeAndValidate(r, &body); err != nil {
		writeError(w, err)
		return
	}
	// datetime validation guarantees both parse
	start, _ := cohortDomain.ParseDate(body.StartDate)
	end, _ := cohortDomain.ParseDate(body.EndDate)
	c := cohortDomain.Cohort{
		ID:        generateID(),
		Number:    body.Number,
		Name:      strings.TrimSpace(body.Name),
		StartDate: start,
		EndDate:   end,
	}
	if err := c.Validate(); err != nil {
		writeError(w, apperror.New(apperror.ErrInvalidField, err.Error()))
		return
	}
	if err := stores.CohortStore.Save(r.Context(), c); err != nil {
		writeError(w, storeError(err, "cohort number"))
		return
	}
	slog.Info("admin_event", "event", "cohort_created", "cohort_id", c.ID, "number", c.Number)
	writeJSON(w, http.StatusCreated, c)
}

type scheduleEntryRequest struct {
	Day       string `json:"day" validate:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Location  string `json:"location" validate:"required,max=100"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	StaffID   string `json:"staff_id"`
}

// handleListSchedule handles GET /api/admin/cohorts/{id}/schedule
func handleListSchedule(w http.ResponseWriter, r *http.Request) {
	entries, err := stores.ScheduleStore.ListByCohort(r.Context(), r.PathValue("id"))
	if err != nil {
		internalError(w, err)
		return
	}
	if entries == nil {
		entries = []scheduleDomain.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleCreateScheduleEntry handles POST /api/admin/cohorts/{id}/schedule
func handleCreateScheduleEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cohortID := r.PathValue("id")
	if _, err := stores.CohortStore.GetByID(ctx, cohortID); err != nil {
		writeError(w, storeError(err, "cohort"))
		return
	}

	var body scheduleEntryRequest
	if err := decodeAndValidate(r, &body); err != nil {
		writeError(w, err)
		return
	}
	e := scheduleDomain.Entry{
		ID:        generateID(),
		CohortID:  cohortID,
		Day:       body.Day,
		Location:  strings.TrimSpace(body.Location),
		StartTime: body.StartTime,
		StaffID:   body.StaffID,
	}
	if err := e.Validate(); err != nil {
		writeError(w, apperror.New(apperror.ErrInvalidField, err.Error()))
		return
	}
	if err := stores.ScheduleStore.Save(ctx, e); err != nil {
		writeError(w, storeError(err, "schedule entry"))
		return
	}
	slog.Info("admin_event", "event", "schedule_entry_created", "cohort_id", cohortID, "day", e.Day, "location", e.Location)
	writeJSON(w, http.StatusCreated, e)
}

// handleDeleteScheduleEntry handles DELETE /api/admin/schedule/{id}
func handleDeleteScheduleEntry(w http.ResponseWriter, r *http.Request) {
	if err := stores.ScheduleStore.Delete(r.Context(), r.PathValue("id")); err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type blackoutRequest struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason string `json:"reason" validate:"max=200"`
}

// handleListBlackouts handles GET /api/admin/blackouts
func handleListBlackouts(w http.ResponseWriter, r *http.Request) {
	dates, err := stores.HolidayStore.List(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	if dates == nil {
		dates = []holidayDomain.BlackoutDate{}
	}
	writeJSON(w, http.StatusOK, dates)
}

// handleCreateBlackout handles POST /api/admin/blackouts
func handleCreateBlackout(w http.ResponseWriter, r *http.Request) {
	var body blackoutRequest
	if err := decodeAndValidate(r, &body); err != nil {
		writeError(w, err)
		return
	}
	date, _ := cohortDomain.ParseDate(body.Date)
	b := holidayDomain.BlackoutDate{ID: generateID(), Date: date, Reason: strings.TrimSpace(body.Reason)}
	if err := b.Validate(); err != nil {
		writeError(w, apperror.New(apperror.ErrInvalidField, err.Error()))
		return
	}
	if err := stores.HolidayStore.Save(r.Context(), b); err != nil {
		writeError(w, storeError(err, "blackout date"))
		return
	}
	slog.Info("admin_event", "event", "blackout_created", "date", body.Date)
	writeJSON(w, http.StatusCreated, b)
}

// handleDeleteBlackout handles DELETE /api/admin/blackouts/{id}
func handleDeleteBlackout(w http.ResponseWriter, r *http.Request) {
	if err := stores.HolidayStore.Delete(r.Context(), r.PathValue("id")); err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type memberRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email"`
	Role         string `json:"role" validate:"required,oneof=member manager admin"`
	HomeLocation string `json:"home_location" validate:"required,max=100"`
	CohortID     string `json:"cohort_id" validate:"required"`
	Level        int    `json:"level" validate:"min=1,max=10"`
}

// handleCreateMember handles POST /api/admin/members
func handleCreateMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body memberRequest
	if err := decodeAndValidate(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if _, err := stores.CohortStore.GetByID(ctx, body.CohortID); err != nil {
		writeError(w, storeError(err, "cohort"))
		return
	}
	m := memberDomain.Member{
		ID:           generateID(),
		Name:         strings.TrimSpace(body.Name),
		Email:        strings.ToLower(strings.TrimSpace(body.Email)),
		Role:         body.Role,
		HomeLocation: strings.TrimSpace(body.HomeLocation),
		CohortID:     body.CohortID,
		Level:        body.Level,
		Active:       true,
	}
	if err := m.Validate(); err != nil {
		writeError(w, apperror.New(apperror.ErrInvalidField, err.Error()))
		return
	}
	if err := stores.MemberStore.Save(ctx, m); err != nil {
		writeError(w, storeError(err, "member email"))
		return
	}
	slog.Info("admin_event", "event", "member_created", "member_id", m.ID, "role", m.Role, "cohort_id", m.CohortID)
	created, err := stores.MemberStore.GetByID(ctx, m.ID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type memberUpdateRequest struct {
	Level        *int    `json:"level" validate:"omitempty,min=1,max=10"`
	HomeLocation *string `json:"home_location" validate:"omitempty,min=1,max=100"`
	Active       *bool   `json:"active"`
}

// handleUpdateMember handles PATCH /api/admin/members/{id}
// Level changes apply to future score deltas only; existing weekly scores are kept.
func handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body memberUpdateRequest
	if err := decodeAndValidate(r, &body); err != nil {
		writeError(w, err)
		return
	}
	m, err := stores.MemberStore.GetByID(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, storeError(err, "member"))
		return
	}
	if body.Level != nil {
		m.Level = *body.Level
	}
	if body.HomeLocation != nil {
		m.HomeLocation = strings.TrimSpace(*body.HomeLocation)
	}
	if body.Active != nil {
		m.Active = *body.Active
	}
	if err := m.Validate(); err != nil {
		writeError(w, apperror.New(apperror.ErrInvalidField, err.Error()))
		return
	}
	if err := stores.MemberStore.Save(ctx, m); err != nil {
		writeError(w, storeError(err, "member"))
		return
	}
	slog.Info("admin_event", "event", "member_updated", "member_id", m.ID, "level", m.Level, "active", m.Active)
	writeJSON(w, http.StatusOK, m)
}
