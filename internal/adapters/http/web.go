package web

import (
	"context"
	"net/http"
	"time"

	"crux/internal/adapters/http/middleware"
	"crux/internal/adapters/http/perf"
	"crux/internal/adapters/storage"
	attendanceStore "crux/internal/adapters/storage/attendance"
	cohortStore "crux/internal/adapters/storage/cohort"
	holidayStore "crux/internal/adapters/storage/holiday"
	memberStore "crux/internal/adapters/storage/member"
	rankingStore "crux/internal/adapters/storage/ranking"
	recordStore "crux/internal/adapters/storage/record"
	scheduleStore "crux/internal/adapters/storage/schedule"
	"crux/internal/application/orchestrators"
	"crux/internal/domain/member"
)

// Stores holds all storage dependencies.
type Stores struct {
	DB              *storage.TimedDB // transactions, row locks, health
	Resolver        *orchestrators.ScheduleResolver
	CohortStore     cohortStore.Store
	ScheduleStore   scheduleStore.Store
	HolidayStore    holidayStore.Store
	MemberStore     memberStore.Store
	AttendanceStore attendanceStore.Store
	StatsStore      attendanceStore.StatsStore
	RecordStore     recordStore.Store
	RankingStore    rankingStore.Store
}

// Config carries the HTTP settings read by cmd/server.
type Config struct {
	JWTSecret      []byte
	RequestTimeout time.Duration
	// RateLimitPerSecond is the per-IP request budget. Zero disables limiting.
	RateLimitPerSecond int
	// SlowRequest is the duration above which requests log at WARN.
	SlowRequest time.Duration
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// NewMux wires HTTP handlers for the app. ctx bounds background work such
// as the rate limiter's sweeper.
func NewMux(ctx context.Context, s *Stores, cfg Config, collector *perf.Collector) http.Handler {
	stores = s
	perfCollector = collector

	mux := http.NewServeMux()
	registerRoutes(mux, cfg)

	mws := []func(http.Handler) http.Handler{
		middleware.Recover,
		middleware.SecurityHeaders,
	}
	if cfg.RequestTimeout > 0 {
		mws = append([]func(http.Handler) http.Handler{middleware.Timeout(cfg.RequestTimeout)}, mws...)
	}
	if cfg.RateLimitPerSecond > 0 {
		mws = append(mws, middleware.RateLimit(middleware.NewRateLimiter(ctx, cfg.RateLimitPerSecond, time.Second)))
	}
	mws = append(mws, middleware.Timing(collector, cfg.SlowRequest))

	// Apply middleware: Timing -> RateLimit -> SecurityHeaders -> Recover -> Timeout -> Mux
	return middleware.Chain(mux, mws...)
}

func registerRoutes(mux *http.ServeMux, cfg Config) {
	authn := middleware.Authenticate(cfg.JWTSecret, stores.MemberStore)
	anyone := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, authn)
	}
	staff := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, middleware.RequireRole(member.RoleManager, member.RoleAdmin), authn)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, middleware.RequireRole(member.RoleAdmin), authn)
	}

	mux.HandleFunc("GET "+middleware.HealthPath, handleHealth)

	// Attendance
	mux.Handle("POST /api/attendance", anyone(handleSubmitAttendance))
	mux.Handle("GET /api/attendance", anyone(handleGetAttendanceCalendar))
	mux.Handle("GET /api/attendance/rate", anyone(handleGetAttendanceRate))
	mux.Handle("GET /api/attendance/location", anyone(handleGetTodayLocation))
	mux.Handle("GET /api/attendance/members", anyone(handleListActiveMembers))
	mux.Handle("GET /api/attendance/members/{id}", anyone(handleGetAttendanceDetail))
	mux.Handle("GET /api/attendance/requests", staff(handleListPendingRequests))
	mux.Handle("PATCH /api/attendance/requests/{id}/accept", staff(handleAcceptAttendance))
	mux.Handle("PATCH /api/attendance/requests/{id}/reject", staff(handleRejectAttendance))

	// Activity records and rankings
	mux.Handle("GET /api/records", anyone(handleListSessions))
	mux.Handle("POST /api/records", anyone(handleLogSession))
	mux.Handle("GET /api/records/dates", anyone(handleListSessionDates))
	mux.Handle("PUT /api/records/{id}", anyone(handleUpdateSession))
	mux.Handle("DELETE /api/records/{id}", anyone(handleDeleteSession))
	mux.Handle("POST /api/records/{id}/problems", anyone(handleAddProblem))
	mux.Handle("PUT /api/records/problems/{id}", anyone(handleUpdateProblem))
	mux.Handle("DELETE /api/records/problems/{id}", anyone(handleDeleteProblem))
	mux.Handle("GET /api/rankings", anyone(handleGetWeeklyRankings))
	mux.Handle("GET /api/rankings/cohorts", anyone(handleGetCohortRankings))

	// Admin
	mux.Handle("POST /api/admin/jobs/{name}", admin(handleRunJob))
	mux.Handle("GET /api/admin/perf", admin(handleGetPerf))
	mux.Handle("GET /api/admin/cohorts", admin(handleListCohorts))
	mux.Handle("POST /api/admin/cohorts", admin(handleCreateCohort))
	mux.Handle("GET /api/admin/cohorts/{id}/schedule", admin(handleListSchedule))
	mux.Handle("POST /api/admin/cohorts/{id}/schedule", admin(handleCreateScheduleEntry))
	mux.Handle("DELETE /api/admin/schedule/{id}", admin(handleDeleteScheduleEntry))
	mux.Handle("GET /api/admin/blackouts", admin(handleListBlackouts))
	mux.Handle("POST /api/admin/blackouts", admin(handleCreateBlackout))
	mux.Handle("DELETE /api/admin/blackouts/{id}", admin(handleDeleteBlackout))
	mux.Handle("POST /api/admin/members", admin(handleCreateMember))
	mux.Handle("PATCH /api/admin/members/{id}", admin(handleUpdateMember))
}
