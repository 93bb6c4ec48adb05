package web

import (
	"net/http"

	"crux/internal/application/orchestrators"
	"crux/internal/application/projections"
	"crux/internal/domain/apperror"
)

func decideDeps() orchestrators.DecideAttendanceDeps {
	return orchestrators.DecideAttendanceDeps{
		Tx:              stores.DB,
		Resolver:        stores.Resolver,
		AttendanceStore: stores.AttendanceStore,
		StatsStore:      stores.StatsStore,
		MemberStore:     stores.MemberStore,
		Now:             timeNow,
	}
}

// handleSubmitAttendance handles POST /api/attendance
func handleSubmitAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	deps := orchestrators.SubmitAttendanceDeps{
		Resolver:        stores.Resolver,
		Holidays:        stores.HolidayStore,
		AttendanceStore: stores.AttendanceStore,
		GenerateID:      generateID,
		Now:             timeNow,
	}
	result, err := orchestrators.ExecuteSubmitAttendance(r.Context(), orchestrators.SubmitAttendanceInput{MemberID: id.MemberID}, deps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// handleAcceptAttendance handles PATCH /api/attendance/requests/{id}/accept
func handleAcceptAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	input := orchestrators.DecideAttendanceInput{RequestID: r.PathValue("id"), ActorID: id.MemberID}
	req, err := orchestrators.ExecuteAcceptAttendance(r.Context(), input, decideDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// handleRejectAttendance handles PATCH /api/attendance/requests/{id}/reject
func handleRejectAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	input := orchestrators.DecideAttendanceInput{RequestID: r.PathValue("id"), ActorID: id.MemberID}
	req, err := orchestrators.ExecuteRejectAttendance(r.Context(), input, decideDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// handleListPendingRequests handles GET /api/attendance/requests
func handleListPendingRequests(w http.ResponseWriter, r *http.Request) {
	deps := projections.ListPendingRequestsDeps{
		Resolver:        stores.Resolver,
		AttendanceStore: stores.AttendanceStore,
		Now:             timeNow,
	}
	pending, err := projections.QueryListPendingRequests(r.Context(), deps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

// handleGetAttendanceRate handles GET /api/attendance/rate
func handleGetAttendanceRate(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	deps := projections.GetAttendanceRateDeps{
		Resolver:    stores.Resolver,
		MemberStore: stores.MemberStore,
		StatsStore:  stores.StatsStore,
		Now:         timeNow,
	}
	result, err := projections.QueryGetAttendanceRate(r.Context(), projections.GetAttendanceRateQuery{MemberID: id.MemberID}, deps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetAttendanceCalendar handles GET /api/attendance
func handleGetAttendanceCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	deps := projections.GetAttendanceCalendarDeps{
		Resolver:        stores.Resolver,
		AttendanceStore: stores.AttendanceStore,
		Now:             timeNow,
	}
	result, err := projections.QueryGetAttendanceCalendar(r.Context(), projections.GetAttendanceCalendarQuery{MemberID: id.MemberID}, deps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetAttendanceDetail handles GET /api/attendance/members/{id}
// Members may read their own detail; staff may read anyone's.
func handleGetAttendanceDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	memberID := r.PathValue("id")
	if memberID != id.MemberID && !id.IsStaff() {
		writeError(w, apperror.New(apperror.ErrPermissionDenied, "cannot read another member's attendance"))
		return
	}

	deps := projections.GetAttendanceDetailDeps{
		Resolver:        stores.Resolver,
		MemberStore:     stores.MemberStore,
		StatsStore:      stores.StatsStore,
		AttendanceStore: stores.AttendanceStore,
		Now:             timeNow,
	}
	result, err := projections.QueryGetAttendanceDetail(r.Context(), projections.GetAttendanceDetailQuery{MemberID: memberID}, deps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetTodayLocation handles GET /api/attendance/location
func handleGetTodayLocation(w http.ResponseWriter, r *http.Request) {
	deps := projections.GetTodayLocationDeps{
		Resolver: stores.Resolver,
		Now:      timeNow,
	}
	result, err := projections.QueryGetTodayLocation(r.Context(), deps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleListActiveMembers handles GET /api/attendance/members
func handleListActiveMembers(w http.ResponseWriter, r *http.Request) {
	deps := projections.ListActiveMembersDeps{
		Resolver:    stores.Resolver,
		RosterStore: stores.MemberStore,
		StatsStore:  stores.StatsStore,
		Now:         timeNow,
	}
	members, err := projections.QueryListActiveMembers(r.Context(), deps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}
