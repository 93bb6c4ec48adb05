package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crux/internal/adapters/http/middleware"
	"crux/internal/adapters/http/perf"
	attendanceStore "crux/internal/adapters/storage/attendance"
	cohortStore "crux/internal/adapters/storage/cohort"
	holidayStore "crux/internal/adapters/storage/holiday"
	memberStore "crux/internal/adapters/storage/member"
	rankingStore "crux/internal/adapters/storage/ranking"
	recordStore "crux/internal/adapters/storage/record"
	scheduleStore "crux/internal/adapters/storage/schedule"
	"crux/internal/adapters/storage/storagetest"
	"crux/internal/application/orchestrators"
	"crux/internal/domain/apperror"
	"crux/internal/domain/record"
	"crux/internal/domain/schedule"
)

var kst = time.FixedZone("KST", 9*60*60)

var testSecret = []byte("web-test-secret")

// testServer is the full HTTP stack over a migrated SQLite database.
// c-5 runs 2026-03-02..2026-06-28 with Monday 19:00 sessions at yeonnam
// and Wednesday 19:00 sessions at sinchon.
type testServer struct {
	handler   http.Handler
	collector *perf.Collector
	now       time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := storagetest.OpenDB(t)
	storagetest.SeedCohort(t, db, "c-4", 4, "2025-11-03", "2026-03-01")
	storagetest.SeedCohort(t, db, "c-5", 5, "2026-03-02", "2026-06-28")
	storagetest.SeedMember(t, db, "m-1", "member", "yeonnam", "c-5")
	storagetest.SeedMember(t, db, "m-2", "member", "sinchon", "c-5")
	storagetest.SeedMember(t, db, "mgr-1", "manager", "yeonnam", "c-5")
	storagetest.SeedMember(t, db, "adm-1", "admin", "yeonnam", "c-5")

	schedules := scheduleStore.NewSQLStore(db)
	for _, e := range []schedule.Entry{
		{ID: "s-mon", CohortID: "c-5", Day: schedule.Monday, Location: "yeonnam", StartTime: "19:00"},
		{ID: "s-wed", CohortID: "c-5", Day: schedule.Wednesday, Location: "sinchon", StartTime: "19:00"},
	} {
		if err := schedules.Save(context.Background(), e); err != nil {
			t.Fatalf("seed schedule: %v", err)
		}
	}
	cohorts := cohortStore.NewSQLStore(db)

	ts := &testServer{
		collector: perf.NewCollector(100),
		now:       time.Date(2026, 3, 16, 19, 10, 0, 0, kst),
	}
	prevNow := timeNow
	timeNow = func() time.Time { return ts.now }
	t.Cleanup(func() { timeNow = prevNow })

	s := &Stores{
		DB:              db,
		Resolver:        orchestrators.NewScheduleResolver(cohorts, schedules, kst),
		CohortStore:     cohorts,
		ScheduleStore:   schedules,
		HolidayStore:    holidayStore.NewSQLStore(db),
		MemberStore:     memberStore.NewSQLStore(db),
		AttendanceStore: attendanceStore.NewSQLStore(db),
		StatsStore:      attendanceStore.NewSQLStatsStore(db),
		RecordStore:     recordStore.NewSQLStore(db),
		RankingStore:    rankingStore.NewSQLStore(db),
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ts.handler = NewMux(ctx, s, Config{JWTSecret: testSecret, RequestTimeout: 5 * time.Second}, ts.collector)
	return ts
}

// do sends a request as memberID ("" for anonymous) and returns the recorder.
func (ts *testServer) do(t *testing.T, memberID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = bytes.NewBufferString(raw)
		} else {
			buf, err := json.Marshal(body)
			if err != nil {
				t.Fatal(err)
			}
			reader = bytes.NewReader(buf)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if memberID != "" {
		token, err := middleware.IssueToken(testSecret, memberID, time.Now(), time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v (body %q)", v, err, rr.Body.String())
	}
	return v
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, status, rr.Body.String())
	}
	body := decode[middleware.ErrorBody](t, rr)
	if body.Code != code {
		t.Errorf("code = %q, want %q", body.Code, code)
	}
}

func TestHealth_NoAuthRequired(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(t, "", "GET", "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if ts.collector.TotalRecorded() != 0 {
		t.Errorf("health check was timed")
	}
}

func TestAPI_RequiresBearerToken(t *testing.T) {
	ts := newTestServer(t)
	expectError(t, ts.do(t, "", "GET", "/api/attendance/rate", nil), http.StatusUnauthorized, apperror.CodeAuthenticationFailed)
	expectError(t, ts.do(t, "m-404", "GET", "/api/attendance/rate", nil), http.StatusUnauthorized, apperror.CodeAuthenticationFailed)
}

func TestAttendanceFlow(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, "m-1", "POST", "/api/attendance", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", rr.Code, rr.Body.String())
	}
	submitted := decode[orchestrators.SubmitAttendanceResult](t, rr)
	if submitted.RequestID == "" || submitted.Week != 3 || submitted.Location != "yeonnam" {
		t.Errorf("submit result = %+v", submitted)
	}

	expectError(t, ts.do(t, "m-1", "POST", "/api/attendance", nil), http.StatusConflict, apperror.CodeDuplicateAttendance)

	acceptPath := "/api/attendance/requests/" + submitted.RequestID + "/accept"
	expectError(t, ts.do(t, "m-1", "PATCH", acceptPath, nil), http.StatusForbidden, apperror.CodePermissionDenied)
	expectError(t, ts.do(t, "m-1", "GET", "/api/attendance/requests", nil), http.StatusForbidden, apperror.CodePermissionDenied)

	rr = ts.do(t, "mgr-1", "GET", "/api/attendance/requests", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("pending status = %d", rr.Code)
	}
	pending := decode[[]attendanceStore.PendingRequest](t, rr)
	if len(pending) != 1 || pending[0].ID != submitted.RequestID || pending[0].MemberName == "" {
		t.Fatalf("pending = %+v", pending)
	}

	rr = ts.do(t, "mgr-1", "PATCH", acceptPath, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("accept status = %d, body %s", rr.Code, rr.Body.String())
	}
	var accepted struct {
		Status      string `json:"status"`
		Outcome     string `json:"outcome"`
		ProcessedBy string `json:"processed_by"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&accepted); err != nil {
		t.Fatal(err)
	}
	if accepted.Status != "approved" || accepted.Outcome != "on_time" || accepted.ProcessedBy != "mgr-1" {
		t.Errorf("accepted = %+v", accepted)
	}

	expectError(t, ts.do(t, "mgr-1", "PATCH", acceptPath, nil), http.StatusBadRequest, apperror.CodeInvalidFieldState)
	expectError(t, ts.do(t, "mgr-1", "PATCH", "/api/attendance/requests/nope/reject", nil), http.StatusNotFound, apperror.CodeNotExist)

	rr = ts.do(t, "m-1", "GET", "/api/attendance/rate", nil)
	var rate struct {
		Rate  float64 `json:"rate"`
		Stats struct {
			OnTime int `json:"on_time"`
		} `json:"stats"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&rate); err != nil {
		t.Fatal(err)
	}
	if rate.Rate != 100 || rate.Stats.OnTime != 1 {
		t.Errorf("rate = %+v, want 100 with one on-time", rate)
	}

	rr = ts.do(t, "m-1", "GET", "/api/attendance", nil)
	var calendar struct {
		OnTime []string `json:"on_time"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&calendar); err != nil {
		t.Fatal(err)
	}
	if len(calendar.OnTime) != 1 || calendar.OnTime[0] != "2026-03-16" {
		t.Errorf("calendar = %+v", calendar)
	}
}

func TestAttendanceDetail_OwnerOrStaff(t *testing.T) {
	ts := newTestServer(t)

	if rr := ts.do(t, "m-1", "GET", "/api/attendance/members/m-1", nil); rr.Code != http.StatusOK {
		t.Errorf("own detail status = %d", rr.Code)
	}
	if rr := ts.do(t, "mgr-1", "GET", "/api/attendance/members/m-1", nil); rr.Code != http.StatusOK {
		t.Errorf("manager detail status = %d", rr.Code)
	}
	expectError(t, ts.do(t, "m-2", "GET", "/api/attendance/members/m-1", nil), http.StatusForbidden, apperror.CodePermissionDenied)
}

func TestTodayLocation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, "m-2", "GET", "/api/attendance/location", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var loc struct {
		Location  string `json:"location"`
		StartTime string `json:"start_time"`
	}
	json.NewDecoder(rr.Body).Decode(&loc)
	if loc.Location != "yeonnam" || loc.StartTime != "19:00" {
		t.Errorf("location = %+v", loc)
	}

	ts.now = time.Date(2026, 3, 17, 19, 0, 0, 0, kst) // Tuesday, no session
	expectError(t, ts.do(t, "m-2", "GET", "/api/attendance/location", nil), http.StatusNotFound, apperror.CodeMissingWeeklyStaffInfo)
	expectError(t, ts.do(t, "m-2", "POST", "/api/attendance", nil), http.StatusBadRequest, apperror.CodeAttendancePeriodInvalid)
}

type rankingsBody struct {
	CohortID string `json:"cohort_id"`
	Weeks    []struct {
		Week    int `json:"week"`
		Entries []struct {
			MemberID string  `json:"member_id"`
			Score    float64 `json:"score"`
		} `json:"entries"`
	} `json:"weeks"`
}

func (b rankingsBody) score(week int, memberID string) float64 {
	for _, w := range b.Weeks {
		if w.Week != week {
			continue
		}
		for _, e := range w.Entries {
			if e.MemberID == memberID {
				return e.Score
			}
		}
	}
	return 0
}

func TestRecordsAndRankings(t *testing.T) {
	ts := newTestServer(t)
	rankings := func() rankingsBody {
		t.Helper()
		rr := ts.do(t, "m-2", "GET", "/api/rankings", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("rankings status = %d", rr.Code)
		}
		return decode[rankingsBody](t, rr)
	}

	rr := ts.do(t, "m-1", "POST", "/api/records", map[string]any{
		"location":   "yeonnam",
		"start_time": "2026-03-16T17:00:00+09:00",
		"end_time":   "2026-03-16T19:00:00+09:00",
		"problems": []map[string]int{
			{"difficulty": 5, "solved": 3},
			{"difficulty": 7, "solved": 2},
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("log status = %d, body %s", rr.Code, rr.Body.String())
	}
	var logged struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
		Problems []struct {
			ID         string `json:"id"`
			Difficulty int    `json:"difficulty"`
		} `json:"problems"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&logged); err != nil {
		t.Fatal(err)
	}
	if len(logged.Problems) != 2 {
		t.Fatalf("problems = %+v", logged.Problems)
	}

	// level 5: 3 at level + 2 above level doubled
	if got := rankings().score(3, "m-1"); got != 7 {
		t.Errorf("score after log = %v, want 7", got)
	}

	atLevel := logged.Problems[0].ID
	if logged.Problems[0].Difficulty != 5 {
		atLevel = logged.Problems[1].ID
	}
	expectError(t, ts.do(t, "m-2", "PUT", "/api/records/problems/"+atLevel, map[string]int{"difficulty": 3, "solved": 3}),
		http.StatusForbidden, apperror.CodePermissionDenied)
	if rr := ts.do(t, "m-1", "PUT", "/api/records/problems/"+atLevel, map[string]int{"difficulty": 3, "solved": 3}); rr.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rr.Code, rr.Body.String())
	}
	if got := rankings().score(3, "m-1"); got != 5.5 {
		t.Errorf("score after update = %v, want 5.5", got)
	}

	rr = ts.do(t, "m-1", "GET", "/api/records?per_page=10", nil)
	var history struct {
		Sessions []struct {
			Solved int `json:"solved"`
		} `json:"sessions"`
		Page struct {
			PerPage int `json:"per_page"`
			Total   int `json:"total"`
		} `json:"page"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&history); err != nil {
		t.Fatal(err)
	}
	if len(history.Sessions) != 1 || history.Sessions[0].Solved != 5 {
		t.Errorf("sessions = %+v", history.Sessions)
	}
	if history.Page.PerPage != 10 || history.Page.Total != 1 {
		t.Errorf("page = %+v", history.Page)
	}

	if rr := ts.do(t, "m-1", "DELETE", "/api/records/"+logged.Session.ID, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body %s", rr.Code, rr.Body.String())
	}
	if got := rankings().score(3, "m-1"); got != 0 {
		t.Errorf("score after delete = %v, want 0", got)
	}
}

func TestRecords_RejectsInvalidBodies(t *testing.T) {
	ts := newTestServer(t)
	valid := func(overrides map[string]any) map[string]any {
		body := map[string]any{
			"location":   "yeonnam",
			"start_time": "2026-03-16T17:00:00+09:00",
			"end_time":   "2026-03-16T19:00:00+09:00",
		}
		for k, v := range overrides {
			if v == nil {
				delete(body, k)
				continue
			}
			body[k] = v
		}
		return body
	}
	tests := []struct {
		name string
		body any
	}{
		{"difficulty out of range", valid(map[string]any{"problems": []map[string]int{{"difficulty": 11, "solved": 1}}})},
		{"missing location", valid(map[string]any{"location": nil})},
		{"unknown location", valid(map[string]any{"location": "hapjeong"})},
		{"missing start time", valid(map[string]any{"start_time": nil})},
		{"missing end time", valid(map[string]any{"end_time": nil})},
		{"ends before it starts", valid(map[string]any{"end_time": "2026-03-16T16:00:00+09:00"})},
		{"spans two days", valid(map[string]any{"end_time": "2026-03-17T01:00:00+09:00"})},
		{"still running", valid(map[string]any{"end_time": "2026-03-16T21:00:00+09:00"})},
		{"unknown field", valid(map[string]any{"score": 100})},
		{"not json", "{location"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, ts.do(t, "m-1", "POST", "/api/records", tt.body), http.StatusBadRequest, apperror.CodeInvalidField)
		})
	}
}

// TestSessionRequest_LocationTag keeps the request tag in step with the
// branches the domain accepts.
func TestSessionRequest_LocationTag(t *testing.T) {
	for _, loc := range record.Locations {
		body := sessionRequest{Location: loc, StartTime: time.Now(), EndTime: time.Now()}
		if err := validate.Struct(body); err != nil {
			t.Errorf("location %q rejected by the request tag: %v", loc, err)
		}
	}
	if err := validate.Struct(sessionRequest{Location: "hapjeong", StartTime: time.Now(), EndTime: time.Now()}); err == nil {
		t.Error("hapjeong passed the request tag")
	}
}

func TestRecords_UpdateDatesAndCohortRankings(t *testing.T) {
	ts := newTestServer(t)

	// Before anything is logged the running cohort shows an empty board.
	rr := ts.do(t, "m-2", "GET", "/api/rankings/cohorts", nil)
	empty := decode[struct {
		Cohorts []struct {
			CohortID string            `json:"cohort_id"`
			Entries  []json.RawMessage `json:"entries"`
		} `json:"cohorts"`
	}](t, rr)
	if len(empty.Cohorts) != 1 || empty.Cohorts[0].CohortID != "c-5" || len(empty.Cohorts[0].Entries) != 0 {
		t.Fatalf("empty boards = %+v", empty.Cohorts)
	}

	rr = ts.do(t, "m-1", "POST", "/api/records", map[string]any{
		"location":   "yeonnam",
		"start_time": "2026-03-09T17:00:00+09:00",
		"end_time":   "2026-03-09T19:00:00+09:00",
		"problems":   []map[string]int{{"difficulty": 5, "solved": 3}},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("log status = %d, body %s", rr.Code, rr.Body.String())
	}
	var logged struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&logged); err != nil {
		t.Fatal(err)
	}

	moved := map[string]any{
		"location":   "sinchon",
		"start_time": "2026-03-16T17:00:00+09:00",
		"end_time":   "2026-03-16T19:00:00+09:00",
		"problems":   []map[string]int{{"difficulty": 5, "solved": 3}, {"difficulty": 7, "solved": 2}},
	}
	expectError(t, ts.do(t, "m-2", "PUT", "/api/records/"+logged.Session.ID, moved), http.StatusForbidden, apperror.CodePermissionDenied)
	if rr := ts.do(t, "m-1", "PUT", "/api/records/"+logged.Session.ID, moved); rr.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = ts.do(t, "m-2", "GET", "/api/rankings", nil)
	weekly := decode[rankingsBody](t, rr)
	if got := weekly.score(2, "m-1"); got != 0 {
		t.Errorf("week 2 score after move = %v, want 0", got)
	}
	if got := weekly.score(3, "m-1"); got != 7 {
		t.Errorf("week 3 score after move = %v, want 7", got)
	}

	rr = ts.do(t, "m-1", "GET", "/api/records/dates", nil)
	dates := decode[struct {
		Dates []string `json:"dates"`
	}](t, rr)
	if len(dates.Dates) != 1 || dates.Dates[0] != "2026-03-16" {
		t.Errorf("dates = %v, want [2026-03-16]", dates.Dates)
	}

	rr = ts.do(t, "m-2", "GET", "/api/rankings/cohorts", nil)
	boards := decode[struct {
		Cohorts []struct {
			CohortNumber int `json:"cohort_number"`
			Entries      []struct {
				MemberID string  `json:"member_id"`
				Score    float64 `json:"score"`
			} `json:"entries"`
		} `json:"cohorts"`
	}](t, rr)
	if len(boards.Cohorts) != 1 || boards.Cohorts[0].CohortNumber != 5 || len(boards.Cohorts[0].Entries) != 1 {
		t.Fatalf("boards = %+v", boards.Cohorts)
	}
	if e := boards.Cohorts[0].Entries[0]; e.MemberID != "m-1" || e.Score != 7 {
		t.Errorf("total = %+v, want m-1 with 7", e)
	}
}

func TestActiveMembers(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(t, "m-1", "GET", "/api/attendance/members", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	members := decode[[]struct {
		MemberID       string  `json:"member_id"`
		AttendanceRate float64 `json:"attendance_rate"`
	}](t, rr)
	if len(members) != 4 {
		t.Fatalf("members = %+v, want the four seeded members", members)
	}
	for _, m := range members {
		if m.AttendanceRate != 0 {
			t.Errorf("rate before any attendance = %+v", m)
		}
	}
}

func TestAdminJobs(t *testing.T) {
	ts := newTestServer(t)
	if rr := ts.do(t, "m-1", "POST", "/api/attendance", nil); rr.Code != http.StatusCreated {
		t.Fatalf("submit status = %d", rr.Code)
	}

	expectError(t, ts.do(t, "mgr-1", "POST", "/api/admin/jobs/reject_stale_pending", nil), http.StatusForbidden, apperror.CodePermissionDenied)
	expectError(t, ts.do(t, "adm-1", "POST", "/api/admin/jobs/reindex", nil), http.StatusNotFound, apperror.CodeNotExist)

	ts.now = time.Date(2026, 3, 16, 23, 57, 0, 0, kst)
	rr := ts.do(t, "adm-1", "POST", "/api/admin/jobs/reject_stale_pending", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("job status = %d, body %s", rr.Code, rr.Body.String())
	}
	report := decode[orchestrators.JobReport](t, rr)
	if report.Job != orchestrators.JobRejectStalePending || report.Created != 1 {
		t.Errorf("report = %+v", report)
	}

	rr = ts.do(t, "adm-1", "GET", "/api/admin/perf?window=1h", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("perf status = %d", rr.Code)
	}
	snap := decode[perf.Snapshot](t, rr)
	if len(snap.Jobs) != 1 || snap.Jobs[0].Path != orchestrators.JobRejectStalePending {
		t.Errorf("jobs = %+v", snap.Jobs)
	}
	if len(snap.SlowestPaths) == 0 {
		t.Error("requests were not timed")
	}

	expectError(t, ts.do(t, "adm-1", "GET", "/api/admin/perf?window=soon", nil), http.StatusBadRequest, apperror.CodeInvalidField)
	expectError(t, ts.do(t, "adm-1", "GET", "/api/admin/perf?top=0", nil), http.StatusBadRequest, apperror.CodeInvalidField)
}

func TestAdminBlackouts_BlockSubmission(t *testing.T) {
	ts := newTestServer(t)

	expectError(t, ts.do(t, "m-1", "POST", "/api/admin/blackouts", map[string]string{"date": "2026-03-16"}),
		http.StatusForbidden, apperror.CodePermissionDenied)
	expectError(t, ts.do(t, "adm-1", "POST", "/api/admin/blackouts", map[string]string{"date": "16/03/2026"}),
		http.StatusBadRequest, apperror.CodeInvalidField)

	rr := ts.do(t, "adm-1", "POST", "/api/admin/blackouts", map[string]string{"date": "2026-03-16", "reason": "gym maintenance"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	json.NewDecoder(rr.Body).Decode(&created)

	expectError(t, ts.do(t, "adm-1", "POST", "/api/admin/blackouts", map[string]string{"date": "2026-03-16"}),
		http.StatusBadRequest, apperror.CodeInvalidField)
	expectError(t, ts.do(t, "m-1", "POST", "/api/attendance", nil), http.StatusBadRequest, apperror.CodeAttendancePeriodInvalid)

	if rr := ts.do(t, "adm-1", "DELETE", "/api/admin/blackouts/"+created.ID, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	if rr := ts.do(t, "m-1", "POST", "/api/attendance", nil); rr.Code != http.StatusCreated {
		t.Errorf("submit after lifting blackout = %d, body %s", rr.Code, rr.Body.String())
	}
}

func TestAdminCalendarAndRoster(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, "adm-1", "POST", "/api/admin/cohorts", map[string]any{
		"number": 6, "name": "6기", "start_date": "2026-06-29", "end_date": "2026-10-25",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("cohort status = %d, body %s", rr.Code, rr.Body.String())
	}
	var c6 struct {
		ID string `json:"id"`
	}
	json.NewDecoder(rr.Body).Decode(&c6)

	expectError(t, ts.do(t, "adm-1", "POST", "/api/admin/cohorts", map[string]any{
		"number": 6, "name": "again", "start_date": "2026-06-29", "end_date": "2026-10-25",
	}), http.StatusBadRequest, apperror.CodeInvalidField)
	expectError(t, ts.do(t, "adm-1", "POST", "/api/admin/cohorts", map[string]any{
		"number": 7, "name": "backwards", "start_date": "2026-12-01", "end_date": "2026-11-01",
	}), http.StatusBadRequest, apperror.CodeInvalidField)

	rr = ts.do(t, "adm-1", "POST", "/api/admin/cohorts/"+c6.ID+"/schedule", map[string]string{
		"day": "thursday", "location": "hapjeong", "start_time": "20:00",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("schedule status = %d, body %s", rr.Code, rr.Body.String())
	}
	expectError(t, ts.do(t, "adm-1", "POST", "/api/admin/cohorts/"+c6.ID+"/schedule", map[string]string{
		"day": "someday", "location": "hapjeong", "start_time": "20:00",
	}), http.StatusBadRequest, apperror.CodeInvalidField)
	expectError(t, ts.do(t, "adm-1", "POST", "/api/admin/cohorts/c-404/schedule", map[string]string{
		"day": "monday", "location": "hapjeong", "start_time": "20:00",
	}), http.StatusNotFound, apperror.CodeNotExist)

	rr = ts.do(t, "adm-1", "GET", "/api/admin/cohorts/"+c6.ID+"/schedule", nil)
	var entries []schedule.Entry
	json.NewDecoder(rr.Body).Decode(&entries)
	if len(entries) != 1 || entries[0].Location != "hapjeong" {
		t.Errorf("entries = %+v", entries)
	}

	rr = ts.do(t, "adm-1", "POST", "/api/admin/members", map[string]any{
		"name": "New Climber", "email": "New@Example.com", "role": "member",
		"home_location": "hapjeong", "cohort_id": c6.ID, "level": 3,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("member status = %d, body %s", rr.Code, rr.Body.String())
	}
	var m struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		CohortNumber int    `json:"cohort_number"`
	}
	json.NewDecoder(rr.Body).Decode(&m)
	if m.Email != "new@example.com" || m.CohortNumber != 6 {
		t.Errorf("member = %+v", m)
	}

	rr = ts.do(t, "adm-1", "PATCH", "/api/admin/members/"+m.ID, map[string]any{"level": 4, "active": false})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rr.Code, rr.Body.String())
	}
	expectError(t, ts.do(t, m.ID, "GET", "/api/attendance/rate", nil), http.StatusUnauthorized, apperror.CodeAuthenticationFailed)
	expectError(t, ts.do(t, "adm-1", "PATCH", "/api/admin/members/"+m.ID, map[string]any{"level": 11}),
		http.StatusBadRequest, apperror.CodeInvalidField)
}

func TestWriteError_HidesInternalErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, io.ErrUnexpectedEOF)
	expectError(t, rr, http.StatusInternalServerError, middleware.InternalErrorBody.Code)

	rr = httptest.NewRecorder()
	writeError(rr, apperror.Wrap(apperror.ErrResourceLocked, io.ErrUnexpectedEOF))
	expectError(t, rr, http.StatusLocked, apperror.CodeResourceLocked)
}
