package web

import (
	"net/http"
	"time"

	"crux/internal/application/listutil"
	"crux/internal/application/orchestrators"
	"crux/internal/application/projections"
)

type problemRequest struct {
	Difficulty int `json:"difficulty" validate:"min=1,max=10"`
	Solved     int `json:"solved" validate:"min=0"`
}

// sessionRequest is the body of both logging and rewriting a session.
// The location list mirrors record.Locations.
type sessionRequest struct {
	Location  string           `json:"location" validate:"required,oneof=ilsan yeonnam yangjae sillim magok hongdae snu gangnam sadang sinsa nonhyeon mullae sinchon"`
	StartTime time.Time        `json:"start_time" validate:"required"`
	EndTime   time.Time        `json:"end_time" validate:"required"`
	Problems  []problemRequest `json:"problems" validate:"max=10,dive"`
}

func (b sessionRequest) problems() []orchestrators.ProblemInput {
	out := make([]orchestrators.ProblemInput, 0, len(b.Problems))
	for _, p := range b.Problems {
		out = append(out, orchestrators.ProblemInput{Difficulty: p.Difficulty, Solved: p.Solved})
	}
	return out
}

func activityDeps() orchestrators.LogActivityDeps {
	return orchestrators.LogActivityDeps{
		Tx:       stores.DB,
		Resolver: stores.Resolver,
		Records:  stores.RecordStore,
		Aggregator: &orchestrators.RankingAggregator{
			Scores:   stores.RankingStore,
			Members:  stores.MemberStore,
			Resolver: stores.Resolver,
		},
		GenerateID: generateID,
		Now:        timeNow,
	}
}

type sessionPage struct {
	Sessions []projections.SessionView `json:"sessions"`
	Page     listutil.PageInfo         `json:"page"`
}

// handleListSessions handles GET /api/records?page=&per_page=
func handleListSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	views, err := projections.QueryListSessions(r.Context(),
		projections.ListSessionsQuery{MemberID: id.MemberID},
		projections.ListSessionsDeps{RecordStore: stores.RecordStore})
	if err != nil {
		writeError(w, err)
		return
	}
	var out sessionPage
	out.Sessions, out.Page = listutil.Paginate(views, listutil.ParsePageParams(r.URL.Query()))
	writeJSON(w, http.StatusOK, out)
}

// handleLogSession handles POST /api/records
func handleLogSession(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var body sessionRequest
	if err := decodeAndValidate(r, &body); err != nil {
		writeError(w, err)
		return
	}

	input := orchestrators.LogSessionInput{
		MemberID:  id.MemberID,
		Location:  body.Location,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Problems:  body.problems(),
	}
	result, err := orchestrators.ExecuteLogSession(r.Context(), input, activityDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// handleUpdateSession handles PUT /api/records/{id}
func handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var body sessionRequest
	if err := decodeAndValidate(r, &body); err != nil {
		writeError(w, err)
		return
	}
	input := orchestrators.UpdateSessionInput{
		ActorID:   id.MemberID,
		SessionID: r.PathValue("id"),
		Location:  body.Location,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Problems:  body.problems(),
	}
	result, err := orchestrators.ExecuteUpdateSession(r.Context(), input, activityDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleListSessionDates handles GET /api/records/dates
func handleListSessionDates(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	result, err := projections.QueryListSessionDates(r.Context(),
		projections.ListSessionDatesQuery{MemberID: id.MemberID},
		projections.ListSessionDatesDeps{Resolver: stores.Resolver, RecordStore: stores.RecordStore})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDeleteSession handles DELETE /api/records/{id}
func handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	input := orchestrators.DeleteSessionInput{ActorID: id.MemberID, SessionID: r.PathValue("id")}
	if err := orchestrators.ExecuteDeleteSession(r.Context(), input, activityDeps()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddProblem handles POST /api/records/{id}/problems
func handleAddProblem(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var body problemRequest
	if err := decodeAndValidate(r, &body); err != nil {
		writeError(w, err)
		return
	}
	input := orchestrators.AddProblemInput{
		ActorID:    id.MemberID,
		SessionID:  r.PathValue("id"),
		Difficulty: body.Difficulty,
		Solved:     body.Solved,
	}
	problem, err := orchestrators.ExecuteAddProblem(r.Context(), input, activityDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, problem)
}

// handleUpdateProblem handles PUT /api/records/problems/{id}
func handleUpdateProblem(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var body problemRequest
	if err := decodeAndValidate(r, &body); err != nil {
		writeError(w, err)
		return
	}
	input := orchestrators.UpdateProblemInput{
		ActorID:    id.MemberID,
		ProblemID:  r.PathValue("id"),
		Difficulty: body.Difficulty,
		Solved:     body.Solved,
	}
	problem, err := orchestrators.ExecuteUpdateProblem(r.Context(), input, activityDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, problem)
}

// handleDeleteProblem handles DELETE /api/records/problems/{id}
func handleDeleteProblem(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	input := orchestrators.DeleteProblemInput{ActorID: id.MemberID, ProblemID: r.PathValue("id")}
	if err := orchestrators.ExecuteDeleteProblem(r.Context(), input, activityDeps()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetWeeklyRankings handles GET /api/rankings?cohort_id=
func handleGetWeeklyRankings(w http.ResponseWriter, r *http.Request) {
	deps := projections.GetWeeklyRankingsDeps{
		Resolver:     stores.Resolver,
		RankingStore: stores.RankingStore,
		Now:          timeNow,
	}
	query := projections.GetWeeklyRankingsQuery{CohortID: r.URL.Query().Get("cohort_id")}
	result, err := projections.QueryGetWeeklyRankings(r.Context(), query, deps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetCohortRankings handles GET /api/rankings/cohorts
func handleGetCohortRankings(w http.ResponseWriter, r *http.Request) {
	deps := projections.GetCohortRankingsDeps{
		Resolver:     stores.Resolver,
		RankingStore: stores.RankingStore,
		Now:          timeNow,
	}
	result, err := projections.QueryGetCohortRankings(r.Context(), deps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
