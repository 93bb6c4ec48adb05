package record

import (
	"context"
	"database/sql"
	"fmt"

	"crux/internal/adapters/storage"
	domain "crux/internal/domain/record"
)

const sessionColumns = "id, member_id, cohort_id, location, start_time, end_time"

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db storage.DB
}

// NewSQLStore creates a new record store.
func NewSQLStore(db storage.DB) *SQLStore {
	return &SQLStore{db: db}
}

// CreateSession inserts a session.
// PRE: value has been validated
func (s *SQLStore) CreateSession(ctx context.Context, value domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO climb_session ("+sessionColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		value.ID, value.MemberID, storage.NullString(value.CohortID), value.Location,
		storage.FormatTime(value.StartTime), storage.NullTime(value.EndTime),
	)
	return err
}

// GetSession retrieves a session by its ID.
// POST: Returns the session or storage.ErrNotFound
func (s *SQLStore) GetSession(ctx context.Context, id string) (domain.Session, error) {
	row, err := storage.Get[sessionRow](ctx, s.db, "SELECT "+sessionColumns+" FROM climb_session WHERE id = ?", id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("session: %w", err)
	}
	return row.toDomain(), nil
}

// LockSession locks a session row, waiting for any other writer, so the
// session can be read and rewritten in one transaction.
// PRE: ctx carries a transaction
func (s *SQLStore) LockSession(ctx context.Context, id string) error {
	return s.db.LockRow(ctx, storage.LockWait, "climb_session", "id = ?", id)
}

// UpdateSession rewrites a session's cohort, location and times.
// POST: storage.ErrNotFound when no session has value.ID
func (s *SQLStore) UpdateSession(ctx context.Context, value domain.Session) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE climb_session SET cohort_id = ?, location = ?, start_time = ?, end_time = ? WHERE id = ?",
		storage.NullString(value.CohortID), value.Location,
		storage.FormatTime(value.StartTime), storage.NullTime(value.EndTime), value.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %s: %w", value.ID, storage.ErrNotFound)
	}
	return nil
}

// DeleteSession removes a session. Its problems go with it.
// PRE: the caller has already reversed the problems' score contributions
func (s *SQLStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM problem WHERE session_id = ?", id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM climb_session WHERE id = ?", id)
	return err
}

// ListSessionsByMember returns a member's sessions, newest first.
func (s *SQLStore) ListSessionsByMember(ctx context.Context, memberID string) ([]domain.Session, error) {
	var rows []sessionRow
	err := storage.Select(ctx, s.db, &rows,
		"SELECT "+sessionColumns+" FROM climb_session WHERE member_id = ? ORDER BY start_time DESC", memberID)
	if err != nil {
		return nil, err
	}
	results := make([]domain.Session, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.toDomain())
	}
	return results, nil
}

// CreateProblem inserts a problem count.
// PRE: value has been validated
func (s *SQLStore) CreateProblem(ctx context.Context, value domain.Problem) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO problem (id, session_id, difficulty, solved) VALUES (?, ?, ?, ?)",
		value.ID, value.SessionID, value.Difficulty, value.Solved,
	)
	return err
}

// GetProblem retrieves the persisted state of a problem.
// POST: Returns the problem or storage.ErrNotFound
func (s *SQLStore) GetProblem(ctx context.Context, id string) (domain.Problem, error) {
	row, err := storage.Get[problemRow](ctx, s.db, "SELECT id, session_id, difficulty, solved FROM problem WHERE id = ?", id)
	if err != nil {
		return domain.Problem{}, fmt.Errorf("problem: %w", err)
	}
	return domain.Problem(row), nil
}

// LockProblem locks a problem row, waiting for any other writer, so its
// prior state can be read and replaced in one transaction.
// PRE: ctx carries a transaction
func (s *SQLStore) LockProblem(ctx context.Context, id string) error {
	return s.db.LockRow(ctx, storage.LockWait, "problem", "id = ?", id)
}

// UpdateProblem persists new difficulty and solved values.
func (s *SQLStore) UpdateProblem(ctx context.Context, value domain.Problem) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE problem SET difficulty = ?, solved = ? WHERE id = ?",
		value.Difficulty, value.Solved, value.ID,
	)
	return err
}

// DeleteProblem removes a problem.
func (s *SQLStore) DeleteProblem(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM problem WHERE id = ?", id)
	return err
}

// ListProblems returns a session's problems by difficulty.
func (s *SQLStore) ListProblems(ctx context.Context, sessionID string) ([]domain.Problem, error) {
	var rows []problemRow
	err := storage.Select(ctx, s.db, &rows,
		"SELECT id, session_id, difficulty, solved FROM problem WHERE session_id = ? ORDER BY difficulty, id", sessionID)
	if err != nil {
		return nil, err
	}
	results := make([]domain.Problem, 0, len(rows))
	for _, row := range rows {
		results = append(results, domain.Problem(row))
	}
	return results, nil
}

type sessionRow struct {
	ID        string          `db:"id"`
	MemberID  string          `db:"member_id"`
	CohortID  sql.NullString  `db:"cohort_id"`
	Location  string          `db:"location"`
	StartTime storage.Instant `db:"start_time"`
	EndTime   storage.Instant `db:"end_time"`
}

func (r sessionRow) toDomain() domain.Session {
	return domain.Session{
		ID:        r.ID,
		MemberID:  r.MemberID,
		CohortID:  r.CohortID.String,
		Location:  r.Location,
		StartTime: r.StartTime.Time(),
		EndTime:   r.EndTime.Time(),
	}
}

type problemRow struct {
	ID         string `db:"id"`
	SessionID  string `db:"session_id"`
	Difficulty int    `db:"difficulty"`
	Solved     int    `db:"solved"`
}
