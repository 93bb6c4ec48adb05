package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"crux/internal/adapters/storage"
	domain "crux/internal/domain/attendance"
)

const requestColumns = "id, member_id, cohort_id, week, location, request_time, request_date, status, processed_at, processed_by, outcome, alternate"

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db storage.DB
}

// NewSQLStore creates a new attendance request store.
func NewSQLStore(db storage.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Create inserts a new request.
// PRE: value has been validated
// POST: Row inserted, or storage.ErrConflict when the member already has a
// pending or approved request for the week
func (s *SQLStore) Create(ctx context.Context, value domain.Request) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO attendance_request ("+requestColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		value.ID, value.MemberID, value.CohortID, value.Week, value.Location,
		storage.FormatTime(value.RequestTime), storage.FormatDate(value.RequestDate), value.Status,
		storage.NullTime(value.ProcessedAt), storage.NullString(value.ProcessedBy), storage.NullString(value.Outcome),
		storage.BoolInt(value.Alternate),
	)
	return err
}

// GetByID retrieves a request by its ID.
// PRE: id is non-empty
// POST: Returns the entity or storage.ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Request, error) {
	row, err := storage.Get[requestRow](ctx, s.db, "SELECT "+requestColumns+" FROM attendance_request WHERE id = ?", id)
	if err != nil {
		return domain.Request{}, fmt.Errorf("attendance request: %w", err)
	}
	return row.toDomain(), nil
}

// LockForDecision takes the non-blocking row lock guarding accept and reject.
// PRE: ctx carries a transaction
// POST: Lock held until the transaction ends, or storage.ErrRowLocked /
// storage.ErrNotFound returned
func (s *SQLStore) LockForDecision(ctx context.Context, id string) error {
	return s.db.LockRow(ctx, storage.LockNoWait, "attendance_request", "id = ?", id)
}

// SaveDecision persists the processing fields of a request.
// PRE: value was loaded from this store and transitioned out of pending
// POST: status, processed_at, processed_by, outcome and alternate updated
func (s *SQLStore) SaveDecision(ctx context.Context, value domain.Request) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE attendance_request SET status = ?, processed_at = ?, processed_by = ?, outcome = ?, alternate = ? WHERE id = ?",
		value.Status, storage.NullTime(value.ProcessedAt), storage.NullString(value.ProcessedBy),
		storage.NullString(value.Outcome), storage.BoolInt(value.Alternate), value.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("attendance request %s: %w", value.ID, storage.ErrNotFound)
	}
	return nil
}

// HasLiveRequest reports whether a pending or approved request exists for the week.
func (s *SQLStore) HasLiveRequest(ctx context.Context, memberID, cohortID string, week int) (bool, error) {
	return s.exists(ctx,
		"SELECT COUNT(*) FROM attendance_request WHERE member_id = ? AND cohort_id = ? AND week = ? AND status IN ('pending', 'approved')",
		memberID, cohortID, week)
}

// HasApproved reports whether an approved request exists for the week.
func (s *SQLStore) HasApproved(ctx context.Context, memberID, cohortID string, week int) (bool, error) {
	return s.exists(ctx,
		"SELECT COUNT(*) FROM attendance_request WHERE member_id = ? AND cohort_id = ? AND week = ? AND status = 'approved'",
		memberID, cohortID, week)
}

// RejectPendingOn rejects every pending request of the cohort made on day.
// PRE: day carries the club's location
// POST: Returns the number of rows transitioned; processed_by stays NULL
func (s *SQLStore) RejectPendingOn(ctx context.Context, cohortID string, day, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE attendance_request SET status = 'rejected', processed_at = ? WHERE cohort_id = ? AND request_date = ? AND status = 'pending'",
		storage.FormatTime(now), cohortID, storage.FormatDate(day),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByMemberCohort returns a member's requests in a cohort ordered by week.
func (s *SQLStore) ListByMemberCohort(ctx context.Context, memberID, cohortID string) ([]domain.Request, error) {
	var rows []requestRow
	err := storage.Select(ctx, s.db, &rows,
		"SELECT "+requestColumns+" FROM attendance_request WHERE member_id = ? AND cohort_id = ? ORDER BY week, request_time",
		memberID, cohortID)
	if err != nil {
		return nil, err
	}
	results := make([]domain.Request, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.toDomain())
	}
	return results, nil
}

// ListPending returns the cohort's pending requests, oldest first.
func (s *SQLStore) ListPending(ctx context.Context, cohortID string) ([]PendingRequest, error) {
	var rows []struct {
		requestRow
		MemberName string `db:"member_name"`
	}
	err := storage.Select(ctx, s.db, &rows,
		`SELECT r.id, r.member_id, r.cohort_id, r.week, r.location, r.request_time, r.request_date, r.status,
			r.processed_at, r.processed_by, r.outcome, r.alternate, m.name AS member_name
		FROM attendance_request r JOIN member m ON m.id = r.member_id
		WHERE r.cohort_id = ? AND r.status = 'pending'
		ORDER BY r.request_time`,
		cohortID)
	if err != nil {
		return nil, err
	}
	results := make([]PendingRequest, 0, len(rows))
	for _, row := range rows {
		results = append(results, PendingRequest{Request: row.toDomain(), MemberName: row.MemberName})
	}
	return results, nil
}

// CountAlternates returns how many approved alternate-location requests a member has in the cohort.
func (s *SQLStore) CountAlternates(ctx context.Context, memberID, cohortID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM attendance_request WHERE member_id = ? AND cohort_id = ? AND status = 'approved' AND alternate = 1",
		memberID, cohortID).Scan(&n)
	return n, storage.TranslateError(err)
}

func (s *SQLStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, storage.TranslateError(err)
	}
	return n > 0, nil
}

// requestRow mirrors one attendance_request row.
type requestRow struct {
	ID          string          `db:"id"`
	MemberID    string          `db:"member_id"`
	CohortID    string          `db:"cohort_id"`
	Week        int             `db:"week"`
	Location    string          `db:"location"`
	RequestTime storage.Instant `db:"request_time"`
	RequestDate storage.Date    `db:"request_date"`
	Status      string          `db:"status"`
	ProcessedAt storage.Instant `db:"processed_at"`
	ProcessedBy sql.NullString  `db:"processed_by"`
	Outcome     sql.NullString  `db:"outcome"`
	Alternate   bool            `db:"alternate"`
}

func (r requestRow) toDomain() domain.Request {
	return domain.Request{
		ID:          r.ID,
		MemberID:    r.MemberID,
		CohortID:    r.CohortID,
		Week:        r.Week,
		Location:    r.Location,
		RequestTime: r.RequestTime.Time(),
		RequestDate: r.RequestDate.Time(),
		Status:      r.Status,
		ProcessedAt: r.ProcessedAt.Time(),
		ProcessedBy: r.ProcessedBy.String,
		Outcome:     r.Outcome.String,
		Alternate:   r.Alternate,
	}
}
