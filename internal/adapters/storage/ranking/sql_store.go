package ranking

import (
	"context"
	"fmt"

	"crux/internal/adapters/storage"
	domain "crux/internal/domain/ranking"
)

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db storage.DB
}

// NewSQLStore creates a new score entry store.
func NewSQLStore(db storage.DB) *SQLStore {
	return &SQLStore{db: db}
}

// ApplyDelta adds delta to the (member, cohort, week) entry, creating it if
// missing, and removes the entry once its score is no longer positive.
// The add is a single upsert so concurrent deltas never overwrite each other.
// POST: entry absent or entry.score > 0
func (s *SQLStore) ApplyDelta(ctx context.Context, memberID, cohortID string, week int, delta float64) error {
	return s.db.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO score_entry (member_id, cohort_id, week, score) VALUES (?, ?, ?, ?)
			ON CONFLICT (member_id, cohort_id, week) DO UPDATE SET score = score_entry.score + excluded.score`,
			memberID, cohortID, week, delta,
		); err != nil {
			return fmt.Errorf("apply score delta: %w", err)
		}
		if _, err := s.db.ExecContext(ctx,
			"DELETE FROM score_entry WHERE member_id = ? AND cohort_id = ? AND week = ? AND score <= 0",
			memberID, cohortID, week,
		); err != nil {
			return fmt.Errorf("prune score entry: %w", err)
		}
		return nil
	})
}

// Get retrieves a single entry.
// POST: Returns the entry or storage.ErrNotFound
func (s *SQLStore) Get(ctx context.Context, memberID, cohortID string, week int) (domain.Entry, error) {
	row, err := storage.Get[entryRow](ctx, s.db,
		"SELECT s.member_id, m.name AS member_name, s.cohort_id, s.week, s.score FROM score_entry s JOIN member m ON m.id = s.member_id WHERE s.member_id = ? AND s.cohort_id = ? AND s.week = ?",
		memberID, cohortID, week)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("score entry: %w", err)
	}
	return domain.Entry(row), nil
}

// ListByCohort returns every entry of the cohort with member names,
// ordered by week then score descending.
func (s *SQLStore) ListByCohort(ctx context.Context, cohortID string) ([]domain.Entry, error) {
	var rows []entryRow
	err := storage.Select(ctx, s.db, &rows,
		`SELECT s.member_id, m.name AS member_name, s.cohort_id, s.week, s.score
		FROM score_entry s JOIN member m ON m.id = s.member_id
		WHERE s.cohort_id = ?
		ORDER BY s.week, s.score DESC, m.name`,
		cohortID)
	if err != nil {
		return nil, err
	}
	results := make([]domain.Entry, 0, len(rows))
	for _, row := range rows {
		results = append(results, domain.Entry(row))
	}
	return results, nil
}

// ListTotals sums every member's weekly entries per cohort. Cohorts come in
// number order and members by total descending.
func (s *SQLStore) ListTotals(ctx context.Context) ([]domain.Total, error) {
	var rows []totalRow
	err := storage.Select(ctx, s.db, &rows,
		`SELECT s.cohort_id, c.number AS cohort_number, s.member_id, m.name AS member_name, SUM(s.score) AS score
		FROM score_entry s
		JOIN member m ON m.id = s.member_id
		JOIN cohort c ON c.id = s.cohort_id
		GROUP BY s.cohort_id, c.number, s.member_id, m.name
		ORDER BY c.number, SUM(s.score) DESC, m.name`)
	if err != nil {
		return nil, err
	}
	results := make([]domain.Total, 0, len(rows))
	for _, row := range rows {
		results = append(results, domain.Total(row))
	}
	return results, nil
}

type entryRow struct {
	MemberID   string  `db:"member_id"`
	MemberName string  `db:"member_name"`
	CohortID   string  `db:"cohort_id"`
	Week       int     `db:"week"`
	Score      float64 `db:"score"`
}

type totalRow struct {
	CohortID     string  `db:"cohort_id"`
	CohortNumber int     `db:"cohort_number"`
	MemberID     string  `db:"member_id"`
	MemberName   string  `db:"member_name"`
	Score        float64 `db:"score"`
}
