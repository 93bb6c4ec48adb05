package attendance

import (
	"context"
	"fmt"

	"crux/internal/adapters/storage"
	domain "crux/internal/domain/attendance"
)

// statsColumns whitelists the counter columns Increment may touch.
var statsColumns = map[string]string{
	domain.FieldOnTime: "on_time_count",
	domain.FieldLate:   "late_count",
	domain.FieldAbsent: "absent_count",
}

// SQLStatsStore implements StatsStore over database/sql.
type SQLStatsStore struct {
	db storage.DB
}

// NewSQLStatsStore creates a new attendance stats store.
func NewSQLStatsStore(db storage.DB) *SQLStatsStore {
	return &SQLStatsStore{db: db}
}

// Increment adds one to a counter, creating the stats row on first use.
// Neither the insert nor the row lock waits on another transaction, then the
// counter is bumped with a single column = column + 1 statement.
// PRE: field is one of the domain Field constants
// POST: counter incremented inside ctx's transaction (or a new one), or
// storage.ErrRowLocked when another transaction holds the row
func (s *SQLStatsStore) Increment(ctx context.Context, memberID, cohortID, field string) error {
	column, ok := statsColumns[field]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrInvalidField, field)
	}
	return s.db.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.db.ExecNoWait(ctx,
			"INSERT INTO attendance_stats (member_id, cohort_id) VALUES (?, ?) ON CONFLICT (member_id, cohort_id) DO NOTHING",
			memberID, cohortID,
		); err != nil {
			return err
		}
		if err := s.db.LockRow(ctx, storage.LockNoWait, "attendance_stats", "member_id = ? AND cohort_id = ?", memberID, cohortID); err != nil {
			return err
		}
		_, err := s.db.ExecContext(ctx,
			"UPDATE attendance_stats SET "+column+" = "+column+" + 1 WHERE member_id = ? AND cohort_id = ?",
			memberID, cohortID,
		)
		return err
	})
}

// Get retrieves the counters of a member in a cohort.
// POST: Returns the stats or storage.ErrNotFound when none were ever recorded
func (s *SQLStatsStore) Get(ctx context.Context, memberID, cohortID string) (domain.Stats, error) {
	row, err := storage.Get[statsRow](ctx, s.db,
		"SELECT on_time_count, late_count, absent_count FROM attendance_stats WHERE member_id = ? AND cohort_id = ?",
		memberID, cohortID)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("attendance stats: %w", err)
	}
	return domain.Stats{MemberID: memberID, CohortID: cohortID, OnTime: row.OnTime, Late: row.Late, Absent: row.Absent}, nil
}

type statsRow struct {
	OnTime int `db:"on_time_count"`
	Late   int `db:"late_count"`
	Absent int `db:"absent_count"`
}
