package schedule

import (
	"context"
	"database/sql"
	"fmt"

	"crux/internal/adapters/storage"
	domain "crux/internal/domain/schedule"
)

const entryColumns = "id, cohort_id, day, location, start_time, staff_id"

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new ScheduleStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves a schedule entry by its ID.
// PRE: id is non-empty
// POST: Returns the entity or storage.ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	row, err := storage.Get[entryRow](ctx, s.db, "SELECT "+entryColumns+" FROM schedule_entry WHERE id = ?", id)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("schedule entry: %w", err)
	}
	return row.toDomain(), nil
}

// FirstForDay returns the first entry for a cohort's weekday.
// At most one entry per day is expected; extras are ignored by id order.
// PRE: day is one of domain.ValidDays
// POST: Returns the entry or storage.ErrNotFound
func (s *SQLStore) FirstForDay(ctx context.Context, cohortID, day string) (domain.Entry, error) {
	row, err := storage.Get[entryRow](ctx, s.db,
		"SELECT "+entryColumns+" FROM schedule_entry WHERE cohort_id = ? AND day = ? ORDER BY id LIMIT 1",
		cohortID, day)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("schedule for %s: %w", day, err)
	}
	return row.toDomain(), nil
}

// Save persists a schedule entry to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLStore) Save(ctx context.Context, entity domain.Entry) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO schedule_entry (id, cohort_id, day, location, start_time, staff_id) VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET cohort_id=excluded.cohort_id, day=excluded.day, location=excluded.location, start_time=excluded.start_time, staff_id=excluded.staff_id",
		entity.ID, entity.CohortID, entity.Day, entity.Location, entity.StartTime, storage.NullString(entity.StaffID),
	)
	return err
}

// Delete removes a schedule entry from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM schedule_entry WHERE id = ?", id)
	return err
}

// ListByCohort retrieves a cohort's entries in weekday order.
func (s *SQLStore) ListByCohort(ctx context.Context, cohortID string) ([]domain.Entry, error) {
	var rows []entryRow
	err := storage.Select(ctx, s.db, &rows,
		"SELECT "+entryColumns+" FROM schedule_entry WHERE cohort_id = ? ORDER BY "+dayOrder+", start_time",
		cohortID)
	if err != nil {
		return nil, err
	}
	results := make([]domain.Entry, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.toDomain())
	}
	return results, nil
}

// dayOrder sorts day names Monday first.
const dayOrder = `CASE day WHEN 'monday' THEN 0 WHEN 'tuesday' THEN 1 WHEN 'wednesday' THEN 2
	WHEN 'thursday' THEN 3 WHEN 'friday' THEN 4 WHEN 'saturday' THEN 5 ELSE 6 END`

type entryRow struct {
	ID        string         `db:"id"`
	CohortID  string         `db:"cohort_id"`
	Day       string         `db:"day"`
	Location  string         `db:"location"`
	StartTime string         `db:"start_time"`
	StaffID   sql.NullString `db:"staff_id"`
}

func (r entryRow) toDomain() domain.Entry {
	return domain.Entry{ID: r.ID, CohortID: r.CohortID, Day: r.Day, Location: r.Location, StartTime: r.StartTime, StaffID: r.StaffID.String}
}
