package cohort

import (
	"context"
	"fmt"
	"time"

	"crux/internal/adapters/storage"
	domain "crux/internal/domain/cohort"
)

const cohortColumns = "id, number, name, start_date, end_date"

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new CohortStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves a Cohort by its ID.
// PRE: id is non-empty
// POST: Returns the entity or storage.ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Cohort, error) {
	return s.getOne(ctx, "SELECT "+cohortColumns+" FROM cohort WHERE id = ?", id)
}

// GetByNumber retrieves a Cohort by its generation number.
func (s *SQLStore) GetByNumber(ctx context.Context, number int) (domain.Cohort, error) {
	return s.getOne(ctx, "SELECT "+cohortColumns+" FROM cohort WHERE number = ?", number)
}

// ActiveOn returns the cohort whose window contains the calendar date of t.
// Overlapping windows resolve to the earliest start.
// PRE: t carries the club's location
// POST: Returns the cohort or storage.ErrNotFound
func (s *SQLStore) ActiveOn(ctx context.Context, t time.Time) (domain.Cohort, error) {
	day := storage.FormatDate(t)
	return s.getOne(ctx,
		"SELECT "+cohortColumns+" FROM cohort WHERE start_date <= ? AND end_date >= ? ORDER BY start_date LIMIT 1",
		day, day)
}

// Save persists a Cohort to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLStore) Save(ctx context.Context, entity domain.Cohort) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO cohort (id, number, name, start_date, end_date) VALUES (?, ?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET number=excluded.number, name=excluded.name, start_date=excluded.start_date, end_date=excluded.end_date",
		entity.ID, entity.Number, entity.Name, storage.FormatDate(entity.StartDate), storage.FormatDate(entity.EndDate),
	)
	return err
}

// List retrieves all Cohorts ordered by start date.
func (s *SQLStore) List(ctx context.Context) ([]domain.Cohort, error) {
	var rows []cohortRow
	if err := storage.Select(ctx, s.db, &rows, "SELECT "+cohortColumns+" FROM cohort ORDER BY start_date"); err != nil {
		return nil, err
	}
	results := make([]domain.Cohort, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.toDomain())
	}
	return results, nil
}

func (s *SQLStore) getOne(ctx context.Context, query string, args ...any) (domain.Cohort, error) {
	row, err := storage.Get[cohortRow](ctx, s.db, query, args...)
	if err != nil {
		return domain.Cohort{}, fmt.Errorf("cohort: %w", err)
	}
	return row.toDomain(), nil
}

type cohortRow struct {
	ID        string       `db:"id"`
	Number    int          `db:"number"`
	Name      string       `db:"name"`
	StartDate storage.Date `db:"start_date"`
	EndDate   storage.Date `db:"end_date"`
}

func (r cohortRow) toDomain() domain.Cohort {
	return domain.Cohort{ID: r.ID, Number: r.Number, Name: r.Name, StartDate: r.StartDate.Time(), EndDate: r.EndDate.Time()}
}
