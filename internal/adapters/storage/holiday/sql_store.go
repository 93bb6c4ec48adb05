package holiday

import (
	"context"
	"time"

	"crux/internal/adapters/storage"
	domain "crux/internal/domain/holiday"
)

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new blackout date store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// Save persists a BlackoutDate to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLStore) Save(ctx context.Context, entity domain.BlackoutDate) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO blackout_date (id, date, reason) VALUES (?, ?, ?) ON CONFLICT(id) DO UPDATE SET date=excluded.date, reason=excluded.reason",
		entity.ID, storage.FormatDate(entity.Date), entity.Reason,
	)
	return err
}

// Delete removes a BlackoutDate from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM blackout_date WHERE id = ?", id)
	return err
}

// List retrieves all blackout dates in calendar order.
func (s *SQLStore) List(ctx context.Context) ([]domain.BlackoutDate, error) {
	var rows []struct {
		ID     string       `db:"id"`
		Date   storage.Date `db:"date"`
		Reason string       `db:"reason"`
	}
	if err := storage.Select(ctx, s.db, &rows, "SELECT id, date, reason FROM blackout_date ORDER BY date"); err != nil {
		return nil, err
	}
	results := make([]domain.BlackoutDate, 0, len(rows))
	for _, row := range rows {
		results = append(results, domain.BlackoutDate{ID: row.ID, Date: row.Date.Time(), Reason: row.Reason})
	}
	return results, nil
}

// IsBlackout reports whether the calendar date of t is a blackout date.
// PRE: t carries the club's location
func (s *SQLStore) IsBlackout(ctx context.Context, t time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM blackout_date WHERE date = ?", storage.FormatDate(t)).Scan(&n)
	if err != nil {
		return false, storage.TranslateError(err)
	}
	return n > 0, nil
}
