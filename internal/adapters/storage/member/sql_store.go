package member

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"crux/internal/adapters/storage"
	domain "crux/internal/domain/member"
)

const memberSelect = `SELECT m.id, m.name, m.email, m.role, m.home_location, m.cohort_id, c.number AS cohort_number, m.level, m.active
	FROM member m JOIN cohort c ON c.id = m.cohort_id`

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new MemberStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves a Member with its cohort number.
// PRE: id is non-empty
// POST: Returns the entity or storage.ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Member, error) {
	row, err := storage.Get[memberRow](ctx, s.db, memberSelect+" WHERE m.id = ?", id)
	if err != nil {
		return domain.Member{}, fmt.Errorf("member: %w", err)
	}
	return domain.Member(row), nil
}

// Save persists a Member to the database. CohortNumber is not stored.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLStore) Save(ctx context.Context, entity domain.Member) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO member (id, name, email, role, home_location, cohort_id, level, active) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, email=excluded.email, role=excluded.role,
		home_location=excluded.home_location, cohort_id=excluded.cohort_id, level=excluded.level, active=excluded.active`,
		entity.ID, entity.Name, entity.Email, entity.Role, entity.HomeLocation, entity.CohortID, entity.Level, storage.BoolInt(entity.Active),
	)
	return err
}

// ListRoster returns members matching filter, ordered by name.
// PRE: filter fields are optional
// POST: Returns matching members (possibly empty)
func (s *SQLStore) ListRoster(ctx context.Context, filter RosterFilter) ([]domain.Member, error) {
	where, args, err := rosterWhereClause(filter)
	if err != nil {
		return nil, err
	}
	var rows []memberRow
	if err := storage.Select(ctx, s.db, &rows, memberSelect+where+" ORDER BY m.name, m.id", args...); err != nil {
		return nil, err
	}
	results := make([]domain.Member, 0, len(rows))
	for _, row := range rows {
		results = append(results, domain.Member(row))
	}
	return results, nil
}

func rosterWhereClause(filter RosterFilter) (string, []any, error) {
	var conds []string
	var args []any
	if filter.Location != "" {
		conds = append(conds, "m.home_location = ?")
		args = append(args, filter.Location)
	}
	if len(filter.CohortNumbers) > 0 {
		in, inArgs, err := sqlx.In("c.number IN (?)", filter.CohortNumbers)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, in)
		args = append(args, inArgs...)
	}
	if filter.Role != "" {
		conds = append(conds, "m.role = ?")
		args = append(args, filter.Role)
	}
	if filter.ActiveOnly {
		conds = append(conds, "m.active = 1")
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// memberRow has the field layout of domain.Member so rows convert directly.
type memberRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Email        string `db:"email"`
	Role         string `db:"role"`
	HomeLocation string `db:"home_location"`
	CohortID     string `db:"cohort_id"`
	CohortNumber int    `db:"cohort_number"`
	Level        int    `db:"level"`
	Active       bool   `db:"active"`
}
