package record

import (
	"context"

	domain "crux/internal/domain/record"
)

// Store persists climbing sessions and their problem counts.
type Store interface {
	CreateSession(ctx context.Context, value domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	LockSession(ctx context.Context, id string) error
	UpdateSession(ctx context.Context, value domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	ListSessionsByMember(ctx context.Context, memberID string) ([]domain.Session, error)

	CreateProblem(ctx context.Context, value domain.Problem) error
	GetProblem(ctx context.Context, id string) (domain.Problem, error)
	LockProblem(ctx context.Context, id string) error
	UpdateProblem(ctx context.Context, value domain.Problem) error
	DeleteProblem(ctx context.Context, id string) error
	ListProblems(ctx context.Context, sessionID string) ([]domain.Problem, error)
}
