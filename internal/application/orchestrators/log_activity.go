package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"crux/internal/domain/apperror"
	"crux/internal/domain/record"

	"github.com/google/uuid"
)

// RecordStore defines the session and problem persistence needed for activity logging.
type RecordStore interface {
	CreateSession(ctx context.Context, value record.Session) error
	GetSession(ctx context.Context, id string) (record.Session, error)
	LockSession(ctx context.Context, id string) error
	UpdateSession(ctx context.Context, value record.Session) error
	DeleteSession(ctx context.Context, id string) error
	CreateProblem(ctx context.Context, value record.Problem) error
	GetProblem(ctx context.Context, id string) (record.Problem, error)
	LockProblem(ctx context.Context, id string) error
	UpdateProblem(ctx context.Context, value record.Problem) error
	DeleteProblem(ctx context.Context, id string) error
	ListProblems(ctx context.Context, sessionID string) ([]record.Problem, error)
}

// LogActivityDeps holds dependencies for every activity orchestrator.
type LogActivityDeps struct {
	Tx         Transactor
	Resolver   *ScheduleResolver
	Records    RecordStore
	Aggregator *RankingAggregator
	GenerateID func() string    // optional, defaults to uuid
	Now        func() time.Time // injectable for testing
}

func (d LogActivityDeps) newID() string {
	if d.GenerateID != nil {
		return d.GenerateID()
	}
	return uuid.New().String()
}

// ProblemInput is one difficulty/solved pair.
type ProblemInput struct {
	Difficulty int
	Solved     int
}

// LogSessionInput carries input for logging a climbing session.
type LogSessionInput struct {
	MemberID  string
	Location  string
	StartTime time.Time
	EndTime   time.Time
	Problems  []ProblemInput
}

// LogSessionResult carries the created session and its problems.
type LogSessionResult struct {
	Session  record.Session   `json:"session"`
	Problems []record.Problem `json:"problems"`
}

// ExecuteLogSession records a finished session and its problems and credits
// the weekly score.
// PRE: MemberID identifies an authenticated member
// POST: Session, problems, and score change commit together
func ExecuteLogSession(ctx context.Context, input LogSessionInput, deps LogActivityDeps) (LogSessionResult, error) {
	s := record.Session{
		ID:        deps.newID(),
		MemberID:  input.MemberID,
		Location:  input.Location,
		StartTime: deps.Resolver.Local(input.StartTime),
		EndTime:   deps.Resolver.Local(input.EndTime),
	}
	if err := s.Validate(deps.Resolver.Local(clock(deps.Now))); err != nil {
		return LogSessionResult{}, apperror.Wrap(apperror.ErrInvalidField, err)
	}
	problems, err := newProblems(s.ID, input.Problems)
	if err != nil {
		return LogSessionResult{}, err
	}
	for i := range problems {
		problems[i].ID = deps.newID()
	}
	if s.CohortID, err = sessionCohort(ctx, deps.Resolver, s.StartTime); err != nil {
		return LogSessionResult{}, err
	}

	err = deps.Tx.InTx(ctx, func(ctx context.Context) error {
		if err := deps.Records.CreateSession(ctx, s); err != nil {
			return err
		}
		for _, p := range problems {
			if err := deps.Records.CreateProblem(ctx, p); err != nil {
				return err
			}
			if err := deps.Aggregator.OnCreate(ctx, s, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return LogSessionResult{}, mapStoreError(err)
	}

	slog.Info("activity_event", "event", "session_logged", "session_id", s.ID, "member_id", s.MemberID, "cohort_id", s.CohortID, "problems", len(problems))
	return LogSessionResult{Session: s, Problems: problems}, nil
}

// UpdateSessionInput carries the full new state of a session.
type UpdateSessionInput struct {
	ActorID   string
	SessionID string
	Location  string
	StartTime time.Time
	EndTime   time.Time
	Problems  []ProblemInput
}

// ExecuteUpdateSession rewrites a session's location and times and replaces
// its problems with the given list. Existing problems are reused in order,
// surplus ones are deleted and missing ones created, so each contribution
// moves to the week (and cohort) of the new start time.
// PRE: ActorID owns the session
// POST: Scores hold only the new problems' contributions, counted in the new week
// INVARIANT: The session and every prior problem are read under blocking row locks in the writing transaction
func ExecuteUpdateSession(ctx context.Context, input UpdateSessionInput, deps LogActivityDeps) (LogSessionResult, error) {
	next := record.Session{
		ID:        input.SessionID,
		MemberID:  input.ActorID,
		Location:  input.Location,
		StartTime: deps.Resolver.Local(input.StartTime),
		EndTime:   deps.Resolver.Local(input.EndTime),
	}
	if err := next.Validate(deps.Resolver.Local(clock(deps.Now))); err != nil {
		return LogSessionResult{}, apperror.Wrap(apperror.ErrInvalidField, err)
	}
	problems, err := newProblems(next.ID, input.Problems)
	if err != nil {
		return LogSessionResult{}, err
	}
	if next.CohortID, err = sessionCohort(ctx, deps.Resolver, next.StartTime); err != nil {
		return LogSessionResult{}, err
	}

	var moved, created, deleted int
	err = deps.Tx.InTx(ctx, func(ctx context.Context) error {
		if err := deps.Records.LockSession(ctx, input.SessionID); err != nil {
			return err
		}
		prior, err := ownedSession(ctx, deps.Records, input.SessionID, input.ActorID)
		if err != nil {
			return err
		}
		existing, err := deps.Records.ListProblems(ctx, prior.ID)
		if err != nil {
			return err
		}
		if err := deps.Records.UpdateSession(ctx, next); err != nil {
			return err
		}

		for i := range problems {
			if i >= len(existing) {
				problems[i].ID = deps.newID()
				if err := deps.Records.CreateProblem(ctx, problems[i]); err != nil {
					return err
				}
				if err := deps.Aggregator.OnCreate(ctx, next, problems[i]); err != nil {
					return err
				}
				created++
				continue
			}
			old := existing[i]
			problems[i].ID = old.ID
			if err := deps.Records.LockProblem(ctx, old.ID); err != nil {
				return err
			}
			if err := deps.Aggregator.OnUpdate(ctx, prior, old, next, problems[i]); err != nil {
				return err
			}
			if err := deps.Records.UpdateProblem(ctx, problems[i]); err != nil {
				return err
			}
			moved++
		}
		for _, old := range existing[min(len(problems), len(existing)):] {
			if err := deps.Records.LockProblem(ctx, old.ID); err != nil {
				return err
			}
			if err := deps.Aggregator.OnDelete(ctx, prior, old); err != nil {
				return err
			}
			if err := deps.Records.DeleteProblem(ctx, old.ID); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return LogSessionResult{}, mapStoreError(err)
	}

	slog.Info("activity_event", "event", "session_updated", "session_id", next.ID, "cohort_id", next.CohortID,
		"problems_updated", moved, "problems_created", created, "problems_deleted", deleted)
	return LogSessionResult{Session: next, Problems: problems}, nil
}

// newProblems validates inputs as problems of sessionID. IDs are left empty.
func newProblems(sessionID string, inputs []ProblemInput) ([]record.Problem, error) {
	problems := make([]record.Problem, 0, len(inputs))
	for _, in := range inputs {
		p := record.Problem{SessionID: sessionID, Difficulty: in.Difficulty, Solved: in.Solved}
		if err := p.Validate(); err != nil {
			return nil, apperror.Wrap(apperror.ErrInvalidField, err)
		}
		problems = append(problems, p)
	}
	return problems, nil
}

// sessionCohort returns the cohort covering start, or "" when none does.
func sessionCohort(ctx context.Context, r *ScheduleResolver, start time.Time) (string, error) {
	active, err := r.ActiveCohort(ctx, start)
	switch {
	case err == nil:
		return active.ID, nil
	case errors.Is(err, apperror.ErrNotFound):
		return "", nil
	}
	return "", err
}

// AddProblemInput carries input for adding a problem to an existing session.
type AddProblemInput struct {
	ActorID    string
	SessionID  string
	Difficulty int
	Solved     int
}

// ExecuteAddProblem appends a problem to the actor's session.
// PRE: ActorID owns the session
func ExecuteAddProblem(ctx context.Context, input AddProblemInput, deps LogActivityDeps) (record.Problem, error) {
	p := record.Problem{ID: deps.newID(), SessionID: input.SessionID, Difficulty: input.Difficulty, Solved: input.Solved}
	if err := p.Validate(); err != nil {
		return record.Problem{}, apperror.Wrap(apperror.ErrInvalidField, err)
	}
	err := deps.Tx.InTx(ctx, func(ctx context.Context) error {
		s, err := ownedSession(ctx, deps.Records, input.SessionID, input.ActorID)
		if err != nil {
			return err
		}
		if err := deps.Records.CreateProblem(ctx, p); err != nil {
			return err
		}
		return deps.Aggregator.OnCreate(ctx, s, p)
	})
	if err != nil {
		return record.Problem{}, mapStoreError(err)
	}
	slog.Info("activity_event", "event", "problem_added", "problem_id", p.ID, "session_id", p.SessionID)
	return p, nil
}

// UpdateProblemInput carries the new values for a problem.
type UpdateProblemInput struct {
	ActorID    string
	ProblemID  string
	Difficulty int
	Solved     int
}

// ExecuteUpdateProblem changes a problem's difficulty or solved count.
// PRE: ActorID owns the problem's session
// POST: The week's score reflects the new values instead of the old ones
// INVARIANT: The prior state is read under a blocking row lock in the same transaction as the write
func ExecuteUpdateProblem(ctx context.Context, input UpdateProblemInput, deps LogActivityDeps) (record.Problem, error) {
	var next record.Problem
	err := deps.Tx.InTx(ctx, func(ctx context.Context) error {
		if err := deps.Records.LockProblem(ctx, input.ProblemID); err != nil {
			return err
		}
		prior, err := deps.Records.GetProblem(ctx, input.ProblemID)
		if err != nil {
			return err
		}
		s, err := ownedSession(ctx, deps.Records, prior.SessionID, input.ActorID)
		if err != nil {
			return err
		}
		next = prior
		next.Difficulty = input.Difficulty
		next.Solved = input.Solved
		if err := next.Validate(); err != nil {
			return apperror.Wrap(apperror.ErrInvalidField, err)
		}
		if err := deps.Aggregator.OnUpdate(ctx, s, prior, s, next); err != nil {
			return err
		}
		return deps.Records.UpdateProblem(ctx, next)
	})
	if err != nil {
		return record.Problem{}, mapStoreError(err)
	}
	slog.Info("activity_event", "event", "problem_updated", "problem_id", next.ID, "difficulty", next.Difficulty, "solved", next.Solved)
	return next, nil
}

// DeleteProblemInput identifies a problem to remove.
type DeleteProblemInput struct {
	ActorID   string
	ProblemID string
}

// ExecuteDeleteProblem removes a problem and its score contribution.
// PRE: ActorID owns the problem's session
func ExecuteDeleteProblem(ctx context.Context, input DeleteProblemInput, deps LogActivityDeps) error {
	err := deps.Tx.InTx(ctx, func(ctx context.Context) error {
		if err := deps.Records.LockProblem(ctx, input.ProblemID); err != nil {
			return err
		}
		p, err := deps.Records.GetProblem(ctx, input.ProblemID)
		if err != nil {
			return err
		}
		s, err := ownedSession(ctx, deps.Records, p.SessionID, input.ActorID)
		if err != nil {
			return err
		}
		if err := deps.Aggregator.OnDelete(ctx, s, p); err != nil {
			return err
		}
		return deps.Records.DeleteProblem(ctx, p.ID)
	})
	if err != nil {
		return mapStoreError(err)
	}
	slog.Info("activity_event", "event", "problem_deleted", "problem_id", input.ProblemID)
	return nil
}

// DeleteSessionInput identifies a session to remove.
type DeleteSessionInput struct {
	ActorID   string
	SessionID string
}

// ExecuteDeleteSession removes a session, reversing each problem's contribution first.
// PRE: ActorID owns the session
func ExecuteDeleteSession(ctx context.Context, input DeleteSessionInput, deps LogActivityDeps) error {
	err := deps.Tx.InTx(ctx, func(ctx context.Context) error {
		s, err := ownedSession(ctx, deps.Records, input.SessionID, input.ActorID)
		if err != nil {
			return err
		}
		problems, err := deps.Records.ListProblems(ctx, s.ID)
		if err != nil {
			return err
		}
		for _, p := range problems {
			if err := deps.Records.LockProblem(ctx, p.ID); err != nil {
				return err
			}
			if err := deps.Aggregator.OnDelete(ctx, s, p); err != nil {
				return err
			}
		}
		return deps.Records.DeleteSession(ctx, s.ID)
	})
	if err != nil {
		return mapStoreError(err)
	}
	slog.Info("activity_event", "event", "session_deleted", "session_id", input.SessionID)
	return nil
}

func ownedSession(ctx context.Context, records RecordStore, sessionID, actorID string) (record.Session, error) {
	s, err := records.GetSession(ctx, sessionID)
	if err != nil {
		return record.Session{}, err
	}
	if !s.OwnedBy(actorID) {
		return record.Session{}, apperror.New(apperror.ErrPermissionDenied, "session belongs to another member")
	}
	return s, nil
}
