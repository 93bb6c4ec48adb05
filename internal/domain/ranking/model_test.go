package ranking_test

import (
	"testing"

	"crux/internal/domain/ranking"
)

func TestContribution(t *testing.T) {
	tests := []struct {
		name                      string
		solved, difficulty, level int
		want                      float64
	}{
		{"below level", 4, 3, 5, 2},
		{"at level", 4, 5, 5, 4},
		{"above level", 4, 6, 5, 8},
		{"nothing solved", 0, 9, 5, 0},
		{"odd count below level", 3, 1, 2, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ranking.Contribution(tt.solved, tt.difficulty, tt.level); got != tt.want {
				t.Errorf("Contribution() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_Validate(t *testing.T) {
	e := ranking.Entry{MemberID: "m", CohortID: "c", Week: 1, Score: 2}
	if err := e.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	e.Week = 0
	if err := e.Validate(); err != ranking.ErrInvalidWeek {
		t.Errorf("Validate() = %v, want ErrInvalidWeek", err)
	}
}
