package holiday_test

import (
	"context"
	"testing"
	"time"

	"crux/internal/adapters/storage/holiday"
	"crux/internal/adapters/storage/storagetest"
	domain "crux/internal/domain/holiday"
)

func TestSQLStore_IsBlackout(t *testing.T) {
	store := holiday.NewSQLStore(storagetest.OpenDB(t))
	ctx := context.Background()
	kst := time.FixedZone("KST", 9*60*60)

	b := domain.BlackoutDate{ID: "h-1", Date: time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC), Reason: "Children's Day"}
	if err := store.Save(ctx, b); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tests := []struct {
		at   time.Time
		want bool
	}{
		{time.Date(2026, 5, 5, 0, 1, 0, 0, kst), true},
		{time.Date(2026, 5, 5, 23, 58, 0, 0, kst), true},
		{time.Date(2026, 5, 4, 23, 58, 0, 0, kst), false},
	}
	for _, tt := range tests {
		got, err := store.IsBlackout(ctx, tt.at)
		if err != nil {
			t.Fatalf("IsBlackout: %v", err)
		}
		if got != tt.want {
			t.Errorf("IsBlackout(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}

	list, err := store.List(ctx)
	if err != nil || len(list) != 1 || list[0].Reason != b.Reason {
		t.Errorf("List = %+v, %v", list, err)
	}
	if err := store.Delete(ctx, "h-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := store.IsBlackout(ctx, time.Date(2026, 5, 5, 12, 0, 0, 0, kst)); got {
		t.Error("blackout survived delete")
	}
}
