package attendance_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"crux/internal/adapters/storage"
	"crux/internal/adapters/storage/attendance"
	"crux/internal/adapters/storage/storagetest"
	domain "crux/internal/domain/attendance"
)

var kst = time.FixedZone("KST", 9*60*60)

func setup(t *testing.T) (*storage.TimedDB, *attendance.SQLStore) {
	t.Helper()
	db := storagetest.OpenDB(t)
	storagetest.SeedCohort(t, db, "c-5", 5, "2026-03-02", "2026-06-28")
	storagetest.SeedMember(t, db, "m-1", "member", "yeonnam", "c-5")
	storagetest.SeedMember(t, db, "m-2", "member", "sinchon", "c-5")
	return db, attendance.NewSQLStore(db)
}

func TestSQLStore_CreateAndGet(t *testing.T) {
	_, store := setup(t)
	ctx := context.Background()

	req := domain.NewPending("r-1", "m-1", "c-5", 3, "yeonnam", time.Date(2026, 3, 16, 19, 10, 0, 0, kst))
	if err := store.Create(ctx, req); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := store.GetByID(ctx, "r-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.RequestTime.Equal(req.RequestTime) || !got.RequestDate.Equal(req.RequestDate) {
		t.Errorf("times = %v / %v, want %v / %v", got.RequestTime, got.RequestDate, req.RequestTime, req.RequestDate)
	}
	if got.Status != domain.StatusPending || got.Outcome != "" || !got.ProcessedAt.IsZero() {
		t.Errorf("unexpected pending row: %+v", got)
	}
	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetByID(missing) = %v, want ErrNotFound", err)
	}
}

// TestSQLStore_Create_SecondLiveRequestConflicts verifies the one-live-request-per-week index.
func TestSQLStore_Create_SecondLiveRequestConflicts(t *testing.T) {
	_, store := setup(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 16, 19, 10, 0, 0, kst)

	if err := store.Create(ctx, domain.NewPending("r-1", "m-1", "c-5", 3, "yeonnam", at)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := store.Create(ctx, domain.NewPending("r-2", "m-1", "c-5", 3, "yeonnam", at.AddDate(0, 0, 1)))
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("second Create = %v, want ErrConflict", err)
	}
	// A different week is fine.
	if err := store.Create(ctx, domain.NewPending("r-3", "m-1", "c-5", 4, "yeonnam", at.AddDate(0, 0, 7))); err != nil {
		t.Fatalf("Create next week: %v", err)
	}
	live, err := store.HasLiveRequest(ctx, "m-1", "c-5", 3)
	if err != nil || !live {
		t.Errorf("HasLiveRequest = %v, %v", live, err)
	}
	approved, err := store.HasApproved(ctx, "m-1", "c-5", 3)
	if err != nil || approved {
		t.Errorf("HasApproved = %v, %v", approved, err)
	}
}

func TestSQLStore_SaveDecision(t *testing.T) {
	_, store := setup(t)
	ctx := context.Background()
	req := domain.NewPending("r-1", "m-2", "c-5", 3, "yeonnam", time.Date(2026, 3, 16, 19, 40, 0, 0, kst))
	if err := store.Create(ctx, req); err != nil {
		t.Fatalf("Create: %v", err)
	}
	now := time.Date(2026, 3, 16, 21, 0, 0, 0, kst)
	if err := req.Approve(domain.OutcomeLate, true, "m-1", now); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := store.SaveDecision(ctx, req); err != nil {
		t.Fatalf("SaveDecision: %v", err)
	}
	got, _ := store.GetByID(ctx, "r-1")
	if got.Status != domain.StatusApproved || got.Outcome != domain.OutcomeLate || !got.Alternate || got.ProcessedBy != "m-1" {
		t.Errorf("decision not persisted: %+v", got)
	}
	if !got.ProcessedAt.Equal(now) {
		t.Errorf("ProcessedAt = %v, want %v", got.ProcessedAt, now)
	}
	n, err := store.CountAlternates(ctx, "m-2", "c-5")
	if err != nil || n != 1 {
		t.Errorf("CountAlternates = %d, %v; want 1", n, err)
	}
}

func TestSQLStore_RejectPendingOn(t *testing.T) {
	_, store := setup(t)
	ctx := context.Background()
	today := time.Date(2026, 3, 16, 23, 57, 0, 0, kst)

	must := func(r domain.Request) {
		t.Helper()
		if err := store.Create(ctx, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	must(domain.NewPending("today", "m-1", "c-5", 3, "yeonnam", time.Date(2026, 3, 16, 19, 0, 0, 0, kst)))
	must(domain.NewPending("yesterday", "m-2", "c-5", 3, "yeonnam", time.Date(2026, 3, 15, 19, 0, 0, 0, kst)))

	n, err := store.RejectPendingOn(ctx, "c-5", today, today)
	if err != nil {
		t.Fatalf("RejectPendingOn: %v", err)
	}
	if n != 1 {
		t.Errorf("rejected %d rows, want 1", n)
	}
	got, _ := store.GetByID(ctx, "today")
	if got.Status != domain.StatusRejected || got.ProcessedBy != "" || got.Outcome != "" {
		t.Errorf("today's request = %+v", got)
	}
	other, _ := store.GetByID(ctx, "yesterday")
	if other.Status != domain.StatusPending {
		t.Errorf("yesterday's request touched: %+v", other)
	}

	again, err := store.RejectPendingOn(ctx, "c-5", today, today)
	if err != nil || again != 0 {
		t.Errorf("rerun rejected %d, %v; want 0", again, err)
	}
}

func TestSQLStore_ListPending_IncludesMemberName(t *testing.T) {
	_, store := setup(t)
	ctx := context.Background()
	if err := store.Create(ctx, domain.NewPending("r-1", "m-2", "c-5", 3, "yeonnam", time.Date(2026, 3, 16, 19, 0, 0, 0, kst))); err != nil {
		t.Fatalf("Create: %v", err)
	}
	list, err := store.ListPending(ctx, "c-5")
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(list) != 1 || list[0].MemberName != "member m-2" || list[0].ID != "r-1" {
		t.Errorf("ListPending = %+v", list)
	}
}

// TestLockForDecision_SecondTxFailsFast verifies the decision lock is non-blocking.
func TestLockForDecision_SecondTxFailsFast(t *testing.T) {
	db, store := setup(t)
	ctx := context.Background()
	if err := store.Create(ctx, domain.NewPending("r-1", "m-1", "c-5", 3, "yeonnam", time.Date(2026, 3, 16, 19, 0, 0, 0, kst))); err != nil {
		t.Fatalf("Create: %v", err)
	}

	locked := make(chan struct{})
	proceed := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- db.InTx(ctx, func(ctx context.Context) error {
			err := store.LockForDecision(ctx, "r-1")
			close(locked)
			if err != nil {
				return err
			}
			<-proceed
			return nil
		})
	}()
	<-locked

	err := db.InTx(ctx, func(ctx context.Context) error {
		return store.LockForDecision(ctx, "r-1")
	})
	close(proceed)
	if !errors.Is(err, storage.ErrRowLocked) {
		t.Errorf("second LockForDecision = %v, want ErrRowLocked", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("holder: %v", err)
	}
}

func TestSQLStatsStore_Increment(t *testing.T) {
	db, _ := setup(t)
	stats := attendance.NewSQLStatsStore(db)
	ctx := context.Background()

	if _, err := stats.Get(ctx, "m-1", "c-5"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get before increment = %v, want ErrNotFound", err)
	}
	for _, f := range []string{domain.FieldOnTime, domain.FieldOnTime, domain.FieldLate, domain.FieldAbsent} {
		if err := stats.Increment(ctx, "m-1", "c-5", f); err != nil {
			t.Fatalf("Increment(%s): %v", f, err)
		}
	}
	got, err := stats.Get(ctx, "m-1", "c-5")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.OnTime != 2 || got.Late != 1 || got.Absent != 1 {
		t.Errorf("stats = %+v, want 2/1/1", got)
	}
	if err := stats.Increment(ctx, "m-1", "c-5", "excused"); !errors.Is(err, domain.ErrInvalidField) {
		t.Errorf("Increment(excused) = %v, want ErrInvalidField", err)
	}
}

// TestSQLStatsStore_Increment_LockedRow verifies increments never wait on a held stats row.
func TestSQLStatsStore_Increment_LockedRow(t *testing.T) {
	db, _ := setup(t)
	stats := attendance.NewSQLStatsStore(db)
	ctx := context.Background()
	if err := stats.Increment(ctx, "m-1", "c-5", domain.FieldOnTime); err != nil {
		t.Fatalf("seed Increment: %v", err)
	}

	locked := make(chan struct{})
	proceed := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- db.InTx(ctx, func(ctx context.Context) error {
			err := db.LockRow(ctx, storage.LockNoWait, "attendance_stats", "member_id = ? AND cohort_id = ?", "m-1", "c-5")
			close(locked)
			if err != nil {
				return err
			}
			<-proceed
			return nil
		})
	}()
	<-locked

	err := stats.Increment(ctx, "m-1", "c-5", domain.FieldLate)
	close(proceed)
	if !errors.Is(err, storage.ErrRowLocked) {
		t.Errorf("Increment on locked row = %v, want ErrRowLocked", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("holder: %v", err)
	}
	got, _ := stats.Get(ctx, "m-1", "c-5")
	if got.Late != 0 {
		t.Errorf("failed increment leaked: %+v", got)
	}
}

// noWaitDB records the statements sent through ExecNoWait and can simulate
// a stats row inserted but not yet committed by another transaction.
type noWaitDB struct {
	storage.DB
	statements []string
	busy       bool
}

func (d *noWaitDB) ExecNoWait(ctx context.Context, query string, args ...any) (sql.Result, error) {
	d.statements = append(d.statements, query)
	if d.busy {
		return nil, storage.ErrRowLocked
	}
	return d.DB.ExecNoWait(ctx, query, args...)
}

// TestSQLStatsStore_Increment_InsertDoesNotWait verifies the stats row is
// created through the non-waiting path and a pending conflicting insert fails fast.
func TestSQLStatsStore_Increment_InsertDoesNotWait(t *testing.T) {
	db, _ := setup(t)
	rec := &noWaitDB{DB: db}
	stats := attendance.NewSQLStatsStore(rec)
	ctx := context.Background()

	if err := stats.Increment(ctx, "m-1", "c-5", domain.FieldOnTime); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if len(rec.statements) != 1 || !strings.HasPrefix(rec.statements[0], "INSERT INTO attendance_stats") {
		t.Fatalf("no-wait statements = %q", rec.statements)
	}

	rec.busy = true
	if err := stats.Increment(ctx, "m-1", "c-5", domain.FieldLate); !errors.Is(err, storage.ErrRowLocked) {
		t.Errorf("Increment behind pending insert = %v, want ErrRowLocked", err)
	}
	got, err := stats.Get(ctx, "m-1", "c-5")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.OnTime != 1 || got.Late != 0 {
		t.Errorf("stats = %+v, want 1/0/0", got)
	}
}
