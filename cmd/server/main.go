package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	web "crux/internal/adapters/http"
	"crux/internal/adapters/http/middleware"
	"crux/internal/adapters/http/perf"
	"crux/internal/adapters/storage"
	attendanceStore "crux/internal/adapters/storage/attendance"
	cohortStore "crux/internal/adapters/storage/cohort"
	holidayStore "crux/internal/adapters/storage/holiday"
	memberStore "crux/internal/adapters/storage/member"
	rankingStore "crux/internal/adapters/storage/ranking"
	recordStore "crux/internal/adapters/storage/record"
	scheduleStore "crux/internal/adapters/storage/schedule"
	"crux/internal/application/orchestrators"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const sqlitePragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"

func main() {
	issueToken := flag.String("issue-token", "", "print a bearer token for the given member ID and exit (non-production only)")
	flag.Parse()

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}
	env := envOrDefault("CRUX_ENV", "development")
	slog.SetDefault(slog.New(newLogHandler(envOrDefault("CRUX_LOG_FORMAT", "text"), envOrDefault("CRUX_LOG_LEVEL", "info"))))

	secret := []byte(os.Getenv("CRUX_JWT_SECRET"))
	if len(secret) == 0 {
		if env == "production" {
			log.Fatalf("CRUX_JWT_SECRET must be set in production")
		}
		secret = []byte("crux-dev-secret")
		slog.Warn("config_event", "event", "dev_jwt_secret", "detail", "CRUX_JWT_SECRET is not set; using the development secret")
	}

	if *issueToken != "" {
		if env == "production" {
			log.Fatalf("-issue-token is disabled in production")
		}
		token, err := middleware.IssueToken(secret, *issueToken, time.Now(), 24*time.Hour)
		if err != nil {
			log.Fatalf("failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	loc, err := time.LoadLocation(envOrDefault("CRUX_TIMEZONE", "Asia/Seoul"))
	if err != nil {
		log.Fatalf("invalid CRUX_TIMEZONE: %v", err)
	}

	driver := envOrDefault("CRUX_DB_DRIVER", "sqlite")
	dialect, err := storage.DialectForDriver(driver)
	if err != nil {
		log.Fatalf("invalid CRUX_DB_DRIVER: %v", err)
	}
	dsn := os.Getenv("CRUX_DB_DSN")
	if dsn == "" {
		if dialect != storage.DialectSQLite {
			log.Fatalf("CRUX_DB_DSN is required for driver %s", driver)
		}
		dsn = "crux.db" + sqlitePragmas
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}
	if err := storage.MigrateDB(ctx, db, dialect); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, dialect, collector)
	timedDB.SetMaxOpenConns(25)
	timedDB.SetMaxIdleConns(25)

	cohorts := cohortStore.NewSQLStore(timedDB)
	schedules := scheduleStore.NewSQLStore(timedDB)
	stores := &web.Stores{
		DB:              timedDB,
		Resolver:        orchestrators.NewScheduleResolver(cohorts, schedules, loc),
		CohortStore:     cohorts,
		ScheduleStore:   schedules,
		HolidayStore:    holidayStore.NewSQLStore(timedDB),
		MemberStore:     memberStore.NewSQLStore(timedDB),
		AttendanceStore: attendanceStore.NewSQLStore(timedDB),
		StatsStore:      attendanceStore.NewSQLStatsStore(timedDB),
		RecordStore:     recordStore.NewSQLStore(timedDB),
		RankingStore:    rankingStore.NewSQLStore(timedDB),
	}

	if envOrDefault("CRUX_JOBS_ENABLED", "true") == "true" {
		scheduler, err := newScheduler(stores, loc, collector)
		if err != nil {
			log.Fatalf("failed to configure jobs: %v", err)
		}
		scheduler.Start()
		defer func() {
			<-scheduler.Stop().Done()
			slog.Info("job_event", "event", "scheduler_stopped")
		}()
	}

	cfg := web.Config{
		JWTSecret:          secret,
		RequestTimeout:     durationOrDefault("CRUX_REQUEST_TIMEOUT", 5*time.Second),
		RateLimitPerSecond: intOrDefault("CRUX_RATE_LIMIT", 20),
		SlowRequest:        time.Duration(intOrDefault("CRUX_SLOW_REQUEST_MS", 200)) * time.Millisecond,
	}
	srv := &http.Server{
		Addr:              envOrDefault("CRUX_ADDR", ":8080"),
		Handler:           web.NewMux(ctx, stores, cfg, collector),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server_event", "event", "shutdown_failed", "error", err)
		}
	}()

	slog.Info("server_event", "event", "starting", "version", version, "addr", srv.Addr, "env", env, "driver", driver, "timezone", loc.String(), "schema", storage.LatestSchemaVersion())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	slog.Info("server_event", "event", "stopped")
}

// newScheduler binds the nightly reconciliation jobs to their cron specs.
func newScheduler(s *web.Stores, loc *time.Location, collector *perf.Collector) (*orchestrators.Scheduler, error) {
	jobs := orchestrators.ReconcileJobs(orchestrators.ReconcileDeps{
		Tx:              s.DB,
		Resolver:        s.Resolver,
		Holidays:        s.HolidayStore,
		AttendanceStore: s.AttendanceStore,
		StatsStore:      s.StatsStore,
		Roster:          s.MemberStore,
	})
	// Order matters: stale requests are rejected before either backfill runs.
	specs := []struct{ name, env, fallback string }{
		{orchestrators.JobRejectStalePending, "CRUX_CRON_REJECT_PENDING", "57 23 * * *"},
		{orchestrators.JobBackfillHoliday, "CRUX_CRON_HOLIDAY", "58 23 * * *"},
		{orchestrators.JobBackfillAbsence, "CRUX_CRON_ABSENCE", "59 23 * * *"},
	}
	scheduled := make([]orchestrators.ScheduledJob, 0, len(specs))
	for _, sp := range specs {
		scheduled = append(scheduled, orchestrators.ScheduledJob{
			Name: sp.name,
			Spec: envOrDefault(sp.env, sp.fallback),
			Run:  jobs[sp.name],
		})
	}
	return orchestrators.NewScheduler(loc, 5*time.Minute, scheduled, collector.ObserveJob)
}

func newLogHandler(format, level string) slog.Handler {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.NewTextHandler(os.Stderr, opts)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}

func intOrDefault(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}
