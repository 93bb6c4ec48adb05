package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"crux/internal/adapters/http/perf"
)

// HealthPath is the liveness route, kept out of timing data.
const HealthPath = "/healthz"

// DefaultSlowRequest is the duration above which a request is logged at WARN.
const DefaultSlowRequest = 200 * time.Millisecond

// unmatchedRoute labels requests no route claimed, so scanners hitting
// random paths share one perf bucket.
const unmatchedRoute = "unmatched"

// RequestIDHeader carries the id Timing assigns to each request. A caller
// supplied UUID is kept so traces join up across services.
const RequestIDHeader = "X-Request-ID"

// trace is filled in as a request travels down the chain. Middleware below
// the mux copy the request, so fields are written through the pointer.
type trace struct {
	id       string
	route    string // mux pattern, e.g. "PATCH /api/attendance/requests/{id}/accept"
	memberID string
}

type traceContextKey struct{}

func traceFrom(ctx context.Context) *trace {
	tr, _ := ctx.Value(traceContextKey{}).(*trace)
	return tr
}

// noteRoute stores the matched mux pattern and caller on the request trace.
// It is called once a route has been resolved and the caller authenticated.
func noteRoute(r *http.Request, memberID string) {
	if tr := traceFrom(r.Context()); tr != nil {
		tr.route = r.Pattern
		tr.memberID = memberID
	}
}

// RequestID returns the id Timing assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	if tr := traceFrom(ctx); tr != nil {
		return tr.id
	}
	return ""
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Timing returns middleware that tags every request with an id, logs its
// duration and records it in collector under its route pattern.
// Requests slower than slow log at WARN, the rest at DEBUG.
// POST: the response carries X-Request-ID; /healthz is neither logged nor recorded
func Timing(collector *perf.Collector, slow time.Duration) func(http.Handler) http.Handler {
	if slow <= 0 {
		slow = DefaultSlowRequest
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == HealthPath {
				next.ServeHTTP(w, r)
				return
			}

			tr := &trace{id: uuid.NewString(), route: unmatchedRoute}
			if in, err := uuid.Parse(r.Header.Get(RequestIDHeader)); err == nil {
				tr.id = in.String()
			}
			w.Header().Set(RequestIDHeader, tr.id)
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			defer func() {
				elapsed := time.Since(start)
				level := slog.LevelDebug
				if elapsed >= slow {
					level = slog.LevelWarn
				}
				slog.Log(r.Context(), level, "request_event",
					"event", "served",
					"request_id", tr.id,
					"route", tr.route,
					"path", r.URL.Path,
					"member_id", tr.memberID,
					"status", sw.status,
					"duration_ms", float64(elapsed.Microseconds())/1000,
				)
				if collector != nil {
					collector.Record(perf.Entry{
						Kind:       perf.KindRequest,
						Path:       tr.route,
						StatusCode: sw.status,
						Failed:     sw.status >= http.StatusInternalServerError,
						DurationMs: float64(elapsed.Microseconds()) / 1000,
						Timestamp:  start,
					})
				}
			}()

			next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), traceContextKey{}, tr)))
		})
	}
}
