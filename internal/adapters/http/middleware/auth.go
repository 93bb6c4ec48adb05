package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"crux/internal/domain/apperror"
	"crux/internal/domain/member"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the authenticated member behind a request.
type Identity struct {
	MemberID     string
	Role         string
	HomeLocation string
	CohortID     string
	CohortNumber int
}

// IsStaff returns true for managers and admins.
func (i Identity) IsStaff() bool {
	return i.Role == member.RoleManager || i.Role == member.RoleAdmin
}

// MemberLookup loads the roster entry named by a token subject.
type MemberLookup interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
}

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// Authenticate returns middleware that verifies an HS256 bearer token and
// loads the member named by its subject. Requests without a valid token, or
// whose member is missing or inactive, are rejected with 401.
// PRE: secret is non-empty
// POST: the next handler sees an Identity in the request context
func Authenticate(secret []byte, members MemberLookup) func(http.Handler) http.Handler {
	keyFunc := func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", errUnexpectedSigningMethod, t.Header["alg"])
		}
		return secret, nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			noteRoute(r, "")
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, apperror.New(apperror.ErrAuthenticationFailed, "missing bearer token"))
				return
			}

			claims := &jwt.RegisteredClaims{}
			if _, err := jwt.ParseWithClaims(raw, claims, keyFunc); err != nil {
				slog.Debug("auth_event", "event", "token_rejected", "error", err)
				writeError(w, apperror.New(apperror.ErrAuthenticationFailed, "invalid token"))
				return
			}
			if claims.Subject == "" {
				writeError(w, apperror.New(apperror.ErrAuthenticationFailed, "token has no subject"))
				return
			}

			m, err := members.GetByID(r.Context(), claims.Subject)
			if err != nil || !m.Active {
				slog.Info("auth_event", "event", "unknown_member", "member_id", claims.Subject, "error", err)
				writeError(w, apperror.New(apperror.ErrAuthenticationFailed, "member is not on the roster"))
				return
			}

			id := Identity{
				MemberID:     m.ID,
				Role:         m.Role,
				HomeLocation: m.HomeLocation,
				CohortID:     m.CohortID,
				CohortNumber: m.CohortNumber,
			}
			noteRoute(r, id.MemberID)
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole returns middleware that blocks requests from members without one of the specified roles.
// It must run inside Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, apperror.ErrAuthenticationFailed)
				return
			}
			if !roleSet[id.Role] {
				writeError(w, apperror.New(apperror.ErrPermissionDenied, "role "+id.Role+" may not do this"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext extracts the identity set by Authenticate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// WithIdentity returns a context carrying id.
// Intended for use in tests and by Authenticate.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IssueToken signs an HS256 token for memberID that expires after ttl.
// Production tokens come from the external auth service; this exists for
// local development and tests.
func IssueToken(secret []byte, memberID string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   memberID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[7:])
	return token, token != ""
}
