package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"crux/internal/adapters/http/middleware"
	"crux/internal/domain/apperror"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// validate checks request DTOs against their `validate` tags.
var validate = validator.New(validator.WithRequiredStructEnabled())

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, middleware.InternalErrorBody)
}

// writeError renders err as {"code","detail"} with the status of its
// apperror code. Errors without a code are internal.
func writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		internalError(w, err)
		return
	}
	if appErr.Err != nil {
		slog.Debug("request_failed", "code", appErr.Code, "error", appErr.Err)
	}
	writeJSON(w, appErr.Status, middleware.ErrorBody{Code: appErr.Code, Detail: appErr.Detail})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("response_write_failed", "error", err)
	}
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeAndValidate decodes a request DTO and runs its validate tags.
// Every failure is an InvalidField error naming the offending field.
func decodeAndValidate(r *http.Request, v any) error {
	if err := strictDecode(r, v); err != nil {
		return apperror.New(apperror.ErrInvalidField, "malformed JSON body: "+err.Error())
	}
	if err := validate.Struct(v); err != nil {
		return apperror.New(apperror.ErrInvalidField, validationDetail(err))
	}
	return nil
}

func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// currentIdentity returns the caller, writing 401 when there is none.
func currentIdentity(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.ErrAuthenticationFailed)
		return middleware.Identity{}, false
	}
	return id, true
}

// handleHealth handles GET /healthz
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := stores.DB.PingContext(r.Context()); err != nil {
		slog.Error("health_check_failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
