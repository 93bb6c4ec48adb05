package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable codes.
const (
	CodeNotExist                = "not_exist"
	CodeInvalidFieldState       = "invalid_field_state"
	CodeDuplicateAttendance     = "duplicate_attendance"
	CodeAttendancePeriodInvalid = "attendance_period_invalid"
	CodeResourceLocked          = "resource_locked"
	CodeMissingWeeklyStaffInfo  = "missing_weekly_staff_info"
	CodeInvalidField            = "invalid_field"
	CodePermissionDenied        = "permission_denied"
	CodeAuthenticationFailed    = "authentication_failed"
)

// Error is a user-facing error with a stable code and HTTP status.
// Two Errors match under errors.Is when their codes are equal.
type Error struct {
	Code   string
	Status int
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code so that errors.Is(err, ErrNotFound) works for any detail.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound                = &Error{Code: CodeNotExist, Status: http.StatusNotFound, Detail: "resource does not exist"}
	ErrInvalidFieldState       = &Error{Code: CodeInvalidFieldState, Status: http.StatusBadRequest, Detail: "request has already been processed"}
	ErrDuplicateAttendance     = &Error{Code: CodeDuplicateAttendance, Status: http.StatusConflict, Detail: "attendance already requested this week"}
	ErrAttendancePeriodInvalid = &Error{Code: CodeAttendancePeriodInvalid, Status: http.StatusBadRequest, Detail: "attendance cannot be requested today"}
	ErrResourceLocked          = &Error{Code: CodeResourceLocked, Status: http.StatusLocked, Detail: "resource is being processed, retry later"}
	ErrMissingWeeklyStaffInfo  = &Error{Code: CodeMissingWeeklyStaffInfo, Status: http.StatusNotFound, Detail: "no weekly schedule for today"}
	ErrInvalidField            = &Error{Code: CodeInvalidField, Status: http.StatusBadRequest, Detail: "field value is invalid"}
	ErrPermissionDenied        = &Error{Code: CodePermissionDenied, Status: http.StatusForbidden, Detail: "permission denied"}
	ErrAuthenticationFailed    = &Error{Code: CodeAuthenticationFailed, Status: http.StatusUnauthorized, Detail: "authentication failed"}
)

// New returns a copy of base carrying a specific detail message.
func New(base *Error, detail string) *Error {
	return &Error{Code: base.Code, Status: base.Status, Detail: detail}
}

// Wrap returns a copy of base wrapping cause.
func Wrap(base *Error, cause error) *Error {
	return &Error{Code: base.Code, Status: base.Status, Detail: base.Detail, Err: cause}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
