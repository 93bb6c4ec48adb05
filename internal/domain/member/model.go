package member

import (
	"errors"
	"strings"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// Role constants
const (
	RoleMember  = "member"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// Climbing level bounds.
const (
	MinLevel = 1
	MaxLevel = 10
)

// Domain errors
var (
	ErrEmptyName       = errors.New("member name cannot be empty")
	ErrNameTooLong     = errors.New("member name cannot exceed 100 characters")
	ErrInvalidEmail    = errors.New("member email must be valid")
	ErrInvalidRole     = errors.New("role must be 'member', 'manager', or 'admin'")
	ErrInvalidLevel    = errors.New("level must be between 1 and 10")
	ErrEmptyCohortID   = errors.New("member must belong to a cohort")
	ErrEmptyLocation   = errors.New("home location cannot be empty")
	ErrAlreadyInactive = errors.New("member is already inactive")
)

// Member is a club member on the roster of one cohort.
type Member struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	HomeLocation string `json:"home_location"`
	CohortID     string `json:"cohort_id"`
	CohortNumber int    `json:"cohort_number"` // joined from the cohort row by the store
	Level        int    `json:"level"`
	Active       bool   `json:"active"`
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Email must contain '@', Name must not be empty
func (m *Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if len(m.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !strings.Contains(m.Email, "@") {
		return ErrInvalidEmail
	}
	if !IsValidRole(m.Role) {
		return ErrInvalidRole
	}
	if m.Level < MinLevel || m.Level > MaxLevel {
		return ErrInvalidLevel
	}
	if strings.TrimSpace(m.CohortID) == "" {
		return ErrEmptyCohortID
	}
	if strings.TrimSpace(m.HomeLocation) == "" {
		return ErrEmptyLocation
	}
	return nil
}

// IsStaff returns true for managers and admins.
func (m *Member) IsStaff() bool {
	return m.Role == RoleManager || m.Role == RoleAdmin
}

// Deactivate marks the member as no longer active.
// PRE: Member is active
// POST: Active is false
func (m *Member) Deactivate() error {
	if !m.Active {
		return ErrAlreadyInactive
	}
	m.Active = false
	return nil
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleMember, RoleManager, RoleAdmin:
		return true
	}
	return false
}
