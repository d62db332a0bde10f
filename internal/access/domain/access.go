package domain

import (
	"errors"
	"time"
)

// Role is the authorization role carried on an access record.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// NormalizeRole maps any unrecognized or empty role to RoleMember, the single
// low-privilege default used everywhere in the pipeline.
func NormalizeRole(r Role) Role {
	switch r {
	case RoleAdmin, RoleMember:
		return r
	default:
		return RoleMember
	}
}

type AccessStatus string

const (
	AccessStatusActive   AccessStatus = "active"
	AccessStatusDisabled AccessStatus = "disabled"
)

// AccessRecord links an auth identity to an employee and carries authorization
// data. At most one record exists per auth identity. EmployeeID may be nil or
// point at a missing employee; the profile resolver repairs both cases.
// FullName/Department/Position are denormalized copies of the linked employee's
// descriptive fields so the common resolution path needs a single lookup.
type AccessRecord struct {
	AuthID     string
	EmployeeID *string
	Email      string
	Role       Role
	Status     AccessStatus
	FullName   string
	Department string
	Position   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate validates the record for persistence. Returns an error describing the first validation failure.
func (a *AccessRecord) Validate() error {
	if a.AuthID == "" {
		return errors.New("auth_id is required")
	}
	if a.Email == "" {
		return errors.New("email is required")
	}
	if a.Role == "" {
		a.Role = RoleMember
	}
	if a.Status == "" {
		a.Status = AccessStatusActive
	}
	return nil
}
