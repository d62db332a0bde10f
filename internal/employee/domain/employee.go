package domain

import (
	"errors"
	"time"
)

// Employee is a directory entry for a person, independent of whether they can
// sign in. HR creates these ahead of onboarding; the profile resolver
// synthesizes one on first sign-in when none exists yet.
type Employee struct {
	ID         string
	Code       string // external identifier, generated for synthesized entries
	Email      string
	FullName   string
	Department string
	Position   string
	Status     EmployeeStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type EmployeeStatus string

const (
	EmployeeStatusActive   EmployeeStatus = "active"
	EmployeeStatusInactive EmployeeStatus = "inactive"
)

// PlaceholderField is used for department/position on synthesized employees.
const PlaceholderField = "Unassigned"

// Validate validates the employee for persistence. Returns an error describing the first validation failure.
func (e *Employee) Validate() error {
	if e.Email == "" {
		return errors.New("email is required")
	}
	if e.FullName == "" {
		return errors.New("full_name is required")
	}
	if e.Status == "" {
		e.Status = EmployeeStatusActive
	}
	return nil
}
