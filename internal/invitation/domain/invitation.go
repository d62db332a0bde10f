package domain

import (
	"errors"
	"time"

	accessdomain "opsdesk/backend/internal/access/domain"
)

// Invitation is a pending access request: an inviter records an email and the
// role it should receive; accepting flips the status. Invitations seed the
// access records the profile resolver reads, but the resolver never writes them.
type Invitation struct {
	ID          string
	Email       string
	Role        accessdomain.Role
	Status      InvitationStatus
	RequestedAt time.Time
	AcceptedAt  *time.Time
}

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
)

// Validate validates the invitation for persistence. Returns an error describing the first validation failure.
func (i *Invitation) Validate() error {
	if i.Email == "" {
		return errors.New("email is required")
	}
	if i.Role == "" {
		return errors.New("role is required")
	}
	if i.Status == "" {
		i.Status = InvitationStatusPending
	}
	return nil
}
