package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	accessdomain "opsdesk/backend/internal/access/domain"
	"opsdesk/backend/internal/audit"
	"opsdesk/backend/internal/invitation/domain"
)

// Sentinel errors for the invitation service; the HTTP handler maps them to status codes.
var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrNotFound        = errors.New("invitation not found")
	ErrAlreadyAccepted = errors.New("invitation already accepted")
)

// InvitationRepo is the minimal invitation repository needed by the service.
type InvitationRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Invitation, error)
	Create(ctx context.Context, i *domain.Invitation) error
	MarkAccepted(ctx context.Context, id string, acceptedAt time.Time) error
}

// Service implements sending and accepting invitations. Unlike profile
// resolution, these are explicit operator actions: backing-store errors are
// returned to the caller, never swallowed.
type Service struct {
	repo  InvitationRepo
	audit audit.Recorder
	nowF  func() time.Time
}

// NewService returns an invitation service. auditLogger may be nil.
func NewService(repo InvitationRepo, auditLogger audit.Recorder) *Service {
	return &Service{repo: repo, audit: auditLogger, nowF: func() time.Time { return time.Now().UTC() }}
}

// Send creates a pending invitation for email with the given role.
// The role is normalized; an unparseable email returns ErrInvalidEmail.
func (s *Service) Send(ctx context.Context, email string, role accessdomain.Role) (*domain.Invitation, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	inv := &domain.Invitation{
		ID:          uuid.New().String(),
		Email:       email,
		Role:        accessdomain.NormalizeRole(role),
		Status:      domain.InvitationStatusPending,
		RequestedAt: s.nowF(),
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.LogEvent(ctx, "", audit.ActionInvitationSent, "invitation/"+inv.ID, inv.Email)
	}
	return inv, nil
}

// Accept marks the invitation as accepted. Returns ErrNotFound for an unknown
// id and ErrAlreadyAccepted when the invitation was accepted before.
func (s *Service) Accept(ctx context.Context, id string) (*domain.Invitation, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrNotFound
	}
	if inv.Status == domain.InvitationStatusAccepted {
		return nil, ErrAlreadyAccepted
	}
	at := s.nowF()
	if err := s.repo.MarkAccepted(ctx, id, at); err != nil {
		return nil, err
	}
	inv.Status = domain.InvitationStatusAccepted
	inv.AcceptedAt = &at
	if s.audit != nil {
		s.audit.LogEvent(ctx, "", audit.ActionInvitationAccepted, "invitation/"+inv.ID, inv.Email)
	}
	return inv, nil
}
