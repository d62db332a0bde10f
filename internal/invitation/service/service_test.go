package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	accessdomain "opsdesk/backend/internal/access/domain"
	"opsdesk/backend/internal/invitation/domain"
)

type memInvitationRepo struct {
	mu      sync.Mutex
	m       map[string]*domain.Invitation
	failing bool
}

func newMemInvitationRepo() *memInvitationRepo {
	return &memInvitationRepo{m: make(map[string]*domain.Invitation)}
}

func (r *memInvitationRepo) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return nil, errors.New("db down")
	}
	return r.m[id], nil
}

func (r *memInvitationRepo) Create(ctx context.Context, i *domain.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("db down")
	}
	cp := *i
	r.m[i.ID] = &cp
	return nil
}

func (r *memInvitationRepo) MarkAccepted(ctx context.Context, id string, acceptedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("db down")
	}
	if inv, ok := r.m[id]; ok {
		inv.Status = domain.InvitationStatusAccepted
		inv.AcceptedAt = &acceptedAt
	}
	return nil
}

func TestSend(t *testing.T) {
	repo := newMemInvitationRepo()
	svc := NewService(repo, nil)

	inv, err := svc.Send(context.Background(), " New.Hire@Example.COM ", accessdomain.RoleMember)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if inv.ID == "" {
		t.Error("invitation id should be generated")
	}
	if inv.Email != "new.hire@example.com" {
		t.Errorf("email = %q, want normalized", inv.Email)
	}
	if inv.Status != domain.InvitationStatusPending {
		t.Errorf("status = %q, want pending", inv.Status)
	}
	if inv.RequestedAt.IsZero() {
		t.Error("requested_at should be set")
	}
	if repo.m[inv.ID] == nil {
		t.Error("invitation not persisted")
	}
}

func TestSend_InvalidEmail(t *testing.T) {
	svc := NewService(newMemInvitationRepo(), nil)
	if _, err := svc.Send(context.Background(), "not-an-email", accessdomain.RoleMember); err != ErrInvalidEmail {
		t.Errorf("err = %v, want ErrInvalidEmail", err)
	}
}

func TestSend_UnknownRoleNormalized(t *testing.T) {
	repo := newMemInvitationRepo()
	svc := NewService(repo, nil)
	inv, err := svc.Send(context.Background(), "a@x.com", "superuser")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if inv.Role != accessdomain.RoleMember {
		t.Errorf("role = %q, want normalized to member", inv.Role)
	}
}

// Backing-store failures surface to the caller: invitations are explicit
// operator actions, never silently degraded.
func TestSend_RepoError(t *testing.T) {
	repo := newMemInvitationRepo()
	repo.failing = true
	svc := NewService(repo, nil)
	if _, err := svc.Send(context.Background(), "a@x.com", accessdomain.RoleMember); err == nil {
		t.Fatal("Send must propagate repository errors")
	}
}

func TestAccept(t *testing.T) {
	repo := newMemInvitationRepo()
	svc := NewService(repo, nil)
	inv, err := svc.Send(context.Background(), "a@x.com", accessdomain.RoleAdmin)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := svc.Accept(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got.Status != domain.InvitationStatusAccepted || got.AcceptedAt == nil {
		t.Errorf("invitation = %+v, want accepted", got)
	}
	if repo.m[inv.ID].Status != domain.InvitationStatusAccepted {
		t.Error("accepted status not persisted")
	}

	if _, err := svc.Accept(context.Background(), inv.ID); err != ErrAlreadyAccepted {
		t.Errorf("second accept err = %v, want ErrAlreadyAccepted", err)
	}
}

func TestAccept_NotFound(t *testing.T) {
	svc := NewService(newMemInvitationRepo(), nil)
	if _, err := svc.Accept(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
