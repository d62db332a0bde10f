package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"opsdesk/backend/internal/audit/domain"
)

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
	failing bool
}

func (r *memAuditRepo) Create(ctx context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("db down")
	}
	r.entries = append(r.entries, a)
	return nil
}

func (r *memAuditRepo) ListRecent(ctx context.Context, limit int32) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries, nil
}

func TestLogger_LogEvent(t *testing.T) {
	repo := &memAuditRepo{}
	l := NewLogger(repo)

	l.LogEvent(context.Background(), "u1", ActionProfileResolved, "profile/u1", "path=direct")

	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.ID == "" {
		t.Error("entry ID should be generated")
	}
	if e.ActorID != "u1" || e.Action != ActionProfileResolved || e.Resource != "profile/u1" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestLogger_BestEffort(t *testing.T) {
	repo := &memAuditRepo{failing: true}
	l := NewLogger(repo)

	// Must not panic or surface the repository error.
	l.LogEvent(context.Background(), "u1", ActionSignedOut, "session", "")

	var nilLogger *Logger
	nilLogger.LogEvent(context.Background(), "u1", ActionSignedOut, "session", "")
}
