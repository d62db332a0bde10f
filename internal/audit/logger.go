package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"opsdesk/backend/internal/audit/domain"
	auditrepo "opsdesk/backend/internal/audit/repository"
)

// Identity lifecycle actions recorded through the audit logger.
const (
	ActionProfileResolved    = "identity.profile_resolved"
	ActionSignedOut          = "identity.signed_out"
	ActionRoleOverride       = "identity.role_override"
	ActionInvitationSent     = "invitation.sent"
	ActionInvitationAccepted = "invitation.accepted"
)

// Recorder writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type Recorder interface {
	LogEvent(ctx context.Context, actorID, action, resource, metadata string)
}

// Logger implements Recorder using the audit repository.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns a Recorder that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, actorID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		Action:    action,
		Resource:  resource,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}
