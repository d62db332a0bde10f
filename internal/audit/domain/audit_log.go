package domain

import "time"

// AuditLog is one identity-lifecycle event: a profile resolution, sign-out,
// role override, or invitation action.
type AuditLog struct {
	ID        string
	ActorID   string // auth identity id; empty for system/anonymous events
	Action    string
	Resource  string
	Metadata  string
	CreatedAt time.Time
}
