package repository

import (
	"context"

	"opsdesk/backend/internal/access/domain"
)

// Repository defines persistence for access records.
type Repository interface {
	GetByAuthID(ctx context.Context, authID string) (*domain.AccessRecord, error)
	// Upsert inserts the record or, when a record for the same auth identity
	// already exists, overwrites its mutable fields. Safe to retry.
	Upsert(ctx context.Context, a *domain.AccessRecord) error
	// LinkEmployee points the record's employee_id at employeeID. Idempotent:
	// linking to the already-linked employee is a no-op.
	LinkEmployee(ctx context.Context, authID, employeeID string) error
}
