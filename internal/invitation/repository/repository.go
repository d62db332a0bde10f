package repository

import (
	"context"
	"time"

	"opsdesk/backend/internal/invitation/domain"
)

// Repository defines persistence for invitations.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Invitation, error)
	Create(ctx context.Context, i *domain.Invitation) error
	MarkAccepted(ctx context.Context, id string, acceptedAt time.Time) error
}
