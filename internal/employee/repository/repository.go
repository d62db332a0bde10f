package repository

import (
	"context"

	"opsdesk/backend/internal/employee/domain"
)

// Repository defines persistence for employees.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Employee, error)
	GetByEmail(ctx context.Context, email string) (*domain.Employee, error)
	Create(ctx context.Context, e *domain.Employee) error
}
