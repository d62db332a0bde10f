package repository

import (
	"context"
	"database/sql"
	"errors"

	"opsdesk/backend/internal/access/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an access record repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByAuthID returns the access record for the auth identity, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByAuthID(ctx context.Context, authID string) (*domain.AccessRecord, error) {
	var (
		rec domain.AccessRecord
		eid sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT auth_id, employee_id, email, role, status, full_name, department, position, created_at, updated_at
		FROM app_users
		WHERE auth_id = $1
	`, authID).Scan(
		&rec.AuthID, &eid, &rec.Email, &rec.Role, &rec.Status,
		&rec.FullName, &rec.Department, &rec.Position, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if eid.Valid {
		rec.EmployeeID = &eid.String
	}
	return &rec, nil
}

// Upsert inserts the record or overwrites the existing row for the same auth
// identity. Retry-safe: the resolver may re-run after a partial failure.
func (r *PostgresRepository) Upsert(ctx context.Context, a *domain.AccessRecord) error {
	eid := sql.NullString{}
	if a.EmployeeID != nil {
		eid = sql.NullString{String: *a.EmployeeID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_users (auth_id, employee_id, email, role, status, full_name, department, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (auth_id) DO UPDATE SET
			employee_id = EXCLUDED.employee_id,
			email       = EXCLUDED.email,
			role        = EXCLUDED.role,
			status      = EXCLUDED.status,
			full_name   = EXCLUDED.full_name,
			department  = EXCLUDED.department,
			position    = EXCLUDED.position,
			updated_at  = EXCLUDED.updated_at
	`,
		a.AuthID, eid, a.Email, a.Role, a.Status,
		a.FullName, a.Department, a.Position, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// LinkEmployee points employee_id at employeeID for the given auth identity.
// Repeating the same link is a no-op, so the repair path can be retried.
func (r *PostgresRepository) LinkEmployee(ctx context.Context, authID, employeeID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE app_users
		SET employee_id = $2, updated_at = now()
		WHERE auth_id = $1
	`, authID, employeeID)
	return err
}
