package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"opsdesk/backend/internal/invitation/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an invitation repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the invitation for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	var (
		inv domain.Invitation
		at  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, role, status, requested_at, accepted_at
		FROM invitations
		WHERE id = $1
	`, id).Scan(&inv.ID, &inv.Email, &inv.Role, &inv.Status, &inv.RequestedAt, &at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if at.Valid {
		inv.AcceptedAt = &at.Time
	}
	return &inv, nil
}

// Create persists the invitation to the database. The invitation must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Invitation) error {
	at := sql.NullTime{}
	if i.AcceptedAt != nil {
		at = sql.NullTime{Time: *i.AcceptedAt, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invitations (id, email, role, status, requested_at, accepted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, i.ID, i.Email, i.Role, i.Status, i.RequestedAt, at)
	return err
}

// MarkAccepted sets the invitation's status to accepted. Returns an error if the update fails.
func (r *PostgresRepository) MarkAccepted(ctx context.Context, id string, acceptedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE invitations
		SET status = $2, accepted_at = $3
		WHERE id = $1
	`, id, domain.InvitationStatusAccepted, acceptedAt)
	return err
}
