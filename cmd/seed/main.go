// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev admin (admin@example.com) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	accessdomain "opsdesk/backend/internal/access/domain"
	accessrepo "opsdesk/backend/internal/access/repository"
	"opsdesk/backend/internal/config"
	"opsdesk/backend/internal/db"
	employeedomain "opsdesk/backend/internal/employee/domain"
	employeerepo "opsdesk/backend/internal/employee/repository"
	invitationdomain "opsdesk/backend/internal/invitation/domain"
	invitationrepo "opsdesk/backend/internal/invitation/repository"
)

const (
	devAdminEmail  = "admin@example.com"
	devAdminAuthID = "dev-auth-admin-001"
	devMemberEmail = "member@example.com"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	employees := employeerepo.NewPostgresRepository(conn)
	access := accessrepo.NewPostgresRepository(conn)
	invitations := invitationrepo.NewPostgresRepository(conn)

	ctx := context.Background()

	existing, err := employees.GetByEmail(ctx, devAdminEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (admin@example.com exists). Skipping.")
		os.Exit(0)
	}

	now := time.Now().UTC()

	admin := &employeedomain.Employee{
		ID:         uuid.NewString(),
		Code:       "EMP-0001",
		Email:      devAdminEmail,
		FullName:   "Dev Admin",
		Department: "Operations",
		Position:   "Administrator",
		Status:     employeedomain.EmployeeStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := employees.Create(ctx, admin); err != nil {
		log.Fatalf("create admin employee: %v", err)
	}

	member := &employeedomain.Employee{
		ID:         uuid.NewString(),
		Code:       "EMP-0002",
		Email:      devMemberEmail,
		FullName:   "Dev Member",
		Department: "Support",
		Position:   "Agent",
		Status:     employeedomain.EmployeeStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := employees.Create(ctx, member); err != nil {
		log.Fatalf("create member employee: %v", err)
	}

	adminID := admin.ID
	if err := access.Upsert(ctx, &accessdomain.AccessRecord{
		AuthID:     devAdminAuthID,
		EmployeeID: &adminID,
		Email:      devAdminEmail,
		Role:       accessdomain.RoleAdmin,
		Status:     accessdomain.AccessStatusActive,
		FullName:   admin.FullName,
		Department: admin.Department,
		Position:   admin.Position,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		log.Fatalf("create admin access record: %v", err)
	}

	// The member gets an invitation but no access record yet; the resolver
	// bootstraps one on their first sign-in.
	if err := invitations.Create(ctx, &invitationdomain.Invitation{
		ID:          uuid.NewString(),
		Email:       devMemberEmail,
		Role:        accessdomain.RoleMember,
		Status:      invitationdomain.InvitationStatusPending,
		RequestedAt: now,
	}); err != nil {
		log.Fatalf("create invitation: %v", err)
	}

	log.Println("Seed complete.")
}
