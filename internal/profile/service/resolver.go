package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	accessdomain "opsdesk/backend/internal/access/domain"
	"opsdesk/backend/internal/audit"
	"opsdesk/backend/internal/authclient"
	employeedomain "opsdesk/backend/internal/employee/domain"
	"opsdesk/backend/internal/profile"
	"opsdesk/backend/internal/profile/domain"
)

// Resolution paths, recorded on the trace span and in the audit trail.
const (
	pathDirect    = "direct"
	pathRepair    = "repair"
	pathBootstrap = "bootstrap"
	pathFallback  = "fallback"
)

// EmployeeRepo is the minimal employee repository needed by the resolver.
type EmployeeRepo interface {
	GetByID(ctx context.Context, id string) (*employeedomain.Employee, error)
	GetByEmail(ctx context.Context, email string) (*employeedomain.Employee, error)
	Create(ctx context.Context, e *employeedomain.Employee) error
}

// AccessRepo is the minimal access record repository needed by the resolver.
type AccessRepo interface {
	GetByAuthID(ctx context.Context, authID string) (*accessdomain.AccessRecord, error)
	Upsert(ctx context.Context, a *accessdomain.AccessRecord) error
	LinkEmployee(ctx context.Context, authID, employeeID string) error
}

// Resolver turns an authenticated identity into a Profile. It never returns
// an error: every backing-store failure degrades to the next resolution path,
// ending at an in-memory fallback profile, because identity resolution must
// not block use of the application.
type Resolver struct {
	employees   EmployeeRepo
	access      AccessRepo
	cache       *profile.Cache
	admins      map[string]struct{}
	adminName   string
	defaultRole accessdomain.Role
	audit       audit.Recorder
	tracer      trace.Tracer
	group       singleflight.Group
	nowF        func() time.Time
}

// NewResolver returns a Resolver. bootstrapAdmins are the addresses granted
// the admin role on first sign-in when no access record exists; adminName is
// the full name given to an employee synthesized for one of them. auditLogger
// may be nil.
func NewResolver(
	employees EmployeeRepo,
	access AccessRepo,
	cache *profile.Cache,
	bootstrapAdmins []string,
	adminName string,
	defaultRole accessdomain.Role,
	auditLogger audit.Recorder,
) *Resolver {
	admins := make(map[string]struct{}, len(bootstrapAdmins))
	for _, a := range bootstrapAdmins {
		admins[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	return &Resolver{
		employees:   employees,
		access:      access,
		cache:       cache,
		admins:      admins,
		adminName:   adminName,
		defaultRole: accessdomain.NormalizeRole(defaultRole),
		audit:       auditLogger,
		tracer:      otel.Tracer("opsdesk/profile"),
		nowF:        func() time.Time { return time.Now().UTC() },
	}
}

// Resolve returns the profile for the identity, from cache when possible.
// Concurrent calls for the same identity share one backing-store round trip.
func (r *Resolver) Resolve(ctx context.Context, id authclient.Identity) *domain.Profile {
	if p, ok := r.cache.Get(id.ID); ok {
		return p
	}
	v, _, _ := r.group.Do(id.ID, func() (any, error) {
		return r.resolveAndStore(ctx, id), nil
	})
	return v.(*domain.Profile)
}

// Refresh re-runs resolution for the identity, bypassing the cache read. The
// fresh result replaces any cached entry.
func (r *Resolver) Refresh(ctx context.Context, id authclient.Identity) *domain.Profile {
	v, _, _ := r.group.Do(id.ID, func() (any, error) {
		return r.resolveAndStore(ctx, id), nil
	})
	return v.(*domain.Profile)
}

func (r *Resolver) resolveAndStore(ctx context.Context, id authclient.Identity) *domain.Profile {
	ctx, span := r.tracer.Start(ctx, "profile.resolve")
	defer span.End()

	p, path := r.resolve(ctx, id)
	span.SetAttributes(
		attribute.String("identity.id", id.ID),
		attribute.String("profile.resolve_path", path),
		attribute.String("profile.role", string(p.Role)),
	)

	// Fallback profiles are not cached: the next attempt should retry the store.
	if path != pathFallback {
		r.cache.Put(id.ID, p)
	}
	if r.audit != nil {
		r.audit.LogEvent(ctx, id.ID, audit.ActionProfileResolved, "profile/"+id.ID, "path="+path)
	}
	return p
}

func (r *Resolver) resolve(ctx context.Context, id authclient.Identity) (*domain.Profile, string) {
	acc, accErr := r.access.GetByAuthID(ctx, id.ID)
	if accErr != nil {
		log.Printf("profile: access lookup failed for %s: %v", id.ID, accErr)
	}

	if acc != nil && acc.Role != "" {
		// Direct path: role comes from the access record, descriptive fields
		// from the linked employee.
		if acc.EmployeeID != nil {
			emp, err := r.employees.GetByID(ctx, *acc.EmployeeID)
			if err != nil {
				log.Printf("profile: employee lookup failed for %s: %v", *acc.EmployeeID, err)
			}
			if emp != nil {
				return r.merge(acc, emp, id), pathDirect
			}
		}

		// Repair path: employee link is missing or dangling. Re-link by email.
		emp, err := r.employees.GetByEmail(ctx, id.Email)
		if err != nil {
			log.Printf("profile: employee email lookup failed for %s: %v", id.ID, err)
		}
		if emp != nil {
			if err := r.access.LinkEmployee(ctx, acc.AuthID, emp.ID); err != nil {
				// The link write failed but both halves are known; the profile
				// is still correct and the next resolution retries the write.
				log.Printf("profile: employee relink failed for %s: %v", id.ID, err)
			}
			return r.merge(acc, emp, id), pathRepair
		}
	}

	// Bootstrap path: no usable access record, or a record whose person is
	// gone entirely. Create the missing employee, then upsert the access
	// record. An existing role always wins over the bootstrap branching.
	role := r.defaultRole
	if r.isBootstrapAdmin(id.Email) {
		role = accessdomain.RoleAdmin
	}
	if acc != nil && acc.Role != "" {
		role = acc.Role
	}

	emp, err := r.employees.GetByEmail(ctx, id.Email)
	if err != nil {
		log.Printf("profile: employee email lookup failed for %s: %v", id.ID, err)
		return r.fallback(id, role), pathFallback
	}
	now := r.nowF()
	if emp == nil {
		emp = &employeedomain.Employee{
			ID:         uuid.New().String(),
			Code:       uuid.New().String(),
			Email:      id.Email,
			FullName:   r.synthesizedName(id.Email, role),
			Department: employeedomain.PlaceholderField,
			Position:   employeedomain.PlaceholderField,
			Status:     employeedomain.EmployeeStatusActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := r.employees.Create(ctx, emp); err != nil {
			log.Printf("profile: employee create failed for %s: %v", id.ID, err)
			return r.fallback(id, role), pathFallback
		}
	}

	newAcc := &accessdomain.AccessRecord{
		AuthID:     id.ID,
		EmployeeID: &emp.ID,
		Email:      id.Email,
		Role:       role,
		Status:     accessdomain.AccessStatusActive,
		FullName:   emp.FullName,
		Department: emp.Department,
		Position:   emp.Position,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.access.Upsert(ctx, newAcc); err != nil {
		log.Printf("profile: access upsert failed for %s: %v", id.ID, err)
		return r.fallback(id, role), pathFallback
	}
	return r.merge(newAcc, emp, id), pathBootstrap
}

// merge builds the profile the UI consumes: authorization fields from the
// access record (the source of truth for role), descriptive fields from the
// employee, email from the live session to avoid staleness.
func (r *Resolver) merge(acc *accessdomain.AccessRecord, emp *employeedomain.Employee, id authclient.Identity) *domain.Profile {
	return &domain.Profile{
		ID:         emp.ID,
		AuthID:     id.ID,
		Email:      id.Email,
		Role:       accessdomain.NormalizeRole(acc.Role),
		Status:     acc.Status,
		FullName:   emp.FullName,
		Department: emp.Department,
		Position:   emp.Position,
	}
}

// fallback synthesizes an in-memory-only profile with a generated id. Never
// written back; it exists so the UI stays usable with a best-guess role.
func (r *Resolver) fallback(id authclient.Identity, role accessdomain.Role) *domain.Profile {
	return &domain.Profile{
		ID:          uuid.New().String(),
		AuthID:      id.ID,
		Email:       id.Email,
		Role:        accessdomain.NormalizeRole(role),
		Status:      accessdomain.AccessStatusActive,
		FullName:    r.synthesizedName(id.Email, role),
		Department:  employeedomain.PlaceholderField,
		Position:    employeedomain.PlaceholderField,
		Synthesized: true,
	}
}

func (r *Resolver) synthesizedName(email string, role accessdomain.Role) string {
	if role == accessdomain.RoleAdmin && r.adminName != "" {
		return r.adminName
	}
	return localPart(email)
}

func (r *Resolver) isBootstrapAdmin(email string) bool {
	_, ok := r.admins[strings.ToLower(email)]
	return ok
}

// localPart returns the text before "@", the default full name for a
// synthesized employee.
func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
