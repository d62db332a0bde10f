// Package identitystate holds the process-wide identity state the rest of the
// dashboard reads: current identity, resolved profile, effective role, and the
// loading/ready lifecycle flags. The container is constructed and injected
// explicitly so its cache and de-duplication behavior are testable in isolation.
package identitystate

import (
	"context"
	"sync"

	accessdomain "opsdesk/backend/internal/access/domain"
	"opsdesk/backend/internal/audit"
	"opsdesk/backend/internal/authclient"
	profiledomain "opsdesk/backend/internal/profile/domain"
	"opsdesk/backend/internal/session"
)

// Resolver is the profile resolver consumed by the container.
type Resolver interface {
	Resolve(ctx context.Context, id authclient.Identity) *profiledomain.Profile
	Refresh(ctx context.Context, id authclient.Identity) *profiledomain.Profile
}

// Cache is the slice of the resolution cache the container needs: full
// invalidation on sign-out.
type Cache interface {
	Clear()
}

// Snapshot is a point-in-time copy of the identity state.
type Snapshot struct {
	Identity *authclient.Identity
	Profile  *profiledomain.Profile
	Role     accessdomain.Role
	// Loading is true until the first session check completes.
	Loading bool
	// Ready flips to true when the first session check settles, whether or not
	// profile resolution has finished; Role holds the low-privilege default
	// until it does.
	Ready bool
}

// Container owns the identity state and its mutation surface. State is written
// only from the session observer's events and the resolver's completion; all
// other components read snapshots.
type Container struct {
	auth        authclient.Client
	resolver    Resolver
	cache       Cache
	audit       audit.Recorder
	defaultRole accessdomain.Role

	mu       sync.Mutex
	identity *authclient.Identity
	profile  *profiledomain.Profile
	role     accessdomain.Role
	loading  bool
	ready    bool
	// gen increments on sign-out and teardown; a resolution carries the gen it
	// started under and is discarded if the world moved on before it finished.
	gen uint64

	observer *session.Observer
	ctx      context.Context
	cancel   context.CancelFunc
}

// New returns a container in the initial loading state. auditLogger may be nil.
func New(auth authclient.Client, resolver Resolver, cache Cache, defaultRole accessdomain.Role, auditLogger audit.Recorder) *Container {
	return &Container{
		auth:        auth,
		resolver:    resolver,
		cache:       cache,
		audit:       auditLogger,
		defaultRole: accessdomain.NormalizeRole(defaultRole),
		role:        accessdomain.NormalizeRole(defaultRole),
		loading:     true,
	}
}

// Start begins observing the session. The container runs until ctx is
// cancelled or Close is called.
func (c *Container) Start(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.observer = session.NewObserver(c.auth, c.handleSession)
	c.observer.Start(c.ctx)
}

// Close tears the container down: the observer unsubscribes and any in-flight
// resolution result is discarded.
func (c *Container) Close() {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
	if c.observer != nil {
		c.observer.Stop()
	}
	if c.cancel != nil {
		c.cancel()
	}
}

// Snapshot returns a copy of the current state.
func (c *Container) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Identity: c.identity,
		Profile:  c.profile,
		Role:     c.role,
		Loading:  c.loading,
		Ready:    c.ready,
	}
}

// handleSession is the observer's emit callback. It settles the lifecycle
// flags immediately and resolves the profile in the background so the first
// paint never waits on a database round trip.
func (c *Container) handleSession(s *authclient.Session) {
	c.mu.Lock()
	c.loading = false
	c.ready = true
	if s == nil {
		c.identity = nil
		c.profile = nil
		c.role = c.defaultRole
		c.mu.Unlock()
		return
	}
	id := s.Identity
	c.identity = &id
	gen := c.gen
	c.mu.Unlock()

	go func() {
		p := c.resolver.Resolve(c.ctx, id)
		c.publish(gen, id.ID, p)
	}()
}

// publish installs a resolution result unless the state it was computed for is
// gone (signed out, different identity, or container closed).
func (c *Container) publish(gen uint64, authID string, p *profiledomain.Profile) {
	if p == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.identity == nil || c.identity.ID != authID {
		return
	}
	if c.ctx != nil && c.ctx.Err() != nil {
		return
	}
	c.profile = p
	c.role = accessdomain.NormalizeRole(p.Role)
}

// SignOut ends the session at the auth service and clears identity, profile,
// role, and the resolution cache. The auth service's error is returned to the
// caller: a sign-out that silently failed would leave privileged UI visible.
func (c *Container) SignOut(ctx context.Context) error {
	var actor string
	if s := c.Snapshot(); s.Identity != nil {
		actor = s.Identity.ID
	}
	if err := c.auth.SignOut(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	c.gen++
	c.identity = nil
	c.profile = nil
	c.role = c.defaultRole
	c.loading = false
	c.ready = true
	c.mu.Unlock()
	c.cache.Clear()
	if c.audit != nil {
		c.audit.LogEvent(ctx, actor, audit.ActionSignedOut, "session", "")
	}
	return nil
}

// RefreshProfile re-runs resolution for the current identity and republishes
// the result. No-op when signed out.
func (c *Container) RefreshProfile(ctx context.Context) {
	c.mu.Lock()
	if c.identity == nil {
		c.mu.Unlock()
		return
	}
	id := *c.identity
	gen := c.gen
	c.mu.Unlock()

	p := c.resolver.Refresh(ctx, id)
	c.publish(gen, id.ID, p)
}

// SetRoleOverride replaces the effective role directly, bypassing persistence.
// Operator/debugging affordance only; the next resolution overwrites it.
func (c *Container) SetRoleOverride(role accessdomain.Role) {
	c.mu.Lock()
	c.role = accessdomain.NormalizeRole(role)
	actor := ""
	if c.identity != nil {
		actor = c.identity.ID
	}
	c.mu.Unlock()
	if c.audit != nil {
		c.audit.LogEvent(context.Background(), actor, audit.ActionRoleOverride, "role", string(role))
	}
}
