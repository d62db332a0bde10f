// Package authclient abstracts the hosted auth service: session retrieval,
// session-change notification, and sign-out. The rest of the pipeline only
// sees this interface; the gotrue subpackage talks to the real service.
package authclient

import (
	"context"
	"time"
)

// Identity is the external provider's principal for a signed-in user.
// Issued at sign-in, gone at sign-out, never persisted by this subsystem.
type Identity struct {
	ID    string
	Email string
}

// Session is the auth service's view of the current sign-in.
type Session struct {
	Identity    Identity
	AccessToken string
	ExpiresAt   time.Time
}

// Client is the auth collaborator consumed by the session observer and the
// identity state container.
type Client interface {
	// GetSession returns the current session, or (nil, nil) when signed out.
	// Errors indicate the auth service could not be reached.
	GetSession(ctx context.Context) (*Session, error)
	// OnSessionChange registers cb to be invoked with the new session (nil on
	// sign-out) whenever the session changes. The returned func unsubscribes.
	OnSessionChange(cb func(*Session)) (unsubscribe func())
	// SignOut ends the current session. The error is surfaced to the caller:
	// treating a failed sign-out as successful would leave privileged UI visible.
	SignOut(ctx context.Context) error
}
