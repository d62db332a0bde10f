// Package session watches the auth service for the current session and
// translates its presence or absence into identity lifecycle events.
package session

import (
	"context"
	"log"
	"sync/atomic"

	"opsdesk/backend/internal/authclient"
)

// Observer performs the initial session check and subscribes to session-change
// notifications. Every event is delivered through a single emit callback: a
// session for sign-in, nil for sign-out. Emission stops once the observer's
// context is done, so a torn-down owner never sees a late event.
type Observer struct {
	auth authclient.Client
	emit func(*authclient.Session)

	checking atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	unsub    func()
}

// NewObserver returns an observer that reports session events to emit.
func NewObserver(auth authclient.Client, emit func(*authclient.Session)) *Observer {
	return &Observer{auth: auth, emit: emit}
}

// Start subscribes to session changes and kicks off the initial session check
// in the background. The observer stops when ctx is cancelled or Stop is called.
func (o *Observer) Start(ctx context.Context) {
	o.ctx, o.cancel = context.WithCancel(ctx)
	o.unsub = o.auth.OnSessionChange(func(s *authclient.Session) {
		o.deliver(normalize(s))
	})
	go o.CheckSession()
}

// CheckSession fetches the current session once and emits the result. A call
// while a previous check is still running is a no-op, so overlapping
// initialization cannot double-resolve. A fetch failure settles the observer
// as signed out instead of retrying, so the UI never waits indefinitely.
func (o *Observer) CheckSession() {
	if !o.checking.CompareAndSwap(false, true) {
		return
	}
	defer o.checking.Store(false)

	sess, err := o.auth.GetSession(o.ctx)
	if err != nil {
		log.Printf("session: initial session fetch failed: %v", err)
		sess = nil
	}
	o.deliver(normalize(sess))
}

// Stop unsubscribes from session-change notifications and suppresses any
// event still in flight.
func (o *Observer) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	if o.unsub != nil {
		o.unsub()
		o.unsub = nil
	}
}

func (o *Observer) deliver(s *authclient.Session) {
	if o.ctx != nil && o.ctx.Err() != nil {
		return
	}
	o.emit(s)
}

// normalize treats a session without an identity email as signed out: a
// principal the resolver cannot act on is indistinguishable from no principal.
func normalize(s *authclient.Session) *authclient.Session {
	if s == nil || s.Identity.ID == "" || s.Identity.Email == "" {
		return nil
	}
	return s
}
