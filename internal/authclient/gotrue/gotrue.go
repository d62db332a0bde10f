// Package gotrue implements authclient.Client against a GoTrue-compatible
// hosted auth API (token refresh, logout). Session-change notification is
// polling-based: the API has no push channel.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"opsdesk/backend/internal/authclient"
)

const defaultTimeout = 15 * time.Second

// refreshSkew renews the access token slightly before it expires so callers
// never hold a token that dies mid-request.
const refreshSkew = 30 * time.Second

// Client talks to a GoTrue-compatible auth API and caches the current token pair.
type Client struct {
	BaseURL      string
	APIKey       string
	HTTPClient   *http.Client
	pollInterval time.Duration
	jwtSecret    []byte

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time

	subMu    sync.Mutex
	subs     map[int]func(*authclient.Session)
	nextSub  int
	stopPoll chan struct{}
	lastID   string
	notified bool
}

// NewClient returns a client for the auth API at baseURL. refreshToken seeds
// the first session; jwtSecret is the HS256 secret access tokens are signed with.
func NewClient(baseURL, apiKey, jwtSecret, refreshToken string, pollInterval time.Duration) *Client {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &Client{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		HTTPClient:   &http.Client{Timeout: defaultTimeout},
		pollInterval: pollInterval,
		jwtSecret:    []byte(jwtSecret),
		refreshToken: refreshToken,
		subs:         make(map[int]func(*authclient.Session)),
	}
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// GetSession returns the current session, refreshing the access token when it
// is missing or close to expiry. Returns (nil, nil) when there is no session.
func (c *Client) GetSession(ctx context.Context) (*authclient.Session, error) {
	c.mu.Lock()
	tok, exp := c.accessToken, c.expiresAt
	c.mu.Unlock()

	if tok != "" && time.Until(exp) > refreshSkew {
		if sess, err := c.sessionFromToken(tok, exp); err == nil {
			return sess, nil
		}
		// Unreadable cached token: fall through and refresh.
	}
	return c.refresh(ctx)
}

func (c *Client) sessionFromToken(tok string, exp time.Time) (*authclient.Session, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return c.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return &authclient.Session{
		Identity:    authclient.Identity{ID: claims.Subject, Email: claims.Email},
		AccessToken: tok,
		ExpiresAt:   exp,
	}, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// refresh exchanges the stored refresh token for a new token pair.
// A rejected refresh token means the session is gone: (nil, nil).
func (c *Client) refresh(ctx context.Context) (*authclient.Session, error) {
	c.mu.Lock()
	rt := c.refreshToken
	c.mu.Unlock()
	if rt == "" {
		return nil, nil
	}

	raw, err := json.Marshal(map[string]string{"refresh_token": rt})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/token?grant_type=refresh_token", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Refresh token revoked or expired: signed out.
		c.clearTokens()
		return nil, nil
	default:
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("auth: token refresh failed status=%d body=%s", resp.StatusCode, string(b))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("auth: decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, errors.New("auth: token response missing access_token")
	}

	exp := time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	c.mu.Lock()
	c.accessToken = tr.AccessToken
	if tr.RefreshToken != "" {
		c.refreshToken = tr.RefreshToken
	}
	c.expiresAt = exp
	c.mu.Unlock()

	sess := &authclient.Session{
		Identity:    authclient.Identity{ID: tr.User.ID, Email: tr.User.Email},
		AccessToken: tr.AccessToken,
		ExpiresAt:   exp,
	}
	if sess.Identity.ID == "" {
		// Some deployments omit the user object; fall back to token claims.
		if fromTok, err := c.sessionFromToken(tr.AccessToken, exp); err == nil {
			sess = fromTok
		}
	}
	return sess, nil
}

// SignOut revokes the session at the auth service and drops cached tokens.
// The error is returned to the caller; local state is only cleared on success.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	tok := c.accessToken
	c.mu.Unlock()

	if tok != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/logout", nil)
		if err != nil {
			return err
		}
		req.Header.Set("apikey", c.APIKey)
		req.Header.Set("Authorization", "Bearer "+tok)

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		// 401 means the session is already gone, which is what we wanted.
		if resp.StatusCode >= 300 && resp.StatusCode != http.StatusUnauthorized {
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("auth: logout failed status=%d body=%s", resp.StatusCode, string(b))
		}
	}

	c.clearTokens()
	c.notify(nil)
	return nil
}

func (c *Client) clearTokens() {
	c.mu.Lock()
	c.accessToken = ""
	c.refreshToken = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

// OnSessionChange registers cb for session changes. The first subscriber
// starts the polling loop; the last unsubscribe stops it.
func (c *Client) OnSessionChange(cb func(*authclient.Session)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = cb
	if c.stopPoll == nil {
		c.stopPoll = make(chan struct{})
		go c.pollLoop(c.stopPoll)
	}
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		if len(c.subs) == 0 && c.stopPoll != nil {
			close(c.stopPoll)
			c.stopPoll = nil
		}
		c.subMu.Unlock()
	}
}

func (c *Client) pollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			sess, err := c.GetSession(ctx)
			cancel()
			if err != nil {
				continue // transient; next tick retries
			}
			c.notifyIfChanged(sess)
		}
	}
}

func (c *Client) notifyIfChanged(sess *authclient.Session) {
	id := ""
	if sess != nil {
		id = sess.Identity.ID
	}
	c.subMu.Lock()
	changed := !c.notified || id != c.lastID
	c.lastID = id
	c.notified = true
	c.subMu.Unlock()
	if changed {
		c.notify(sess)
	}
}

func (c *Client) notify(sess *authclient.Session) {
	c.subMu.Lock()
	cbs := make([]func(*authclient.Session), 0, len(c.subs))
	for _, cb := range c.subs {
		cbs = append(cbs, cb)
	}
	if sess == nil {
		c.lastID = ""
		c.notified = true
	}
	c.subMu.Unlock()
	for _, cb := range cbs {
		cb(sess)
	}
}
