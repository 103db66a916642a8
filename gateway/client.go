package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Dosada05/association-portal/models"
)

// refreshTimeout bounds a token refresh independently of the request
// that triggered it.
const refreshTimeout = 15 * time.Second

// Event names the auth-state transition a listener is told about.
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
	EventUserUpdated    Event = "USER_UPDATED"
)

// Listener receives the new session (nil after sign-out).
type Listener func(event Event, session *models.Session)

type listenerEntry struct {
	id int
	fn Listener
}

// Client is the gateway bound to one client instance. It owns that
// instance's tokens and notifies listeners on every auth-state change.
type Client struct {
	svc *Service

	mu        sync.Mutex
	tokens    Tokens
	session   *models.Session
	claims    json.RawMessage
	listeners []listenerEntry
	nextID    int

	refresh singleflight.Group
}

var _ Querier = (*Client)(nil)

// Tokens returns the tokens to persist for this client instance.
func (c *Client) Tokens() Tokens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

// OnAuthStateChange registers l and returns its disposer. Listeners run
// synchronously, in registration order, outside the client's lock.
func (c *Client) OnAuthStateChange(l Listener) (dispose func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: l})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, entry := range c.listeners {
				if entry.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// ListenerCount is the number of active auth-state subscriptions.
func (c *Client) ListenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

func (c *Client) emit(event Event, s *models.Session) {
	c.mu.Lock()
	listeners := make([]listenerEntry, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, entry := range listeners {
		entry.fn(event, s)
	}
}

// GetCurrentSession returns the session for the held tokens, refreshing an
// expired access token on the way. It returns (nil, nil) when there is no
// session and an ErrAuthUnavailable-wrapped error when the auth API cannot
// be reached.
func (c *Client) GetCurrentSession(ctx context.Context) (*models.Session, error) {
	c.mu.Lock()
	tokens := c.tokens
	cached := c.session
	c.mu.Unlock()

	if tokens.AccessToken == "" && tokens.RefreshToken == "" {
		return nil, nil
	}
	if cached != nil && cached.AccessToken == tokens.AccessToken && !cached.Expired(c.svc.now()) {
		return cached, nil
	}

	if tokens.AccessToken != "" {
		sess, claims, err := c.svc.confirm(ctx, tokens)
		switch {
		case err == nil:
			return c.adopt(tokens, sess, claims), nil
		case errors.Is(err, ErrTokenExpired):
			// refresh below
		case errors.Is(err, ErrInvalidToken):
			c.svc.logger.Warn("discarding invalid access token", "error", err)
			c.drop(tokens)
			return nil, nil
		default:
			return nil, err
		}
	}
	return c.refreshSession(ctx, tokens)
}

// adopt caches a confirmed session unless the tokens changed meanwhile.
func (c *Client) adopt(tokens Tokens, sess *models.Session, claims json.RawMessage) *models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens != tokens {
		return c.session
	}
	c.session = sess
	c.claims = claims
	return sess
}

func (c *Client) refreshSession(ctx context.Context, tokens Tokens) (*models.Session, error) {
	if tokens.RefreshToken == "" {
		c.drop(tokens)
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The grant outlives the caller that started it: refresh tokens are
	// single-use, and other callers may be waiting on the same one.
	ch := c.refresh.DoChan(tokens.RefreshToken, func() (interface{}, error) {
		grantCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		resp, err := c.svc.grant(grantCtx, "refresh_token", map[string]string{"refresh_token": tokens.RefreshToken})
		if err != nil {
			return nil, err
		}
		sess := c.svc.session(resp)
		c.install(sess, EventTokenRefreshed)
		return sess, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	v, err := res.Val, res.Err
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			c.svc.logger.Info("refresh token rejected, signing out", "status", apiErr.Status, "code", apiErr.Code)
			c.drop(tokens)
			return nil, nil
		}
		return nil, err
	}
	return v.(*models.Session), nil
}

// install replaces the held session and tells the listeners.
func (c *Client) install(sess *models.Session, event Event) {
	c.mu.Lock()
	c.tokens = Tokens{AccessToken: sess.AccessToken, RefreshToken: sess.RefreshToken}
	c.session = sess
	c.claims = claimsOf(sess.AccessToken)
	c.mu.Unlock()
	c.emit(event, sess)
}

// drop forgets the session if the held tokens are still the ones that
// failed, and announces the sign-out.
func (c *Client) drop(failed Tokens) {
	c.mu.Lock()
	if c.tokens != failed {
		c.mu.Unlock()
		return
	}
	c.tokens = Tokens{}
	c.session = nil
	c.claims = nil
	c.mu.Unlock()
	c.emit(EventSignedOut, nil)
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	resp, err := c.svc.grant(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	sess := c.svc.session(resp)
	c.install(sess, EventSignedIn)
	return sess, nil
}

// SignOut revokes the session on the auth API (best effort) and clears it
// locally in every case.
func (c *Client) SignOut(ctx context.Context) {
	c.mu.Lock()
	access := c.tokens.AccessToken
	c.tokens = Tokens{}
	c.session = nil
	c.claims = nil
	c.mu.Unlock()

	if access != "" {
		if err := c.svc.logout(ctx, access); err != nil {
			c.svc.logger.Warn("remote sign-out failed", "error", err)
		}
	}
	c.emit(EventSignedOut, nil)
}

// UpdateUser replaces the user of the held session (after a profile change)
// and announces it.
func (c *Client) UpdateUser(user models.User) {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return
	}
	sess := *c.session
	sess.User = user
	c.session = &sess
	c.mu.Unlock()
	c.emit(EventUserUpdated, &sess)
}

func (c *Client) auth() Auth {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Auth{AccessToken: c.tokens.AccessToken, Claims: c.claims}
}

// RunQuery is the generic read primitive used by the data loaders.
func (c *Client) RunQuery(ctx context.Context, q *Query) ([]json.RawMessage, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: nil query", ErrInvalidQuery)
	}
	return c.svc.runner.Select(ctx, c.auth(), q)
}

func (c *Client) Insert(ctx context.Context, table string, row any) (json.RawMessage, error) {
	return c.svc.runner.Insert(ctx, c.auth(), table, row)
}

func (c *Client) Update(ctx context.Context, q *Query, patch any) ([]json.RawMessage, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: nil query", ErrInvalidQuery)
	}
	return c.svc.runner.Update(ctx, c.auth(), q, patch)
}

func (c *Client) Delete(ctx context.Context, q *Query) error {
	if q == nil {
		return fmt.Errorf("%w: nil query", ErrInvalidQuery)
	}
	return c.svc.runner.Delete(ctx, c.auth(), q)
}
