// Package app keeps one application root per client instance: its gateway
// client, its session store and the single subscription that connects
// them for the root's whole lifetime.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/guard"
	"github.com/Dosada05/association-portal/metrics"
	"github.com/Dosada05/association-portal/models"
	"github.com/Dosada05/association-portal/session"
)

// Status of the root's session fetch.
type Status int

const (
	StatusPending Status = iota
	StatusReady
	// StatusAuthError: the last session fetch could not reach the auth
	// service. The next Sync retries.
	StatusAuthError
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusAuthError:
		return "auth_error"
	}
	return "pending"
}

// Notifier pushes to the open pages of a client instance.
type Notifier interface {
	Navigate(room, to, notice string)
	CloseRoom(room string)
	// RoomSize is the number of pages connected to room.
	RoomSize(room string) int
}

type noopNotifier struct{}

func (noopNotifier) Navigate(string, string, string) {}
func (noopNotifier) CloseRoom(string)                {}
func (noopNotifier) RoomSize(string) int             { return 0 }

type Root struct {
	ID string

	client   *gateway.Client
	store    *session.Store
	notifier Notifier
	logger   *slog.Logger

	mu       sync.Mutex
	status   Status
	authErr  error
	view     string
	lastSeen time.Time
	// registered roots are owned by the registry: they count as mounted
	// clients and close their room on teardown.
	registered bool
	disposed   bool
	dispose    []func()
}

// mount wires the root: gateway auth events flow into the store, and
// every store change re-runs the guard for the current view.
func mount(id string, client *gateway.Client, notifier Notifier, logger *slog.Logger, now time.Time) *Root {
	r := &Root{
		ID:       id,
		client:   client,
		store:    session.NewStore(),
		notifier: notifier,
		logger:   logger.With(slog.String("client_id", id)),
		lastSeen: now,
	}
	r.dispose = append(r.dispose,
		client.OnAuthStateChange(func(event gateway.Event, s *models.Session) {
			r.logger.Debug("Auth state changed", slog.String("event", string(event)))
			r.store.Set(s)
		}),
		r.store.Subscribe(r.reevaluate),
	)
	return r
}

func (r *Root) Client() *gateway.Client { return r.client }

func (r *Root) Store() *session.Store { return r.store }

func (r *Root) Session() *models.Session { return r.store.Get() }

func (r *Root) Tokens() gateway.Tokens { return r.client.Tokens() }

func (r *Root) Status() (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, r.authErr
}

// Sync fetches the current session (refreshing it when expired) and puts
// it in the store if it changed. On failure the root enters
// StatusAuthError and keeps its last known session.
func (r *Root) Sync(ctx context.Context) (*models.Session, error) {
	sess, err := r.client.GetCurrentSession(ctx)
	if err != nil {
		// A caller that went away says nothing about the auth service.
		if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return nil, err
		}
		r.mu.Lock()
		r.status, r.authErr = StatusAuthError, err
		r.mu.Unlock()
		r.logger.WarnContext(ctx, "Session fetch failed", slog.Any("error", err))
		return nil, err
	}

	r.mu.Lock()
	r.status, r.authErr = StatusReady, nil
	r.mu.Unlock()

	if r.store.Get() != sess {
		r.store.Set(sess)
	}
	return sess, nil
}

// SetView records the guarded path the client is looking at.
func (r *Root) SetView(path string) {
	r.mu.Lock()
	r.view = path
	r.mu.Unlock()
}

func (r *Root) View() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

func (r *Root) touch(now time.Time) {
	r.mu.Lock()
	r.lastSeen = now
	r.mu.Unlock()
}

func (r *Root) idleSince(now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return now.Sub(r.lastSeen)
}

// reevaluate runs after every store change. Open pages are sent away
// when the new session no longer allows the view they show.
func (r *Root) reevaluate(s *models.Session) {
	view := r.View()
	if view == "" {
		return
	}
	d, ok := guard.Resolve(view, s)
	if !ok || !d.IsRedirect() {
		return
	}
	r.SetView(d.Redirect)
	r.logger.Info("Pushing navigation", slog.String("from", view), slog.String("to", d.Redirect))
	r.notifier.Navigate(r.ID, d.Redirect, string(d.Notice))
}

func (r *Root) Registered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered
}

// markRegistered reports false when the root was already registered or
// has been torn down.
func (r *Root) markRegistered(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registered || r.disposed {
		return false
	}
	r.registered = true
	r.lastSeen = now
	return true
}

// Teardown releases the subscription and closes the live room. Safe to
// call more than once.
func (r *Root) Teardown() { r.teardown(true) }

func (r *Root) teardown(closeRoom bool) {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.disposed = true
	registered := r.registered
	dispose := r.dispose
	r.dispose = nil
	r.mu.Unlock()

	for _, d := range dispose {
		d()
	}
	if !registered {
		return
	}
	if closeRoom {
		r.notifier.CloseRoom(r.ID)
	}
	metrics.ClientTornDown()
}
