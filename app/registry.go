package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/metrics"
	"github.com/Dosada05/association-portal/models"
)

// ClientFactory creates the gateway client of a new root.
type ClientFactory interface {
	NewClient(t gateway.Tokens) *gateway.Client
}

// Registry owns every mounted root and evicts the idle ones.
type Registry struct {
	clients  ClientFactory
	notifier Notifier
	idle     time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	roots map[string]*Root
}

func NewRegistry(clients ClientFactory, notifier Notifier, idle time.Duration, logger *slog.Logger) *Registry {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		clients:  clients,
		notifier: notifier,
		idle:     idle,
		logger:   logger,
		now:      time.Now,
		roots:    make(map[string]*Root),
	}
}

// Acquire returns the root of client id, mounting a new one seeded with
// tokens when it does not exist. An empty id gets a fresh one.
//
// A new root without tokens is a guest: it is not registered until a
// session arrives in its store, so anonymous traffic leaves nothing
// behind. Callers hand every root back with Release.
func (g *Registry) Acquire(id string, tokens gateway.Tokens) *Root {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()

	if id != "" {
		if r, ok := g.roots[id]; ok {
			r.touch(now)
			return r
		}
	} else {
		id = uuid.NewString()
	}

	r := mount(id, g.clients.NewClient(tokens), g.notifier, g.logger, now)
	if tokens.Empty() {
		r.dispose = append(r.dispose, r.store.Subscribe(func(s *models.Session) {
			if s != nil {
				g.keep(r)
			}
		}))
		return r
	}
	r.markRegistered(now)
	g.roots[id] = r
	metrics.ClientMounted()
	g.logger.Debug("Client root mounted", slog.String("client_id", id))
	return r
}

// keep registers a guest root that just signed in. A root registered
// meanwhile under the same id is replaced; its pages stay connected.
func (g *Registry) keep(r *Root) {
	g.mu.Lock()
	if !r.markRegistered(g.now()) {
		g.mu.Unlock()
		return
	}
	prev := g.roots[r.ID]
	g.roots[r.ID] = r
	g.mu.Unlock()

	metrics.ClientMounted()
	g.logger.Debug("Client root mounted on sign-in", slog.String("client_id", r.ID))
	if prev != nil && prev != r {
		prev.teardown(false)
	}
}

// Release ends a request's use of r. Guest roots that never signed in are
// dropped here.
func (g *Registry) Release(r *Root) {
	if r == nil || r.Registered() {
		return
	}
	r.teardown(false)
}

// Lookup returns a mounted root without creating one.
func (g *Registry) Lookup(id string) (*Root, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.roots[id]
	return r, ok
}

func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.roots)
}

// Sweep tears down roots idle for longer than the idle timeout and
// returns how many it removed. Roots with connected pages are not idle.
func (g *Registry) Sweep() int {
	now := g.now()
	g.mu.Lock()
	var evicted []*Root
	for id, r := range g.roots {
		if r.idleSince(now) <= g.idle {
			continue
		}
		// open pages keep their root
		if g.notifier.RoomSize(id) > 0 {
			r.touch(now)
			continue
		}
		evicted = append(evicted, r)
		delete(g.roots, id)
	}
	g.mu.Unlock()

	for _, r := range evicted {
		r.Teardown()
	}
	if len(evicted) > 0 {
		g.logger.Info("Evicted idle clients", slog.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Run sweeps periodically until ctx is done, then tears everything down.
func (g *Registry) Run(ctx context.Context) {
	interval := g.idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.Sweep()
		case <-ctx.Done():
			g.Close()
			return
		}
	}
}

// Close tears down every root.
func (g *Registry) Close() {
	g.mu.Lock()
	roots := g.roots
	g.roots = make(map[string]*Root)
	g.mu.Unlock()

	for _, r := range roots {
		r.Teardown()
	}
}
