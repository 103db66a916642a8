// Package session holds the current session of one client instance.
package session

import (
	"sync"

	"github.com/Dosada05/association-portal/models"
)

// Listener is called with the value a Set has just applied.
type Listener func(s *models.Session)

type entry struct {
	id int
	fn Listener
}

// Store holds at most one session. Set is the only mutator; the value is
// trusted as given and never persisted here.
type Store struct {
	mu        sync.RWMutex
	current   *models.Session
	listeners []entry
	nextID    int
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Get() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set applies v and then calls every listener in registration order. The
// lock is released before listeners run, so a listener may call Get or Set.
func (s *Store) Set(v *models.Session) {
	s.mu.Lock()
	s.current = v
	listeners := make([]entry, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn(v)
	}
}

// Subscribe registers fn and returns an idempotent disposer.
func (s *Store) Subscribe(fn Listener) (dispose func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, entry{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}
