// Package sessions keeps the calculator sessions served over HTTP.
package sessions

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"pocket-calculator/internal/engine"
)

var ErrNotFound = errors.New("session not found")

// Session wraps an engine session with an id and a lock. The engine itself
// is single-threaded; every access goes through Do.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu   sync.Mutex
	calc *engine.Session
}

// Do runs fn with exclusive access to the calculator.
func (s *Session) Do(fn func(calc *engine.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.calc)
}

// Display returns the current buffer.
func (s *Session) Display() string {
	var display string
	s.Do(func(calc *engine.Session) { display = calc.Buffer() })
	return display
}

// Option customises a Store.
type Option func(*Store)

// WithEvictCallback registers fn to run whenever a session leaves the store,
// through Delete or because the store is full.
func WithEvictCallback(fn func(id string)) Option {
	return func(s *Store) { s.onEvict = fn }
}

// Store is a bounded set of sessions. When full, the least recently used
// session is dropped.
type Store struct {
	cache     *lru.Cache[string, *Session]
	evaluator *engine.Evaluator
	onEvict   func(id string)
}

// New returns a store holding at most size sessions, all evaluating with ev.
func New(size int, ev *engine.Evaluator, opts ...Option) (*Store, error) {
	s := &Store{evaluator: ev}
	for _, opt := range opts {
		opt(s)
	}

	cache, err := lru.NewWithEvict[string, *Session](size, func(id string, _ *Session) {
		if s.onEvict != nil {
			s.onEvict(id)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("creating session cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Create starts a new session.
func (s *Store) Create() *Session {
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		calc:      engine.NewSession(s.evaluator),
	}
	s.cache.Add(sess.ID, sess)
	return sess
}

// Get returns the session with id and marks it as recently used.
func (s *Store) Get(id string) (*Session, error) {
	sess, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

// Delete removes the session with id.
func (s *Store) Delete(id string) error {
	if !s.cache.Remove(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.cache.Len()
}
