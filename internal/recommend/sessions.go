package recommend

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelshelf/reelshelf/internal/metrics"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("quiz session not found")

// DefaultSessionTTL is how long an untouched session is kept.
const DefaultSessionTTL = 30 * time.Minute

// Sessions tracks the open quiz sessions by id.
type Sessions struct {
	engine *Engine
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessions creates an empty registry. A non-positive ttl selects
// DefaultSessionTTL.
func NewSessions(engine *Engine, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		engine:   engine,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Engine returns the engine sessions are created from.
func (r *Sessions) Engine() *Engine {
	return r.engine
}

// Create opens a new session.
func (r *Sessions) Create() *Session {
	s := r.engine.NewSession(uuid.NewString())

	r.mu.Lock()
	r.sessions[s.ID()] = s
	count := len(r.sessions)
	r.mu.Unlock()

	metrics.QuizSessionsActive.Set(float64(count))
	r.engine.logger.Debug().Str("session", s.ID()).Msg("Opened quiz session")
	return s
}

// Get returns the session with id.
func (r *Sessions) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Len returns the number of open sessions.
func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Purge drops sessions idle for longer than the ttl. It has the scheduler
// task signature.
func (r *Sessions) Purge(_ context.Context) error {
	cutoff := r.engine.clock.Now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.LastActive().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	count := len(r.sessions)
	r.mu.Unlock()

	for _, s := range expired {
		s.discard()
	}

	metrics.QuizSessionsActive.Set(float64(count))
	if len(expired) > 0 {
		r.engine.logger.Info().Int("purged", len(expired)).Int("remaining", count).Msg("Purged idle quiz sessions")
	}
	return nil
}
