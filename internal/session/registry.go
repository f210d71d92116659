package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/tutorbot/internal/conversation"
)

// ErrSessionNotFound signals an unknown or expired session token. It is
// the only client-visible registry failure.
var ErrSessionNotFound = errors.New("session not found or expired")

type entry struct {
	engine     *conversation.Engine
	lastActive time.Time
}

// Registry is the process-wide map from session token to conversation
// engine. It holds no persistent state; everything in it is lost on
// restart.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*entry)}
}

// Add registers an engine and returns its freshly generated session token.
func (r *Registry) Add(engine *conversation.Engine) string {
	token := uuid.NewString()
	r.mu.Lock()
	r.sessions[token] = &entry{engine: engine, lastActive: time.Now()}
	r.mu.Unlock()
	return token
}

// Lookup resolves a token to its engine and refreshes its activity
// timestamp.
func (r *Registry) Lookup(token string) (*conversation.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastActive = time.Now()
	return e.engine, nil
}

// Remove drops a session. Removing an unknown token is a no-op.
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	delete(r.sessions, token)
	r.mu.Unlock()
}

// EvictIdle removes sessions inactive longer than ttl and returns their
// engines so the caller can close their durable state.
func (r *Registry) EvictIdle(ttl time.Duration) []*conversation.Engine {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []*conversation.Engine
	for token, e := range r.sessions {
		if e.lastActive.Before(cutoff) {
			evicted = append(evicted, e.engine)
			delete(r.sessions, token)
		}
	}
	return evicted
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
