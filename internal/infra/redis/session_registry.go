package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"smart-quiz-service/internal/app"
)

// SessionRegistry is a Redis-aware implementation of app.SessionRegistry.
// Notes:
//   - Sessions themselves stay in a local map; a session is owned by exactly
//     one instance and is never mutated cross-process.
//   - Redis carries best-effort liveness markers with a TTL so operators can
//     see in-flight attempts across instances.
type SessionRegistry struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (r *SessionRegistry) Put(s *app.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Token()] = s
	_ = r.client.Set(context.Background(), r.key(s.Token()), s.UserName(), r.ttl).Err()
}

func (r *SessionRegistry) Get(token string) (*app.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[token]
	return s, ok
}

func (r *SessionRegistry) Delete(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
	_ = r.client.Del(context.Background(), r.key(token)).Err()
}

func (r *SessionRegistry) All() []*app.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*app.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *SessionRegistry) key(token string) string {
	return "quiz:session:" + token
}
