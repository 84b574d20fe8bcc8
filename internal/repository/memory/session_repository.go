package memory

import (
	"time"

	"ar-session-core/internal/host"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps live simulator sessions. Every Get refreshes the idle
// deadline; sessions nobody touches for the TTL are evicted.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(idleTTL, cleanupInterval time.Duration) *SessionRepository {
	return &SessionRepository{
		cache: cache.New(idleTTL, cleanupInterval),
	}
}

// OnEvicted registers a callback for sessions removed by expiry or Delete.
func (r *SessionRepository) OnEvicted(fn func(id string, s *host.Session)) {
	r.cache.OnEvicted(func(key string, value interface{}) {
		if s, ok := value.(*host.Session); ok {
			fn(key, s)
		}
	})
}

func (r *SessionRepository) Save(s *host.Session) {
	r.cache.Set(s.ID(), s, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*host.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		s := x.(*host.Session)
		r.cache.Set(sessionID, s, cache.DefaultExpiration)
		return s, true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

// Flush evicts every session, firing OnEvicted for each.
func (r *SessionRepository) Flush() {
	for id := range r.cache.Items() {
		r.cache.Delete(id)
	}
}
