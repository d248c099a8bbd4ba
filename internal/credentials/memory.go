package credentials

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore keeps credentials in process memory, they are lost on restart and
// evicted after ttl or when more than size sessions are held.
type MemoryStore struct {
	cache *expirable.LRU[string, Credential]
}

func NewMemoryStore(size int, ttl time.Duration) MemoryStore {
	return MemoryStore{
		cache: expirable.NewLRU[string, Credential](size, nil, ttl),
	}
}

func (s MemoryStore) Save(_ context.Context, sessionId string, credential Credential) error {
	s.cache.Add(sessionId, credential.clone())
	return nil
}

func (s MemoryStore) Load(_ context.Context, sessionId string) (Credential, bool, error) {
	cached, hit := s.cache.Get(sessionId)
	if !hit {
		return Credential{}, false, nil
	}
	return cached.clone(), true, nil
}

func (s MemoryStore) Clear(_ context.Context, sessionId string) error {
	s.cache.Remove(sessionId)
	return nil
}

func (s MemoryStore) Len() int {
	return s.cache.Len()
}
