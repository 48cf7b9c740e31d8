package jwks

import (
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/mydebugger/jwtkit/pkg/jwtkit"
)

// DefaultCacheSize is the number of key sets MemoryStore keeps.
const DefaultCacheSize = 128

// DefaultTTL is how long a fetched key set stays fresh.
const DefaultTTL = 5 * time.Minute

// KeyStore caches fetched key sets by URL. The token engine never reads it;
// only the Fetcher does.
type KeyStore interface {
	Get(url string) (*jwtkit.JWKS, bool)
	Set(url string, set *jwtkit.JWKS)
	Delete(url string)
	Len() int
}

type entry struct {
	set     *jwtkit.JWKS
	expires time.Time
}

// MemoryStore is a size-bounded LRU KeyStore with a per-entry TTL.
// The underlying cache is safe for concurrent use.
type MemoryStore struct {
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryStore creates a store. Non-positive arguments select the defaults.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cache, _ := lru.New(size)
	return &MemoryStore{cache: cache, ttl: ttl, now: time.Now}
}

// Get returns a fresh key set. Expired entries are evicted on access.
func (s *MemoryStore) Get(url string) (*jwtkit.JWKS, bool) {
	v, ok := s.cache.Get(url)
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if !s.now().Before(e.expires) {
		s.cache.Remove(url)
		return nil, false
	}
	return e.set, true
}

// Set stores set under url.
func (s *MemoryStore) Set(url string, set *jwtkit.JWKS) {
	s.cache.Add(url, entry{set: set, expires: s.now().Add(s.ttl)})
}

// Delete removes url from the store.
func (s *MemoryStore) Delete(url string) {
	s.cache.Remove(url)
}

// Len returns the number of cached key sets, fresh or not.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
