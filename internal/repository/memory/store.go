package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/patrickmn/go-cache"

	"github.com/carehospital/admin-api/internal/repository"
)

type entry struct {
	value   []byte
	version int64
}

// Store keeps collections in process memory. Entries never expire.
type Store struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewStore() *Store {
	return &Store{cache: cache.New(cache.NoExpiration, 0)}
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.get(key)
	if !ok {
		return nil, 0, nil
	}
	return clone(e.value), e.version, nil
}

func (s *Store) Save(ctx context.Context, key string, value []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, _ := s.get(key)
	return s.put(key, value, e.version+1), nil
}

func (s *Store) CompareAndSave(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, _ := s.get(key)
	if e.version != expected {
		return 0, repository.ErrVersionConflict
	}
	return s.put(key, value, e.version+1), nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	items := s.cache.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Set writes raw bytes without touching the version; test helper for
// seeding corrupt or hand-written values.
func (s *Store) Set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, _ := s.get(key)
	s.put(key, value, e.version)
}

func (s *Store) Close() error {
	s.cache.Flush()
	return nil
}

func (s *Store) get(key string) (entry, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return entry{}, false
	}
	return v.(entry), true
}

func (s *Store) put(key string, value []byte, version int64) int64 {
	s.cache.Set(key, entry{value: clone(value), version: version}, cache.NoExpiration)
	return version
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
