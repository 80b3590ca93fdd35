package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryItem struct {
	data     []byte
	expireAt time.Time
}

func (m *memoryItem) expired() bool {
	return !m.expireAt.IsZero() && time.Now().After(m.expireAt)
}

// MemoryStore implements Store in process memory. It backs tests and the
// degraded mode when Redis is not configured; values are JSON round-tripped
// exactly like the Redis adapter so both behave the same.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*memoryItem
	sets map[string]map[string]struct{}
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*memoryItem),
		sets: make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	var expireAt time.Time
	if ttl > 0 {
		expireAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = &memoryItem{data: data, expireAt: expireAt}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	item, ok := s.data[key]
	if ok && item.expired() {
		delete(s.data, key)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(item.data, dest)
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, keys ...string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		if item, ok := s.data[key]; ok && !item.expired() {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.data[key]; ok && !item.expired() {
		item.expireAt = time.Now().Add(ttl)
		return true, nil
	}
	return false, nil
}

func (s *MemoryStore) AddMember(_ context.Context, set, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets[set] == nil {
		s.sets[set] = make(map[string]struct{})
	}
	s.sets[set][member] = struct{}{}
	return nil
}

func (s *MemoryStore) RemoveMember(_ context.Context, set, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if members, ok := s.sets[set]; ok {
		delete(members, member)
	}
	return nil
}

func (s *MemoryStore) Members(_ context.Context, set string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]string, 0, len(s.sets[set]))
	for m := range s.sets[set] {
		members = append(members, m)
	}
	return members, nil
}

func (s *MemoryStore) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.data[key]; ok && !item.expired() {
		return false, nil
	}
	s.data[key] = &memoryItem{data: []byte(`"locked"`), expireAt: time.Now().Add(ttl)}
	return true, nil
}

func (s *MemoryStore) Unlock(ctx context.Context, key string) error {
	return s.Delete(ctx, key)
}

func (s *MemoryStore) Close() error { return nil }
