package admission

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store with the same observable
// semantics as RedisStore. It backs tests and single-node deployments
// that run without Redis.
type MemoryStore struct {
	mu       sync.RWMutex
	statuses map[string]int8
	failing  bool
}

// MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses: make(map[string]int8),
	}
}

// Fail toggles a simulated storage outage: writes return ErrStorage
// and reads fail open.
func (s *MemoryStore) Fail(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

// Insert upserts the status for one IP.
func (s *MemoryStore) Insert(ctx context.Context, ip string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing {
		return fmt.Errorf("%w: simulated outage", ErrStorage)
	}
	s.statuses[ip] = status.Code()
	return nil
}

// BulkInsert upserts all records; duplicate IPs resolve last-wins.
func (s *MemoryStore) BulkInsert(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing {
		return fmt.Errorf("%w: simulated outage", ErrStorage)
	}
	for _, r := range records {
		s.statuses[r.IP] = r.Status
	}
	return nil
}

// Read reports the status recorded for ip, or StatusNone.
func (s *MemoryStore) Read(ctx context.Context, ip string) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failing {
		return StatusNone
	}
	code, ok := s.statuses[ip]
	if !ok {
		return StatusNone
	}
	return FromCode(code)
}

// ReadAll reports a copy of every recorded mapping. The result is
// never nil.
func (s *MemoryStore) ReadAll(ctx context.Context) map[string]int8 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int8, len(s.statuses))
	if s.failing {
		return out
	}
	for ip, code := range s.statuses {
		out[ip] = code
	}
	return out
}

// Len reports the number of stored mappings.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.statuses)
}

// Clear removes all stored mappings.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = make(map[string]int8)
}
