package booking

import (
	"sync"
	"time"
)

// slotLocks hands out one mutex per (sector, start instant) so that at most
// one reservation creation is in flight per slot. Requests for different
// slots or sectors never contend. Entries are created lazily and retained
// for the process lifetime; the keyspace is calendar-scale and bounded.
type slotLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSlotLocks() *slotLocks {
	return &slotLocks{locks: make(map[string]*sync.Mutex)}
}

func slotKey(sectorID string, start time.Time) string {
	return sectorID + "|" + start.UTC().Format(time.RFC3339)
}

// get returns the mutex for the slot, creating it on first use. Creation is
// serialized by the registry mutex, so two concurrent first accesses see the
// same lock.
func (s *slotLocks) get(sectorID string, start time.Time) *sync.Mutex {
	key := slotKey(sectorID, start)
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	return m
}
