package tally

import (
	"fmt"
	"sync"
)

// Set of commit ids already counted during a run, shared by every worker.
type DedupStore interface {
	// Records id and reports whether it was absent before. The check and the
	// insert happen atomically, so for any id exactly one caller sees true.
	Add(id string) bool
	Len() int
}

const MemoryDedupBackend = "memory"

// DedupBackends lists the accepted values for NewDedupStore.
var DedupBackends = []string{MemoryDedupBackend}

func NewDedupStore(backend string) (DedupStore, error) {
	switch backend {
	case MemoryDedupBackend, "":
		return NewMemoryDedupStore(), nil
	default:
		return nil, fmt.Errorf(
			"%w: unknown backend %q",
			ErrDedupStoreUnavailable,
			backend,
		)
	}
}

type MemoryDedupStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{seen: map[string]struct{}{}}
}

func (s *MemoryDedupStore) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return false
	}

	s.seen[id] = struct{}{}
	return true
}

func (s *MemoryDedupStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.seen)
}
