package history

import (
	"sync"
)

// Record is one submitted solution.
type Record struct {
	Cycle      uint64   `cbor:"1,keyasint"`
	Timestamp  int64    `cbor:"2,keyasint"`
	Nonce      uint64   `cbor:"3,keyasint"`
	Difficulty uint32   `cbor:"4,keyasint"`
	Digest     [32]byte `cbor:"5,keyasint"`
	Bus        string   `cbor:"6,keyasint"`
	RaiseFee   bool     `cbor:"7,keyasint"`
	Reset      bool     `cbor:"8,keyasint"`
}

// Store defines the interface for recording and querying solution history.
type Store interface {
	Append(rec Record) error
	// Recent returns up to n records, newest first.
	Recent(n int) []Record
	Count() int
	// BestDifficulty returns the highest difficulty ever recorded.
	BestDifficulty() uint32
	Close() error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	best    uint32
}

// NewMemoryStore creates a new in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	if rec.Difficulty > s.best {
		s.best = rec.Difficulty
	}
	return nil
}

func (s *MemoryStore) Recent(n int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n > len(s.records) {
		n = len(s.records)
	}
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = s.records[len(s.records)-1-i]
	}
	return out
}

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) BestDifficulty() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.best
}

func (s *MemoryStore) Close() error { return nil }
