package history

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var bucketSolutions = []byte("solutions")

// BoltStore is a write-through persistent Store backed by bbolt. Reads come
// from in-memory state loaded at open; writes go to both memory and disk.
type BoltStore struct {
	mu      sync.RWMutex
	db      *bbolt.DB
	records []Record
	best    uint32
	nextSeq uint64
	logger  *zap.Logger
}

// NewBoltStore opens (or creates) a bbolt database at path and loads all
// existing records into memory.
func NewBoltStore(path string, logger *zap.Logger) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSolutions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	s := &BoltStore{db: db, logger: logger}

	// Keys are big-endian sequence numbers, so ForEach yields records in
	// append order.
	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSolutions)
		return b.ForEach(func(k, v []byte) error {
			var rec Record
			if err := cbor.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %x: %w", k, err)
			}
			s.records = append(s.records, rec)
			if rec.Difficulty > s.best {
				s.best = rec.Difficulty
			}
			seq := binary.BigEndian.Uint64(k)
			if seq >= s.nextSeq {
				s.nextSeq = seq + 1
			}
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load records: %w", err)
	}

	logger.Info("opened solution history",
		zap.String("path", path),
		zap.Int("records", len(s.records)),
	)
	return s, nil
}

func (s *BoltStore) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	var key [8]byte
	binary.BigEndian.PutUint64(key[:], s.nextSeq)

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSolutions).Put(key[:], buf)
	})
	if err != nil {
		return fmt.Errorf("persist record: %w", err)
	}

	s.nextSeq++
	s.records = append(s.records, rec)
	if rec.Difficulty > s.best {
		s.best = rec.Difficulty
	}
	return nil
}

func (s *BoltStore) Recent(n int) []Record {
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

func (s *BoltStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *BoltStore) BestDifficulty() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.best
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
