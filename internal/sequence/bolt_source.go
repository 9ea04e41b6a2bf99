package sequence

import (
	"context"
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/gridstore/gridstore-go/internal/grid"
)

const bucketName = "sequences"

// BoltSource persists sequences in an embedded bbolt database, one key per
// sequence. Used by tooling that allocates identifiers without a live graph
// substrate; bbolt's write transaction provides the single-writer guarantee.
type BoltSource struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the sequence database at path.
func OpenBolt(path string) (*BoltSource, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open sequence database %s: %w", path, err)
	}
	return &BoltSource{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltSource) Close() error { return s.db.Close() }

func (s *BoltSource) NextValue(_ context.Context, _ grid.Tx, key grid.RowKey, increment, initialValue int64) (int64, error) {
	var current int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		name := []byte(key.CanonicalString())
		if data := bucket.Get(name); data != nil {
			current = int64(binary.BigEndian.Uint64(data))
		} else {
			current = initialValue
		}
		next := make([]byte, 8)
		binary.BigEndian.PutUint64(next, uint64(current+increment))
		return bucket.Put(name, next)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", key, err)
	}
	return current, nil
}
