package bbolt_engine

import (
	"github.com/goydb/forest/pkg/port"
	"go.etcd.io/bbolt"
)

var _ port.Engine = (*DB)(nil)

type DB struct {
	db *bbolt.DB
}

func Open(path string) (*DB, error) {
	db, err := bbolt.Open(path, 0666, nil)
	if err != nil {
		return nil, err
	}
	return &DB{
		db: db,
	}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// KeyStore returns the named key store. Stores are materialized by
// their first write, reads and cursors of an unwritten store report
// ErrNotFound.
func (db *DB) KeyStore(name string) port.KeyStore {
	return &KeyStore{
		db:         db.db,
		docsBucket: []byte(name),
		seqBucket:  []byte(name + seqBucketSuffix),
	}
}
