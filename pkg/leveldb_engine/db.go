package leveldb_engine

import (
	"sync"

	"github.com/goydb/forest/pkg/port"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

const (
	// cache is the memory allocated to leveldb, half read, half write
	cache = 16 // MiB

	// handles is the number of file handles leveldb keeps open
	handles = 16

	bloomKeyBits = 10
)

var _ port.Engine = (*DB)(nil)

// DB stores all key stores in one leveldb directory, separated by key
// prefixes. Writes take a database wide lock so sequence allocation
// stays consistent, mirroring the single writer model of bbolt.
type DB struct {
	db *leveldb.DB

	writeMu sync.Mutex
}

func Open(path string) (*DB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(bloomKeyBits),
	})
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

// KeyStore returns the named key store. Per store the database holds
// document records under d/<name>/<key>, the sequence index under
// s/<name>/<seq>, and the sequence and record counters under m/<name>
// and c/<name>.
func (db *DB) KeyStore(name string) port.KeyStore {
	return &KeyStore{
		db:        db,
		docPrefix: []byte("d/" + name + "/"),
		seqPrefix: []byte("s/" + name + "/"),
		seqKey:    []byte("m/" + name),
		countKey:  []byte("c/" + name),
	}
}
