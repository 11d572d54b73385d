package leveldb_engine

import (
	"encoding/binary"
	"errors"

	"github.com/goydb/forest/internal/record"
	"github.com/goydb/forest/pkg/log"
	"github.com/goydb/forest/pkg/model"
	"github.com/goydb/forest/pkg/port"
	uuid "github.com/satori/go.uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var _ port.KeyStore = (*KeyStore)(nil)

type KeyStore struct {
	db        *DB
	docPrefix []byte
	seqPrefix []byte
	seqKey    []byte // last assigned sequence
	countKey  []byte // number of records, tombstones included
}

func (ks *KeyStore) Put(doc *model.Document) (model.Sequence, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewV4().String()
	}
	if len(doc.ID) > port.MaxKeyLength {
		return 0, port.ErrKeyTooLong
	}

	ks.db.writeMu.Lock()
	defer ks.db.writeMu.Unlock()

	batch := new(leveldb.Batch)
	docKey := concat(ks.docPrefix, []byte(doc.ID))

	old, err := ks.db.db.Get(docKey, nil)
	switch {
	case err == nil:
		// an update supersedes the sequence the document held
		oldRec, err := record.Decode(old)
		if err != nil {
			return 0, err
		}
		batch.Delete(ks.seqIdxKey(oldRec.Sequence))
	case errors.Is(err, leveldb.ErrNotFound):
		n, err := ks.counter(ks.countKey)
		if err != nil {
			return 0, err
		}
		batch.Put(ks.countKey, putUint64(n+1))
	default:
		return 0, err
	}

	seq, err := ks.nextSequence(batch)
	if err != nil {
		return 0, err
	}

	data, err := record.Encode(&record.Record{
		Sequence: seq,
		Deleted:  doc.Deleted,
		Meta:     doc.Meta,
		Body:     doc.Body,
	})
	if err != nil {
		return 0, err
	}
	batch.Put(docKey, data)
	batch.Put(ks.seqIdxKey(seq), []byte(doc.ID))

	if err := ks.db.db.Write(batch, nil); err != nil {
		return 0, err
	}

	doc.Sequence = seq
	log.Store.Debug().
		Str("key", doc.ID).
		Uint64("seq", uint64(seq)).
		Msg("put document")
	return seq, nil
}

func (ks *KeyStore) Delete(key []byte) (model.Sequence, error) {
	if len(key) == 0 {
		return 0, port.ErrEmptyKey
	}
	if len(key) > port.MaxKeyLength {
		return 0, port.ErrKeyTooLong
	}

	ks.db.writeMu.Lock()
	defer ks.db.writeMu.Unlock()

	docKey := concat(ks.docPrefix, key)
	data, err := ks.db.db.Get(docKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, port.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	rec, err := record.Decode(data)
	if err != nil {
		return 0, err
	}
	if rec.Deleted {
		return 0, port.ErrNotFound // already a tombstone
	}

	batch := new(leveldb.Batch)
	batch.Delete(ks.seqIdxKey(rec.Sequence))

	seq, err := ks.nextSequence(batch)
	if err != nil {
		return 0, err
	}

	// the tombstone keeps the metadata but drops the body
	rec.Sequence = seq
	rec.Deleted = true
	rec.Body = nil
	data, err = record.Encode(rec)
	if err != nil {
		return 0, err
	}
	batch.Put(docKey, data)
	batch.Put(ks.seqIdxKey(seq), key)

	if err := ks.db.db.Write(batch, nil); err != nil {
		return 0, err
	}

	log.Store.Debug().
		Bytes("key", key).
		Uint64("seq", uint64(seq)).
		Msg("deleted document")
	return seq, nil
}

func (ks *KeyStore) Get(key []byte, content model.ContentOptions) (*model.Document, error) {
	if len(key) == 0 {
		return nil, port.ErrEmptyKey
	}
	data, err := ks.db.db.Get(concat(ks.docPrefix, key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record.ToDocument(key, data, content)
}

func (ks *KeyStore) GetBySequence(seq model.Sequence, content model.ContentOptions) (*model.Document, error) {
	key, err := ks.db.db.Get(ks.seqIdxKey(seq), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	data, err := ks.db.db.Get(concat(ks.docPrefix, key), nil)
	if err != nil {
		return nil, err
	}
	return record.ToDocument(key, data, content)
}

func (ks *KeyStore) LastSequence() (model.Sequence, error) {
	n, err := ks.counter(ks.seqKey)
	if err != nil {
		return 0, err
	}
	return model.Sequence(n), nil
}

func (ks *KeyStore) Count() (uint64, error) {
	return ks.counter(ks.countKey)
}

func (ks *KeyStore) OpenKeyCursor(min, max []byte, opts port.CursorOptions) (port.Cursor, error) {
	snap, err := ks.snapshot()
	if err != nil {
		return nil, err
	}
	r := util.BytesPrefix(ks.docPrefix)
	if min != nil {
		r.Start = concat(ks.docPrefix, min)
	}
	if max != nil {
		// the limit is exclusive, a zero byte turns the inclusive
		// max into the nearest exclusive bound
		r.Limit = append(concat(ks.docPrefix, max), 0x00)
	}
	return ks.openCursor(snap, r, ks.docPrefix, nil, opts)
}

func (ks *KeyStore) OpenSequenceCursor(min, max model.Sequence, opts port.CursorOptions) (port.Cursor, error) {
	snap, err := ks.snapshot()
	if err != nil {
		return nil, err
	}
	r := &util.Range{
		Start: concat(ks.seqPrefix, min.Key()),
		Limit: append(concat(ks.seqPrefix, max.Key()), 0x00),
	}
	return ks.openCursor(snap, r, ks.seqPrefix, ks.docPrefix, opts)
}

// snapshot pins a read view of the store. An unwritten store has no
// sequence counter yet and reports ErrNotFound.
func (ks *KeyStore) snapshot() (*leveldb.Snapshot, error) {
	snap, err := ks.db.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	if _, err := snap.Get(ks.seqKey, nil); err != nil {
		snap.Release()
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, port.ErrNotFound
		}
		return nil, err
	}
	return snap, nil
}

func (ks *KeyStore) openCursor(snap *leveldb.Snapshot, r *util.Range, prefix, docPrefix []byte, opts port.CursorOptions) (port.Cursor, error) {
	cur := &cursor{
		snap:      snap,
		iter:      snap.NewIterator(r, nil),
		prefix:    prefix,
		docPrefix: docPrefix,
		opts:      opts,
	}
	cur.iter.First()
	if err := cur.settleForward(); err != nil {
		_ = cur.Close()
		return nil, err
	}
	return cur, nil
}

// nextSequence allocates the next sequence and records it in the
// batch. Callers hold the write lock.
func (ks *KeyStore) nextSequence(batch *leveldb.Batch) (model.Sequence, error) {
	last, err := ks.counter(ks.seqKey)
	if err != nil {
		return 0, err
	}
	seq := model.Sequence(last + 1)
	batch.Put(ks.seqKey, putUint64(uint64(seq)))
	return seq, nil
}

// counter reads a meta counter, zero if it was never written.
func (ks *KeyStore) counter(key []byte) (uint64, error) {
	data, err := ks.db.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(data), nil
}

func (ks *KeyStore) seqIdxKey(seq model.Sequence) []byte {
	return concat(ks.seqPrefix, seq.Key())
}

func concat(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	return append(out, key...)
}

func putUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
