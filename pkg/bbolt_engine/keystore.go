package bbolt_engine

import (
	"fmt"

	"github.com/goydb/forest/internal/record"
	"github.com/goydb/forest/pkg/log"
	"github.com/goydb/forest/pkg/model"
	"github.com/goydb/forest/pkg/port"
	uuid "github.com/satori/go.uuid"
	"go.etcd.io/bbolt"
)

// seqBucketSuffix names the bucket holding the sequence index of a key
// store, big endian sequence to document key.
const seqBucketSuffix = ":byseq"

var _ port.KeyStore = (*KeyStore)(nil)

type KeyStore struct {
	db         *bbolt.DB
	docsBucket []byte
	seqBucket  []byte
}

func (ks *KeyStore) Put(doc *model.Document) (model.Sequence, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewV4().String()
	}
	if len(doc.ID) > port.MaxKeyLength {
		return 0, port.ErrKeyTooLong
	}

	var seq model.Sequence
	err := ks.db.Update(func(tx *bbolt.Tx) error {
		docs, err := tx.CreateBucketIfNotExists(ks.docsBucket)
		if err != nil {
			return err
		}
		byseq, err := tx.CreateBucketIfNotExists(ks.seqBucket)
		if err != nil {
			return err
		}

		key := []byte(doc.ID)

		// an update supersedes the sequence the document held
		if old := docs.Get(key); old != nil {
			oldRec, err := record.Decode(old)
			if err != nil {
				return err
			}
			if err := byseq.Delete(oldRec.Sequence.Key()); err != nil {
				return err
			}
		}

		next, err := docs.NextSequence()
		if err != nil {
			return err
		}
		seq = model.Sequence(next)

		data, err := record.Encode(&record.Record{
			Sequence: seq,
			Deleted:  doc.Deleted,
			Meta:     doc.Meta,
			Body:     doc.Body,
		})
		if err != nil {
			return err
		}
		if err := docs.Put(key, data); err != nil {
			return err
		}
		return byseq.Put(seq.Key(), key)
	})
	if err != nil {
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

	var seq model.Sequence
	err := ks.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(ks.docsBucket)
		byseq := tx.Bucket(ks.seqBucket)
		if docs == nil || byseq == nil {
			return port.ErrNotFound
		}
		data := docs.Get(key)
		if data == nil {
			return port.ErrNotFound
		}
		rec, err := record.Decode(data)
		if err != nil {
			return err
		}
		if rec.Deleted {
			return port.ErrNotFound // already a tombstone
		}

		if err := byseq.Delete(rec.Sequence.Key()); err != nil {
			return err
		}
		next, err := docs.NextSequence()
		if err != nil {
			return err
		}
		seq = model.Sequence(next)

		// the tombstone keeps the metadata but drops the body
		rec.Sequence = seq
		rec.Deleted = true
		rec.Body = nil
		data, err = record.Encode(rec)
		if err != nil {
			return err
		}
		if err := docs.Put(key, data); err != nil {
			return err
		}
		return byseq.Put(seq.Key(), key)
	})
	if err != nil {
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

	var doc *model.Document
	err := ks.db.View(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(ks.docsBucket)
		if docs == nil {
			return port.ErrNotFound
		}
		data := docs.Get(key)
		if data == nil {
			return port.ErrNotFound
		}
		d, err := record.ToDocument(key, data, content)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (ks *KeyStore) GetBySequence(seq model.Sequence, content model.ContentOptions) (*model.Document, error) {
	var doc *model.Document
	err := ks.db.View(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(ks.docsBucket)
		byseq := tx.Bucket(ks.seqBucket)
		if docs == nil || byseq == nil {
			return port.ErrNotFound
		}
		key := byseq.Get(seq.Key())
		if key == nil {
			return port.ErrNotFound
		}
		data := docs.Get(key)
		if data == nil {
			return fmt.Errorf("sequence %d references missing document %q", seq, key)
		}
		d, err := record.ToDocument(key, data, content)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (ks *KeyStore) LastSequence() (model.Sequence, error) {
	var seq model.Sequence
	err := ks.db.View(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(ks.docsBucket)
		if docs == nil {
			return nil // unwritten store, sequence zero
		}
		seq = model.Sequence(docs.Sequence())
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (ks *KeyStore) Count() (uint64, error) {
	var n uint64
	err := ks.db.View(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(ks.docsBucket)
		if docs == nil {
			return nil
		}
		n = uint64(docs.Stats().KeyN)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// OpenKeyCursor opens a cursor owning a read transaction until closed.
func (ks *KeyStore) OpenKeyCursor(min, max []byte, opts port.CursorOptions) (port.Cursor, error) {
	tx, err := ks.db.Begin(false)
	if err != nil {
		return nil, err
	}
	docs := tx.Bucket(ks.docsBucket)
	if docs == nil {
		_ = tx.Rollback()
		return nil, port.ErrNotFound
	}
	cur := &keyCursor{
		tx:   tx,
		c:    docs.Cursor(),
		min:  append([]byte(nil), min...),
		max:  append([]byte(nil), max...),
		opts: opts,
	}
	if err := cur.position(); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	return cur, nil
}

func (ks *KeyStore) OpenSequenceCursor(min, max model.Sequence, opts port.CursorOptions) (port.Cursor, error) {
	tx, err := ks.db.Begin(false)
	if err != nil {
		return nil, err
	}
	docs := tx.Bucket(ks.docsBucket)
	byseq := tx.Bucket(ks.seqBucket)
	if docs == nil || byseq == nil {
		_ = tx.Rollback()
		return nil, port.ErrNotFound
	}
	cur := &seqCursor{
		tx:   tx,
		docs: docs,
		c:    byseq.Cursor(),
		min:  min.Key(),
		max:  max.Key(),
		opts: opts,
	}
	if err := cur.position(); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	return cur, nil
}
