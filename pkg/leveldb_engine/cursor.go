package leveldb_engine

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goydb/forest/internal/record"
	"github.com/goydb/forest/pkg/model"
	"github.com/goydb/forest/pkg/port"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
)

var _ port.Cursor = (*cursor)(nil)

// cursor walks one keyspace of a pinned snapshot. The range bounds are
// enforced by the iterator itself, positioning never leaves them. With
// docPrefix set the cursor walks the sequence index and resolves each
// entry to its document through the snapshot.
type cursor struct {
	snap      *leveldb.Snapshot
	iter      iterator.Iterator
	prefix    []byte // of the iterated keyspace, stripped off keys
	docPrefix []byte // nil for document keyspaces
	opts      port.CursorOptions
	closed    bool
}

// currentDoc returns the document key and encoded record under the
// iterator. Both alias iterator or snapshot buffers and are only valid
// until the next move.
func (cur *cursor) currentDoc() (key, data []byte, err error) {
	if cur.docPrefix == nil {
		return cur.iter.Key()[len(cur.prefix):], cur.iter.Value(), nil
	}
	key = cur.iter.Value()
	data, err = cur.snap.Get(concat(cur.docPrefix, key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		seq := model.SequenceFromKey(cur.iter.Key()[len(cur.prefix):])
		return nil, nil, fmt.Errorf("sequence %d references missing document %q", seq, key)
	}
	if err != nil {
		return nil, nil, err
	}
	return key, data, nil
}

func (cur *cursor) currentDeleted() (bool, error) {
	_, data, err := cur.currentDoc()
	if err != nil {
		return false, err
	}
	return record.Deleted(data)
}

// settleForward steps over tombstones unless they are included.
// Returns nil with an invalid iterator on clean exhaustion.
func (cur *cursor) settleForward() error {
	for cur.iter.Valid() {
		if cur.opts.IncludeDeleted {
			return nil
		}
		deleted, err := cur.currentDeleted()
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		cur.iter.Next()
	}
	return cur.iterErr()
}

func (cur *cursor) settleBackward() error {
	for cur.iter.Valid() {
		if cur.opts.IncludeDeleted {
			return nil
		}
		deleted, err := cur.currentDeleted()
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		cur.iter.Prev()
	}
	return cur.iterErr()
}

func (cur *cursor) iterErr() error {
	if err := cur.iter.Error(); err != nil {
		return fmt.Errorf("leveldb iterator: %w", err)
	}
	return nil
}

func (cur *cursor) Next() error {
	if cur.closed {
		return port.ErrClosed
	}
	if !cur.iter.Valid() {
		return port.ErrExhausted
	}
	cur.iter.Next()
	if err := cur.settleForward(); err != nil {
		return err
	}
	if !cur.iter.Valid() {
		return port.ErrExhausted
	}
	return nil
}

func (cur *cursor) Prev() error {
	if cur.closed {
		return port.ErrClosed
	}
	if !cur.iter.Valid() {
		return port.ErrExhausted
	}
	cur.iter.Prev()
	if err := cur.settleBackward(); err != nil {
		return err
	}
	if !cur.iter.Valid() {
		return port.ErrExhausted
	}
	return nil
}

func (cur *cursor) SeekGE(key []byte) error {
	if cur.closed {
		return port.ErrClosed
	}
	cur.iter.Seek(concat(cur.prefix, key))
	if err := cur.settleForward(); err != nil {
		return err
	}
	if !cur.iter.Valid() {
		return port.ErrNotFound
	}
	return nil
}

func (cur *cursor) SeekLE(key []byte) error {
	if cur.closed {
		return port.ErrClosed
	}
	target := concat(cur.prefix, key)
	if cur.iter.Seek(target) {
		if !bytes.Equal(cur.iter.Key(), target) {
			// Seek landed on the first key after target
			cur.iter.Prev()
		}
	} else {
		if err := cur.iterErr(); err != nil {
			return err
		}
		// past the range end, the last entry is at or before target
		cur.iter.Last()
	}
	if err := cur.settleBackward(); err != nil {
		return err
	}
	if !cur.iter.Valid() {
		return port.ErrNotFound
	}
	return nil
}

func (cur *cursor) Last() error {
	if cur.closed {
		return port.ErrClosed
	}
	cur.iter.Last()
	if err := cur.settleBackward(); err != nil {
		return err
	}
	if !cur.iter.Valid() {
		return port.ErrExhausted
	}
	return nil
}

func (cur *cursor) Document() (*model.Document, error) {
	if cur.closed {
		return nil, port.ErrClosed
	}
	if !cur.iter.Valid() {
		return nil, port.ErrExhausted
	}
	key, data, err := cur.currentDoc()
	if err != nil {
		return nil, err
	}
	content := model.DefaultContent
	if cur.opts.MetaOnly {
		content = model.MetaOnly
	}
	return record.ToDocument(key, data, content)
}

func (cur *cursor) Close() error {
	if cur.closed {
		return nil
	}
	cur.closed = true
	cur.iter.Release()
	cur.snap.Release()
	return nil
}
