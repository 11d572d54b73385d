package bbolt_engine

import (
	"bytes"
	"fmt"

	"github.com/goydb/forest/internal/record"
	"github.com/goydb/forest/pkg/model"
	"github.com/goydb/forest/pkg/port"
	"go.etcd.io/bbolt"
)

var (
	_ port.Cursor = (*keyCursor)(nil)
	_ port.Cursor = (*seqCursor)(nil)
)

// keyCursor walks the document bucket between two inclusive bounds. It
// owns a read transaction, the view is stable until Close.
type keyCursor struct {
	tx   *bbolt.Tx
	c    *bbolt.Cursor
	min  []byte // inclusive, nil leaves the side open
	max  []byte
	opts port.CursorOptions

	k, v   []byte // nil k means not positioned
	closed bool
}

func (cur *keyCursor) position() error {
	if cur.min != nil {
		cur.k, cur.v = cur.c.Seek(cur.min)
	} else {
		cur.k, cur.v = cur.c.First()
	}
	return cur.settleForward()
}

// settleForward clamps the position to the range end and steps over
// tombstones unless they are included.
func (cur *keyCursor) settleForward() error {
	for cur.k != nil {
		if cur.max != nil && bytes.Compare(cur.k, cur.max) > 0 {
			cur.k, cur.v = nil, nil
			return nil
		}
		if cur.opts.IncludeDeleted {
			return nil
		}
		deleted, err := record.Deleted(cur.v)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		cur.k, cur.v = cur.c.Next()
	}
	return nil
}

func (cur *keyCursor) settleBackward() error {
	for cur.k != nil {
		if cur.min != nil && bytes.Compare(cur.k, cur.min) < 0 {
			cur.k, cur.v = nil, nil
			return nil
		}
		if cur.opts.IncludeDeleted {
			return nil
		}
		deleted, err := record.Deleted(cur.v)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		cur.k, cur.v = cur.c.Prev()
	}
	return nil
}

func (cur *keyCursor) Next() error {
	if cur.closed {
		return port.ErrClosed
	}
	if cur.k == nil {
		return port.ErrExhausted
	}
	cur.k, cur.v = cur.c.Next()
	if err := cur.settleForward(); err != nil {
		return err
	}
	if cur.k == nil {
		return port.ErrExhausted
	}
	return nil
}

func (cur *keyCursor) Prev() error {
	if cur.closed {
		return port.ErrClosed
	}
	if cur.k == nil {
		return port.ErrExhausted
	}
	cur.k, cur.v = cur.c.Prev()
	if err := cur.settleBackward(); err != nil {
		return err
	}
	if cur.k == nil {
		return port.ErrExhausted
	}
	return nil
}

func (cur *keyCursor) SeekGE(key []byte) error {
	if cur.closed {
		return port.ErrClosed
	}
	target := key
	if cur.min != nil && bytes.Compare(target, cur.min) < 0 {
		target = cur.min
	}
	cur.k, cur.v = cur.c.Seek(target)
	if err := cur.settleForward(); err != nil {
		return err
	}
	if cur.k == nil {
		return port.ErrNotFound
	}
	return nil
}

func (cur *keyCursor) SeekLE(key []byte) error {
	if cur.closed {
		return port.ErrClosed
	}
	target := key
	if cur.max != nil && bytes.Compare(target, cur.max) > 0 {
		target = cur.max
	}
	cur.k, cur.v = seekLast(cur.c, target)
	if err := cur.settleBackward(); err != nil {
		return err
	}
	if cur.k == nil {
		return port.ErrNotFound
	}
	return nil
}

func (cur *keyCursor) Last() error {
	if cur.closed {
		return port.ErrClosed
	}
	cur.k, cur.v = seekLast(cur.c, cur.max)
	if err := cur.settleBackward(); err != nil {
		return err
	}
	if cur.k == nil {
		return port.ErrExhausted
	}
	return nil
}

func (cur *keyCursor) Document() (*model.Document, error) {
	if cur.closed {
		return nil, port.ErrClosed
	}
	if cur.k == nil {
		return nil, port.ErrExhausted
	}
	return record.ToDocument(cur.k, cur.v, contentOptions(cur.opts))
}

func (cur *keyCursor) Close() error {
	if cur.closed {
		return nil
	}
	cur.closed = true
	cur.k, cur.v = nil, nil
	return cur.tx.Rollback()
}

// seqCursor walks the sequence index between two inclusive sequence
// bounds and resolves each entry to its document.
type seqCursor struct {
	tx   *bbolt.Tx
	docs *bbolt.Bucket
	c    *bbolt.Cursor
	min  []byte // 8 byte sequence keys
	max  []byte
	opts port.CursorOptions

	k, v   []byte // k sequence key, v document key
	closed bool
}

func (cur *seqCursor) position() error {
	cur.k, cur.v = cur.c.Seek(cur.min)
	return cur.settleForward()
}

func (cur *seqCursor) settleForward() error {
	for cur.k != nil {
		if bytes.Compare(cur.k, cur.max) > 0 {
			cur.k, cur.v = nil, nil
			return nil
		}
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
		cur.k, cur.v = cur.c.Next()
	}
	return nil
}

func (cur *seqCursor) settleBackward() error {
	for cur.k != nil {
		if bytes.Compare(cur.k, cur.min) < 0 {
			cur.k, cur.v = nil, nil
			return nil
		}
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
		cur.k, cur.v = cur.c.Prev()
	}
	return nil
}

func (cur *seqCursor) currentDeleted() (bool, error) {
	data := cur.docs.Get(cur.v)
	if data == nil {
		return false, fmt.Errorf("sequence %d references missing document %q",
			model.SequenceFromKey(cur.k), cur.v)
	}
	return record.Deleted(data)
}

func (cur *seqCursor) Next() error {
	if cur.closed {
		return port.ErrClosed
	}
	if cur.k == nil {
		return port.ErrExhausted
	}
	cur.k, cur.v = cur.c.Next()
	if err := cur.settleForward(); err != nil {
		return err
	}
	if cur.k == nil {
		return port.ErrExhausted
	}
	return nil
}

func (cur *seqCursor) Prev() error {
	if cur.closed {
		return port.ErrClosed
	}
	if cur.k == nil {
		return port.ErrExhausted
	}
	cur.k, cur.v = cur.c.Prev()
	if err := cur.settleBackward(); err != nil {
		return err
	}
	if cur.k == nil {
		return port.ErrExhausted
	}
	return nil
}

func (cur *seqCursor) SeekGE(key []byte) error {
	if cur.closed {
		return port.ErrClosed
	}
	target := key
	if bytes.Compare(target, cur.min) < 0 {
		target = cur.min
	}
	cur.k, cur.v = cur.c.Seek(target)
	if err := cur.settleForward(); err != nil {
		return err
	}
	if cur.k == nil {
		return port.ErrNotFound
	}
	return nil
}

func (cur *seqCursor) SeekLE(key []byte) error {
	if cur.closed {
		return port.ErrClosed
	}
	target := key
	if bytes.Compare(target, cur.max) > 0 {
		target = cur.max
	}
	cur.k, cur.v = seekLast(cur.c, target)
	if err := cur.settleBackward(); err != nil {
		return err
	}
	if cur.k == nil {
		return port.ErrNotFound
	}
	return nil
}

func (cur *seqCursor) Last() error {
	if cur.closed {
		return port.ErrClosed
	}
	cur.k, cur.v = seekLast(cur.c, cur.max)
	if err := cur.settleBackward(); err != nil {
		return err
	}
	if cur.k == nil {
		return port.ErrExhausted
	}
	return nil
}

func (cur *seqCursor) Document() (*model.Document, error) {
	if cur.closed {
		return nil, port.ErrClosed
	}
	if cur.k == nil {
		return nil, port.ErrExhausted
	}
	data := cur.docs.Get(cur.v)
	if data == nil {
		return nil, fmt.Errorf("sequence %d references missing document %q",
			model.SequenceFromKey(cur.k), cur.v)
	}
	return record.ToDocument(cur.v, data, contentOptions(cur.opts))
}

func (cur *seqCursor) Close() error {
	if cur.closed {
		return nil
	}
	cur.closed = true
	cur.k, cur.v = nil, nil
	return cur.tx.Rollback()
}

// seekLast positions c on the last key at or before target, or on the
// last key of the bucket if target is nil.
func seekLast(c *bbolt.Cursor, target []byte) (k, v []byte) {
	if target == nil {
		return c.Last()
	}
	k, v = c.Seek(target)
	if k == nil {
		// past the end, the last key is at or before target
		return c.Last()
	}
	if !bytes.Equal(k, target) {
		// Seek landed on the first key after target
		return c.Prev()
	}
	return k, v
}

func contentOptions(opts port.CursorOptions) model.ContentOptions {
	if opts.MetaOnly {
		return model.MetaOnly
	}
	return model.DefaultContent
}
