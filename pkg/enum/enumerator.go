package enum

import (
	"errors"

	"github.com/goydb/forest/pkg/log"
	"github.com/goydb/forest/pkg/model"
	"github.com/goydb/forest/pkg/port"
)

type mode uint8

const (
	modeEmpty mode = iota
	modeRange
	modeList
)

// DocEnumerator walks documents of a key store, by key range, by
// sequence range or by an explicit list of document IDs. It surfaces
// one document at a time:
//
//	for {
//		ok, err := e.Next()
//		if err != nil {
//			return err
//		}
//		if !ok {
//			break
//		}
//		doc := e.Document()
//		...
//	}
//
// Running off the range, exhausting the limit or seeking outside the
// range ends the enumeration and releases the cursor. Close is
// idempotent and must be called if the enumeration is abandoned early.
// A DocEnumerator is not safe for concurrent use. The zero value is a
// valid enumerator over nothing.
type DocEnumerator struct {
	store  port.KeyStore
	cursor port.Cursor
	opts   model.EnumeratorOptions
	mode   mode

	// skip and limit are consumed while enumerating, apart from the
	// options they were initialized from.
	skip  uint64
	limit uint64

	// skipStep suppresses the cursor move of the following Next so
	// the document under the initial or seeked position is surfaced
	// instead of stepped over.
	skipStep bool

	docIDs []string
	docIdx int

	doc *model.Document
}

// NewKeyRange opens an enumerator walking from startKey to endKey in
// iteration order: ascending enumerations pass startKey <= endKey,
// descending ones startKey >= endKey. An empty bound leaves that side
// of the range open. InclusiveStart and InclusiveEnd narrow the range
// by one key. A range the store cannot match yields a valid, empty
// enumerator.
func NewKeyRange(store port.KeyStore, startKey, endKey []byte, opts model.EnumeratorOptions) (*DocEnumerator, error) {
	log.Enum.Debug().
		Hex("start", startKey).
		Hex("end", endKey).
		Bool("descending", opts.Descending).
		Msg("open key range enumerator")

	if len(startKey) > port.MaxKeyLength || len(endKey) > port.MaxKeyLength {
		return nil, port.ErrKeyTooLong
	}

	e := newRange(store, opts)

	minKey, maxKey := startKey, endKey
	inclusiveMin, inclusiveMax := opts.InclusiveStart, opts.InclusiveEnd
	if opts.Descending {
		minKey, maxKey = maxKey, minKey
		inclusiveMin, inclusiveMax = inclusiveMax, inclusiveMin
	}

	// Exclusive bounds are narrowed to the adjacent key. An empty
	// bound stays open, there is no key for the flag to exclude.
	if !inclusiveMin && len(minKey) > 0 {
		b := newKeyBuf(minKey)
		if !b.successor() {
			return e, nil // nothing sorts above the maximal key
		}
		minKey = b.bytes()
	}
	if !inclusiveMax && len(maxKey) > 0 {
		b := newKeyBuf(maxKey)
		if !b.predecessor() {
			return e, nil // nothing sorts below the zero key
		}
		maxKey = b.bytes()
	}

	cursor, err := store.OpenKeyCursor(minKey, maxKey, cursorOptions(opts))
	if errors.Is(err, port.ErrNotFound) {
		return e, nil // the store holds no matching range
	}
	if err != nil {
		return nil, err
	}
	e.cursor = cursor
	if err := e.initialPosition(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewSequenceRange opens an enumerator walking documents by their
// current sequence, from start to end in iteration order. Bounds and
// options apply as in NewKeyRange.
func NewSequenceRange(store port.KeyStore, start, end model.Sequence, opts model.EnumeratorOptions) (*DocEnumerator, error) {
	log.Enum.Debug().
		Uint64("start", uint64(start)).
		Uint64("end", uint64(end)).
		Bool("descending", opts.Descending).
		Msg("open sequence range enumerator")

	e := newRange(store, opts)

	minSeq, maxSeq := start, end
	inclusiveMin, inclusiveMax := opts.InclusiveStart, opts.InclusiveEnd
	if opts.Descending {
		minSeq, maxSeq = maxSeq, minSeq
		inclusiveMin, inclusiveMax = inclusiveMax, inclusiveMin
	}
	if !inclusiveMin {
		if minSeq == model.MaxSequence {
			return e, nil
		}
		minSeq++
	}
	if !inclusiveMax {
		if maxSeq == 0 {
			return e, nil
		}
		maxSeq--
	}
	if minSeq > maxSeq {
		return e, nil // nothing to iterate
	}

	cursor, err := store.OpenSequenceCursor(minSeq, maxSeq, cursorOptions(opts))
	if errors.Is(err, port.ErrNotFound) {
		return e, nil
	}
	if err != nil {
		return nil, err
	}
	e.cursor = cursor
	if err := e.initialPosition(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewDocIDs opens an enumerator over an explicit list of document IDs,
// surfaced in the given order. Skip, Limit and Descending are applied
// to the list up front. Unknown IDs still surface, as placeholder
// documents reporting Exists false. Tombstones surface with Deleted
// set regardless of IncludeDeleted, naming an ID asks for it
// explicitly.
func NewDocIDs(store port.KeyStore, docIDs []string, opts model.EnumeratorOptions) *DocEnumerator {
	log.Enum.Debug().
		Int("keys", len(docIDs)).
		Bool("descending", opts.Descending).
		Msg("open doc id enumerator")

	e := &DocEnumerator{store: store, opts: opts, mode: modeList}

	ids := docIDs
	if opts.Skip > 0 {
		if opts.Skip >= uint64(len(ids)) {
			ids = nil
		} else {
			ids = ids[opts.Skip:]
		}
	}
	if opts.Limit < uint64(len(ids)) {
		ids = ids[:opts.Limit]
	}
	e.docIDs = make([]string, len(ids))
	copy(e.docIDs, ids)
	if opts.Descending {
		for i, j := 0, len(e.docIDs)-1; i < j; i, j = i+1, j-1 {
			e.docIDs[i], e.docIDs[j] = e.docIDs[j], e.docIDs[i]
		}
	}
	return e
}

// NewEmpty returns an enumerator over nothing. The zero value behaves
// the same.
func NewEmpty() *DocEnumerator {
	return &DocEnumerator{}
}

func newRange(store port.KeyStore, opts model.EnumeratorOptions) *DocEnumerator {
	return &DocEnumerator{
		store:    store,
		opts:     opts,
		mode:     modeRange,
		skip:     opts.Skip,
		limit:    opts.Limit,
		skipStep: true,
	}
}

func cursorOptions(opts model.EnumeratorOptions) port.CursorOptions {
	return port.CursorOptions{
		MetaOnly:       opts.Content&model.MetaOnly != 0,
		IncludeDeleted: opts.IncludeDeleted,
	}
}

// initialPosition puts descending enumerations on the last document of
// the range. A miss is tolerated, the first Next then ends the
// enumeration.
func (e *DocEnumerator) initialPosition() error {
	if !e.opts.Descending {
		return nil
	}
	if err := e.cursor.Last(); err != nil && !endOfRange(err) {
		_ = e.Close()
		return err
	}
	return nil
}

// Next moves to the next document of the enumeration and reports
// whether one is surfaced. Running off the range or out of the limit
// ends the enumeration, closes the enumerator and reports false. An
// error means the underlying store failed, the enumerator keeps its
// state then and must still be closed.
func (e *DocEnumerator) Next() (bool, error) {
	if e.mode == modeList {
		return e.nextFromList()
	}
	if e.cursor == nil {
		return false, nil
	}
	if e.limit == 0 {
		return false, e.Close()
	}
	e.limit--
	for {
		if e.skipStep {
			// the document under the fresh or seeked position
			// is surfaced before the cursor moves again
			e.skipStep = false
		} else {
			var err error
			if e.opts.Descending {
				err = e.cursor.Prev()
			} else {
				err = e.cursor.Next()
			}
			if endOfRange(err) {
				return false, e.Close()
			}
			if err != nil {
				return false, err
			}
		}
		if e.skip > 0 {
			e.skip--
			continue
		}
		break
	}
	return e.fetchCurrent()
}

func (e *DocEnumerator) nextFromList() (bool, error) {
	if e.docIdx >= len(e.docIDs) {
		return false, e.Close()
	}
	e.doc = nil
	id := e.docIDs[e.docIdx]
	e.docIdx++
	doc, err := e.store.Get([]byte(id), e.opts.Content)
	if errors.Is(err, port.ErrNotFound) {
		e.doc = &model.Document{ID: id}
		return true, nil
	}
	if err != nil {
		return false, err
	}
	e.doc = doc
	return true, nil
}

func (e *DocEnumerator) fetchCurrent() (bool, error) {
	e.doc = nil
	doc, err := e.cursor.Document()
	if endOfRange(err) {
		return false, e.Close()
	}
	if err != nil {
		return false, err
	}
	e.doc = doc
	return true, nil
}

// Seek repositions a key range enumerator so the following Next
// surfaces the first document at or after key, or at or before key
// when descending. Seeking outside the range ends the enumeration.
// Skip and limit keep counting across seeks. Seek is a no-op for
// enumerators without a cursor.
func (e *DocEnumerator) Seek(key []byte) error {
	if e.cursor == nil {
		return nil
	}
	log.Enum.Debug().Hex("key", key).Msg("seek enumerator")
	e.doc = nil
	var err error
	if e.opts.Descending {
		err = e.cursor.SeekLE(key)
	} else {
		err = e.cursor.SeekGE(key)
	}
	if endOfRange(err) {
		return e.Close()
	}
	if err != nil {
		return err
	}
	e.skipStep = true
	return nil
}

// Document returns the currently surfaced document, nil if the
// enumeration has not started, moved off the range or was closed.
func (e *DocEnumerator) Document() *model.Document {
	return e.doc
}

// Valid reports whether a document is currently surfaced.
func (e *DocEnumerator) Valid() bool {
	return e.doc != nil
}

// Detach moves the enumeration into a fresh value, transferring cursor
// ownership. The receiver is left behind as an enumerator over
// nothing, closing it does not disturb the detached enumeration.
func (e *DocEnumerator) Detach() *DocEnumerator {
	d := *e
	*e = DocEnumerator{}
	return &d
}

// Close releases the cursor. It is idempotent and safe on the zero
// value.
func (e *DocEnumerator) Close() error {
	e.doc = nil
	e.docIDs = nil
	if e.cursor == nil {
		return nil
	}
	log.Enum.Debug().Msg("close enumerator")
	c := e.cursor
	e.cursor = nil
	return c.Close()
}

// endOfRange reports whether err just means there is no matching
// document, which ends an enumeration instead of failing it.
func endOfRange(err error) bool {
	return errors.Is(err, port.ErrExhausted) || errors.Is(err, port.ErrNotFound)
}
