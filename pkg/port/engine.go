package port

import (
	"errors"

	"github.com/goydb/forest/pkg/model"
)

// MaxKeyLength is the longest document key an engine accepts. The
// enumerator relies on the ceiling to compute byte-exact range bounds.
const MaxKeyLength = 3840

var (
	// ErrNotFound reports a missing document, a seek past the cursor
	// range or a missing key store. Callers treat it as a soft miss.
	ErrNotFound = errors.New("resource not found")

	// ErrExhausted reports a cursor move beyond its range. Not an
	// error condition for enumerations, they end on it.
	ErrExhausted = errors.New("cursor exhausted")

	// ErrClosed reports use of a closed cursor or store.
	ErrClosed = errors.New("already closed")

	// ErrEmptyKey rejects the empty document key on writes.
	ErrEmptyKey = errors.New("empty document key")

	// ErrKeyTooLong rejects keys longer than MaxKeyLength.
	ErrKeyTooLong = errors.New("document key exceeds maximum length")
)

// CursorOptions control what documents a cursor surfaces.
type CursorOptions struct {
	// MetaOnly fetches documents without their body.
	MetaOnly bool

	// IncludeDeleted surfaces tombstones. Without it cursors step
	// over tombstones transparently, moves and seeks only ever
	// observe live documents.
	IncludeDeleted bool
}

// Engine is a storage backend holding named key stores.
type Engine interface {
	// KeyStore returns the named key store. Names must not contain a
	// slash, engines use it to separate namespaces.
	KeyStore(name string) KeyStore
	Close() error
}

// KeyStore is one namespace of documents, addressable by key and by
// sequence.
type KeyStore interface {
	// OpenKeyCursor opens a cursor over documents with min <= key <= max
	// in ascending key order. A nil bound leaves that side open. The
	// cursor is positioned on the first document of the range, or
	// nowhere if the range is empty. Opening a key store that was
	// never written returns ErrNotFound.
	OpenKeyCursor(min, max []byte, opts CursorOptions) (Cursor, error)

	// OpenSequenceCursor is OpenKeyCursor over the sequence index,
	// min <= seq <= max.
	OpenSequenceCursor(min, max model.Sequence, opts CursorOptions) (Cursor, error)

	// Get fetches a single document by key. Tombstones are returned
	// with Deleted set. Unknown keys return ErrNotFound.
	Get(key []byte, content model.ContentOptions) (*model.Document, error)

	// GetBySequence fetches the document that currently holds the
	// given sequence. Superseded sequences return ErrNotFound.
	GetBySequence(seq model.Sequence, content model.ContentOptions) (*model.Document, error)

	// Put stores doc under doc.ID, assigning the next sequence of the
	// store. An empty ID is replaced by a fresh UUID. The assigned
	// sequence is stored into doc.Sequence and returned.
	Put(doc *model.Document) (model.Sequence, error)

	// Delete replaces the document with a tombstone that keeps the
	// metadata and receives a fresh sequence. Unknown keys return
	// ErrNotFound.
	Delete(key []byte) (model.Sequence, error)

	// LastSequence returns the highest sequence assigned so far.
	LastSequence() (model.Sequence, error)

	// Count returns the number of stored records, tombstones included.
	Count() (uint64, error)
}

// Cursor walks a bounded range of a key store. All moves and seeks
// stay within the bounds the cursor was opened with. A cursor holds a
// read snapshot of its store until closed, Close is idempotent.
type Cursor interface {
	// Next and Prev move one document forward respectively backward.
	// Moving outside the range returns ErrExhausted, the cursor is
	// then no longer positioned.
	Next() error
	Prev() error

	// SeekGE positions on the first document at or after key, SeekLE
	// on the last document at or before key. A key below the range is
	// clamped for SeekGE, one above the range for SeekLE. If no
	// document matches, ErrNotFound is returned and the cursor is no
	// longer positioned.
	SeekGE(key []byte) error
	SeekLE(key []byte) error

	// Last positions on the final document of the range, ErrExhausted
	// if the range is empty.
	Last() error

	// Document fetches the document at the current position,
	// ErrExhausted if the cursor is not positioned.
	Document() (*model.Document, error)

	Close() error
}
