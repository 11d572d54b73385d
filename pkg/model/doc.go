package model

// Document is a single record of a key store. ID is the document key,
// Sequence the store-assigned change counter of the last mutation.
// Deleted documents stay addressable as tombstones that keep their
// metadata but carry no body.
type Document struct {
	ID       string
	Sequence Sequence
	Deleted  bool

	// Meta is an opaque blob maintained by the caller, stored and
	// returned verbatim. It survives deletion.
	Meta []byte

	// Body is the document content. Nil when the document was fetched
	// with MetaOnly or when it is a tombstone.
	Body []byte

	// BodySize is the stored body length. Unlike Body it is also
	// populated for MetaOnly fetches.
	BodySize uint64
}

// Exists reports whether the document was actually found in the store.
// Enumerating an explicit ID list yields placeholder documents (ID only)
// for unknown IDs, those report false.
func (d *Document) Exists() bool {
	return d.Sequence != 0
}
