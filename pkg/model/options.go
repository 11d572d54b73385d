package model

// ContentOptions selects how much of a document an enumeration fetches.
type ContentOptions uint8

const (
	// DefaultContent fetches metadata and body.
	DefaultContent ContentOptions = 0

	// MetaOnly skips loading the body. BodySize is still populated.
	MetaOnly ContentOptions = 1 << 0
)

// NoLimit disables the enumeration limit.
const NoLimit = ^uint64(0)

// EnumeratorOptions control range, order and windowing of a document
// enumeration. The zero value is NOT a useful default because it limits
// the enumeration to zero documents, start from DefaultEnumeratorOptions
// instead.
type EnumeratorOptions struct {
	// Skip drops the first n documents of the enumeration before any
	// document is surfaced.
	Skip uint64

	// Limit caps the number of surfaced documents. NoLimit disables
	// the cap, zero yields an empty enumeration.
	Limit uint64

	// Descending reverses the enumeration order. Range bounds are
	// named in iteration order, a descending enumeration starts at
	// its higher bound.
	Descending bool

	// InclusiveStart and InclusiveEnd control whether a document
	// sitting exactly on the respective bound is part of the
	// enumeration. Ignored for explicit ID lists.
	InclusiveStart bool
	InclusiveEnd   bool

	// IncludeDeleted surfaces tombstones. Ignored for explicit ID
	// lists, looking up an ID always reports its tombstone.
	IncludeDeleted bool

	// Content selects metadata only or full fetches.
	Content ContentOptions
}

// DefaultEnumeratorOptions enumerate everything in ascending order with
// inclusive bounds, skipping tombstones.
var DefaultEnumeratorOptions = EnumeratorOptions{
	Limit:          NoLimit,
	InclusiveStart: true,
	InclusiveEnd:   true,
}
