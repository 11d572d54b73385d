package model

import "encoding/binary"

// Sequence is a monotonically increasing change counter. Every mutation
// of a document assigns it the next sequence of its key store, starting
// at 1. Zero is never assigned and marks a document that was not found.
type Sequence uint64

// MaxSequence is the largest possible sequence, usable as an open upper
// bound when enumerating changes.
const MaxSequence Sequence = ^Sequence(0)

// Key returns the big endian encoding of the sequence, eight bytes so
// that byte order equals numeric order.
func (s Sequence) Key() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(s))
	return b
}

// SequenceFromKey decodes a key produced by Key.
func SequenceFromKey(b []byte) Sequence {
	return Sequence(binary.BigEndian.Uint64(b))
}
