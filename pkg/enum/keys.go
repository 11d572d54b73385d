package enum

import (
	"github.com/goydb/forest/pkg/port"
)

// keyBuf is a document key with room up to the engine's length
// ceiling. successor and predecessor transform it in place into the
// adjacent key of the store's byte order, which is how exclusive range
// bounds are turned into the inclusive bounds engines work with.
type keyBuf struct {
	data [port.MaxKeyLength]byte
	size int
}

// newKeyBuf copies key, which must not exceed port.MaxKeyLength.
func newKeyBuf(key []byte) *keyBuf {
	b := &keyBuf{size: len(key)}
	copy(b.data[:], key)
	return b
}

// bytes returns a copy of the current key.
func (b *keyBuf) bytes() []byte {
	out := make([]byte, b.size)
	copy(out, b.data[:b.size])
	return out
}

// successor mutates the key into the immediately following one: append
// a zero byte, or increment the last byte carrying any overflow once
// the key is at full length. Reports false if no following key exists,
// which is only the case for the full length all 0xFF key.
func (b *keyBuf) successor() bool {
	if b.size < port.MaxKeyLength {
		b.data[b.size] = 0x00
		b.size++
		return true
	}
	for i := b.size - 1; ; i-- {
		b.data[i]++
		if b.data[i] != 0x00 {
			return true
		}
		b.size--
		if b.size == 0 {
			return false
		}
	}
}

// predecessor mutates the key into the immediately preceding one:
// decrement the last byte carrying any underflow, then pad with 0xFF
// bytes up to the ceiling so the result sorts directly below all
// longer keys sharing the original prefix. Reports false if no
// preceding key exists, which is the case for empty and all zero keys.
func (b *keyBuf) predecessor() bool {
	if b.size == 0 {
		return false
	}
	for i := b.size - 1; ; i-- {
		b.data[i]--
		if b.data[i] != 0xFF {
			break
		}
		if i == 0 {
			return false
		}
	}
	for i := b.size; i < port.MaxKeyLength; i++ {
		b.data[i] = 0xFF
	}
	b.size = port.MaxKeyLength
	return true
}

// PrefixRange returns bounds covering every key that begins with
// prefix. The start bound is inclusive, the end bound exclusive and
// meant to be used with InclusiveEnd disabled. A nil end means no
// finite bound exists, the prefix is empty or all 0xFF.
func PrefixRange(prefix []byte) (start, end []byte) {
	start = append([]byte(nil), prefix...)
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] != 0xFF {
			end = append([]byte(nil), prefix[:i+1]...)
			end[i]++
			break
		}
	}
	return start, end
}
