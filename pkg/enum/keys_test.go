package enum

import (
	"bytes"
	"testing"

	"github.com/goydb/forest/pkg/port"
	"github.com/stretchr/testify/assert"
)

func TestSuccessor(t *testing.T) {
	t.Run("appends a zero byte below the ceiling", func(t *testing.T) {
		b := newKeyBuf([]byte("a"))
		assert.True(t, b.successor())
		assert.Equal(t, []byte("a\x00"), b.bytes())
	})

	t.Run("empty key", func(t *testing.T) {
		b := newKeyBuf(nil)
		assert.True(t, b.successor())
		assert.Equal(t, []byte{0x00}, b.bytes())
	})

	t.Run("increments the last byte at full length", func(t *testing.T) {
		key := bytes.Repeat([]byte{'a'}, port.MaxKeyLength)
		b := newKeyBuf(key)
		assert.True(t, b.successor())

		want := bytes.Repeat([]byte{'a'}, port.MaxKeyLength)
		want[port.MaxKeyLength-1] = 'b'
		assert.Equal(t, want, b.bytes())
	})

	t.Run("carries overflow and shortens", func(t *testing.T) {
		key := bytes.Repeat([]byte{'a'}, port.MaxKeyLength)
		key[port.MaxKeyLength-1] = 0xFF
		b := newKeyBuf(key)
		assert.True(t, b.successor())

		want := bytes.Repeat([]byte{'a'}, port.MaxKeyLength-1)
		want[port.MaxKeyLength-2] = 'b'
		assert.Equal(t, want, b.bytes())
	})

	t.Run("no successor above the maximal key", func(t *testing.T) {
		b := newKeyBuf(bytes.Repeat([]byte{0xFF}, port.MaxKeyLength))
		assert.False(t, b.successor())
	})

	t.Run("sorts directly above the original", func(t *testing.T) {
		for _, key := range []string{"a", "banana", "doc/0001", "\x00", "z\xff"} {
			b := newKeyBuf([]byte(key))
			assert.True(t, b.successor())
			assert.Equal(t, 1, bytes.Compare(b.bytes(), []byte(key)), "successor of %q", key)
		}
	})
}

func TestPredecessor(t *testing.T) {
	t.Run("decrements and pads to the ceiling", func(t *testing.T) {
		b := newKeyBuf([]byte("b"))
		assert.True(t, b.predecessor())

		want := bytes.Repeat([]byte{0xFF}, port.MaxKeyLength)
		want[0] = 'a'
		assert.Equal(t, want, b.bytes())
	})

	t.Run("borrows through zero bytes", func(t *testing.T) {
		b := newKeyBuf([]byte("b\x00"))
		assert.True(t, b.predecessor())

		want := bytes.Repeat([]byte{0xFF}, port.MaxKeyLength)
		want[0] = 'a'
		assert.Equal(t, want, b.bytes())
	})

	t.Run("no predecessor below the zero key", func(t *testing.T) {
		b := newKeyBuf([]byte{0x00, 0x00})
		assert.False(t, b.predecessor())
	})

	t.Run("no predecessor below the empty key", func(t *testing.T) {
		b := newKeyBuf(nil)
		assert.False(t, b.predecessor())
	})

	t.Run("sorts directly below the original", func(t *testing.T) {
		for _, key := range []string{"b", "banana", "doc/0001", "z\xff"} {
			b := newKeyBuf([]byte(key))
			assert.True(t, b.predecessor())
			assert.Equal(t, -1, bytes.Compare(b.bytes(), []byte(key)), "predecessor of %q", key)
			assert.Len(t, b.bytes(), port.MaxKeyLength)
		}
	})
}

func TestPrefixRange(t *testing.T) {
	t.Run("increments past the prefix", func(t *testing.T) {
		start, end := PrefixRange([]byte("doc/"))
		assert.Equal(t, []byte("doc/"), start)
		assert.Equal(t, []byte("doc0"), end)
	})

	t.Run("drops trailing 0xFF bytes", func(t *testing.T) {
		start, end := PrefixRange([]byte("a\xff"))
		assert.Equal(t, []byte("a\xff"), start)
		assert.Equal(t, []byte("b"), end)
	})

	t.Run("no finite end for an all 0xFF prefix", func(t *testing.T) {
		_, end := PrefixRange([]byte{0xFF, 0xFF})
		assert.Nil(t, end)
	})

	t.Run("empty prefix covers everything", func(t *testing.T) {
		start, end := PrefixRange(nil)
		assert.Nil(t, start)
		assert.Nil(t, end)
	})
}
