package leveldb_engine_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goydb/forest/pkg/leveldb_engine"
	"github.com/goydb/forest/pkg/model"
	"github.com/goydb/forest/pkg/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func WithTestKeyStore(t *testing.T, fn func(ks port.KeyStore)) {
	t.Helper()
	dir, err := os.MkdirTemp("", "forest-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	db, err := leveldb_engine.Open(filepath.Join(dir, "db"))
	require.NoError(t, err)
	defer db.Close()

	fn(db.KeyStore("docs"))
}

func putDocs(t *testing.T, ks port.KeyStore, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := ks.Put(&model.Document{
			ID:   id,
			Meta: []byte("meta " + id),
			Body: []byte("body of " + id),
		})
		require.NoError(t, err)
	}
}

func TestKeyStore(t *testing.T) {
	WithTestKeyStore(t, func(ks port.KeyStore) {
		t.Run("put assigns increasing sequences", func(t *testing.T) {
			putDocs(t, ks, "a", "b")

			doc, err := ks.Get([]byte("a"), model.DefaultContent)
			require.NoError(t, err)
			assert.Equal(t, model.Sequence(1), doc.Sequence)
			assert.Equal(t, []byte("meta a"), doc.Meta)
			assert.Equal(t, []byte("body of a"), doc.Body)

			seq, err := ks.LastSequence()
			require.NoError(t, err)
			assert.Equal(t, model.Sequence(2), seq)
		})

		t.Run("updates supersede the old sequence", func(t *testing.T) {
			putDocs(t, ks, "a")

			_, err := ks.GetBySequence(1, model.DefaultContent)
			assert.ErrorIs(t, err, port.ErrNotFound)

			doc, err := ks.GetBySequence(3, model.DefaultContent)
			require.NoError(t, err)
			assert.Equal(t, "a", doc.ID)

			n, err := ks.Count()
			require.NoError(t, err)
			assert.Equal(t, uint64(2), n)
		})

		t.Run("delete leaves a counted tombstone", func(t *testing.T) {
			seq, err := ks.Delete([]byte("b"))
			require.NoError(t, err)
			assert.Equal(t, model.Sequence(4), seq)

			doc, err := ks.Get([]byte("b"), model.DefaultContent)
			require.NoError(t, err)
			assert.True(t, doc.Deleted)
			assert.Equal(t, []byte("meta b"), doc.Meta)
			assert.Nil(t, doc.Body)

			_, err = ks.Delete([]byte("b"))
			assert.ErrorIs(t, err, port.ErrNotFound)

			n, err := ks.Count()
			require.NoError(t, err)
			assert.Equal(t, uint64(2), n)
		})

		t.Run("unknown and empty keys", func(t *testing.T) {
			_, err := ks.Get([]byte("nope"), model.DefaultContent)
			assert.ErrorIs(t, err, port.ErrNotFound)
			_, err = ks.Get(nil, model.DefaultContent)
			assert.ErrorIs(t, err, port.ErrEmptyKey)
			_, err = ks.Delete([]byte("nope"))
			assert.ErrorIs(t, err, port.ErrNotFound)
		})
	})
}

func TestKeyCursor(t *testing.T) {
	WithTestKeyStore(t, func(ks port.KeyStore) {
		putDocs(t, ks, "a", "b", "c", "d", "e")

		t.Run("walks the bounded range", func(t *testing.T) {
			cur, err := ks.OpenKeyCursor([]byte("b"), []byte("d"), port.CursorOptions{})
			require.NoError(t, err)
			defer cur.Close()

			doc, err := cur.Document()
			require.NoError(t, err)
			assert.Equal(t, "b", doc.ID)

			require.NoError(t, cur.Next())
			require.NoError(t, cur.Next())
			doc, err = cur.Document()
			require.NoError(t, err)
			assert.Equal(t, "d", doc.ID)

			assert.ErrorIs(t, cur.Next(), port.ErrExhausted)
		})

		t.Run("seeks clamp into the range", func(t *testing.T) {
			cur, err := ks.OpenKeyCursor([]byte("b"), []byte("d"), port.CursorOptions{})
			require.NoError(t, err)
			defer cur.Close()

			require.NoError(t, cur.SeekGE([]byte("1")))
			doc, err := cur.Document()
			require.NoError(t, err)
			assert.Equal(t, "b", doc.ID)

			require.NoError(t, cur.SeekLE([]byte("x")))
			doc, err = cur.Document()
			require.NoError(t, err)
			assert.Equal(t, "d", doc.ID)

			assert.ErrorIs(t, cur.SeekGE([]byte("x")), port.ErrNotFound)
			assert.ErrorIs(t, cur.SeekLE([]byte("1")), port.ErrNotFound)
		})

		t.Run("last and prev", func(t *testing.T) {
			cur, err := ks.OpenKeyCursor([]byte("b"), []byte("d"), port.CursorOptions{})
			require.NoError(t, err)
			defer cur.Close()

			require.NoError(t, cur.Last())
			doc, err := cur.Document()
			require.NoError(t, err)
			assert.Equal(t, "d", doc.ID)

			require.NoError(t, cur.Prev())
			require.NoError(t, cur.Prev())
			doc, err = cur.Document()
			require.NoError(t, err)
			assert.Equal(t, "b", doc.ID)
			assert.ErrorIs(t, cur.Prev(), port.ErrExhausted)
		})

		t.Run("snapshot keeps its view", func(t *testing.T) {
			cur, err := ks.OpenKeyCursor(nil, nil, port.CursorOptions{})
			require.NoError(t, err)
			defer cur.Close()

			putDocs(t, ks, "zz")

			require.NoError(t, cur.Last())
			doc, err := cur.Document()
			require.NoError(t, err)
			assert.Equal(t, "e", doc.ID)
		})

		t.Run("closed cursor rejects use", func(t *testing.T) {
			cur, err := ks.OpenKeyCursor(nil, nil, port.CursorOptions{})
			require.NoError(t, err)
			require.NoError(t, cur.Close())
			require.NoError(t, cur.Close())

			assert.ErrorIs(t, cur.Next(), port.ErrClosed)
			_, err = cur.Document()
			assert.ErrorIs(t, err, port.ErrClosed)
		})
	})
}

func TestSequenceCursor(t *testing.T) {
	WithTestKeyStore(t, func(ks port.KeyStore) {
		// a=1 b=2 c=3, b moves to 4, c is deleted at 5
		putDocs(t, ks, "a", "b", "c")
		putDocs(t, ks, "b")
		_, err := ks.Delete([]byte("c"))
		require.NoError(t, err)

		t.Run("walks live sequences", func(t *testing.T) {
			cur, err := ks.OpenSequenceCursor(1, model.MaxSequence, port.CursorOptions{})
			require.NoError(t, err)
			defer cur.Close()

			var seqs []model.Sequence
			for {
				doc, err := cur.Document()
				require.NoError(t, err)
				seqs = append(seqs, doc.Sequence)
				if err := cur.Next(); err != nil {
					assert.ErrorIs(t, err, port.ErrExhausted)
					break
				}
			}
			assert.Equal(t, []model.Sequence{1, 4}, seqs)
		})

		t.Run("tombstones surface when included", func(t *testing.T) {
			cur, err := ks.OpenSequenceCursor(5, 5, port.CursorOptions{IncludeDeleted: true})
			require.NoError(t, err)
			defer cur.Close()

			doc, err := cur.Document()
			require.NoError(t, err)
			assert.Equal(t, "c", doc.ID)
			assert.True(t, doc.Deleted)
			assert.Equal(t, model.Sequence(5), doc.Sequence)
		})

		t.Run("bounds exclude the rest", func(t *testing.T) {
			cur, err := ks.OpenSequenceCursor(2, 3, port.CursorOptions{})
			require.NoError(t, err)
			defer cur.Close()

			// sequences 2 and 3 are superseded or deleted
			_, err = cur.Document()
			assert.ErrorIs(t, err, port.ErrExhausted)
		})
	})
}

func TestStoreSeparation(t *testing.T) {
	dir, err := os.MkdirTemp("", "forest-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	db, err := leveldb_engine.Open(filepath.Join(dir, "db"))
	require.NoError(t, err)
	defer db.Close()

	one := db.KeyStore("one")
	two := db.KeyStore("two")
	putDocs(t, one, "a", "b")
	putDocs(t, two, "z")

	_, err = two.Get([]byte("a"), model.DefaultContent)
	assert.ErrorIs(t, err, port.ErrNotFound)

	seq, err := two.LastSequence()
	require.NoError(t, err)
	assert.Equal(t, model.Sequence(1), seq)

	cur, err := one.OpenKeyCursor(nil, nil, port.CursorOptions{})
	require.NoError(t, err)
	defer cur.Close()
	require.NoError(t, cur.Last())
	doc, err := cur.Document()
	require.NoError(t, err)
	assert.Equal(t, "b", doc.ID)
}

func TestUnwrittenStore(t *testing.T) {
	WithTestKeyStore(t, func(ks port.KeyStore) {
		seq, err := ks.LastSequence()
		require.NoError(t, err)
		assert.Equal(t, model.Sequence(0), seq)

		n, err := ks.Count()
		require.NoError(t, err)
		assert.Zero(t, n)

		_, err = ks.OpenKeyCursor(nil, nil, port.CursorOptions{})
		assert.ErrorIs(t, err, port.ErrNotFound)

		_, err = ks.OpenSequenceCursor(1, model.MaxSequence, port.CursorOptions{})
		assert.ErrorIs(t, err, port.ErrNotFound)
	})
}

func TestReopen(t *testing.T) {
	dir, err := os.MkdirTemp("", "forest-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "db")

	db, err := leveldb_engine.Open(path)
	require.NoError(t, err)
	putDocs(t, db.KeyStore("docs"), "a", "b")
	require.NoError(t, db.Close())

	db, err = leveldb_engine.Open(path)
	require.NoError(t, err)
	defer db.Close()
	ks := db.KeyStore("docs")

	doc, err := ks.Get([]byte("a"), model.DefaultContent)
	require.NoError(t, err)
	assert.Equal(t, []byte("body of a"), doc.Body)

	seq, err := ks.LastSequence()
	require.NoError(t, err)
	assert.Equal(t, model.Sequence(2), seq)

	n, err := ks.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	// counters continue where they left off
	seq, err = ks.Put(&model.Document{ID: "c"})
	require.NoError(t, err)
	assert.Equal(t, model.Sequence(3), seq)
}
