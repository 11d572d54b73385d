package enum_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goydb/forest/pkg/bbolt_engine"
	"github.com/goydb/forest/pkg/enum"
	"github.com/goydb/forest/pkg/model"
	"github.com/goydb/forest/pkg/port"
	"github.com/stretchr/testify/require"
)

func WithTestKeyStore(t *testing.T, fn func(ks port.KeyStore)) {
	t.Helper()
	dir, err := os.MkdirTemp("", "forest-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	db, err := bbolt_engine.Open(filepath.Join(dir, "test.db"))
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

// collectIDs drains the enumerator and returns the surfaced IDs.
func collectIDs(t *testing.T, e *enum.DocEnumerator) []string {
	t.Helper()
	var ids []string
	for {
		ok, err := e.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, e.Document().ID)
	}
	return ids
}

func collectSeqs(t *testing.T, e *enum.DocEnumerator) []model.Sequence {
	t.Helper()
	var seqs []model.Sequence
	for {
		ok, err := e.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		seqs = append(seqs, e.Document().Sequence)
	}
	return seqs
}
