package bbolt_engine_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goydb/forest/pkg/bbolt_engine"
	"github.com/goydb/forest/pkg/model"
	"github.com/goydb/forest/pkg/port"
	"github.com/stretchr/testify/require"
)

func WithTestDB(t *testing.T, fn func(db *bbolt_engine.DB)) {
	t.Helper()
	dir, err := os.MkdirTemp("", "forest-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	db, err := bbolt_engine.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	defer db.Close()

	fn(db)
}

func WithTestKeyStore(t *testing.T, fn func(ks port.KeyStore)) {
	t.Helper()
	WithTestDB(t, func(db *bbolt_engine.DB) {
		fn(db.KeyStore("docs"))
	})
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
