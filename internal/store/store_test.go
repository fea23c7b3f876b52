package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "healthdesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SetGetOverwrite(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, ok, err := s.Get(ctx, "authToken")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "authToken", "first"))
	require.NoError(t, s.Set(ctx, "authToken", "second"))

	v, ok, err := s.Get(ctx, "authToken")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestStore_DeleteMany(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Set(ctx, "authToken", "t"))
	require.NoError(t, s.Set(ctx, "user", "{}"))
	require.NoError(t, s.Set(ctx, "theme", "light"))

	require.NoError(t, s.Delete(ctx, "authToken", "user", "org_id"))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"theme"}, keys)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "org_id", "org-9"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get(ctx, "org_id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "org-9", v)
}
