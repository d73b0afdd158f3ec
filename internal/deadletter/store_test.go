package deadletter_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/russrimm/appinsights-relay/internal/deadletter"
)

func openTestStore(t *testing.T, ttl time.Duration) *deadletter.Store {
	t.Helper()
	store, err := deadletter.Open(filepath.Join(t.TempDir(), "dead.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutListDelete(t *testing.T) {
	store := openTestStore(t, time.Hour)

	require.NoError(t, store.Put(deadletter.Letter{
		ID:       "letter-1",
		Kind:     "Event",
		Name:     "FlowStarted",
		Body:     []byte(`{"name":"Microsoft.ApplicationInsights.Event"}`),
		Error:    "ingestion returned 503",
		Attempts: 3,
	}))

	letters, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "letter-1", letters[0].ID)
	assert.Equal(t, "FlowStarted", letters[0].Name)
	assert.Equal(t, 3, letters[0].Attempts)
	assert.Contains(t, letters[0].Error, "503")
	assert.NotEmpty(t, letters[0].Body)
	assert.False(t, letters[0].CreatedAt.IsZero())

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.Delete("letter-1"))
	n, err = store.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestList_OldestFirst(t *testing.T) {
	store := openTestStore(t, time.Hour)

	now := time.Now()
	require.NoError(t, store.Put(deadletter.Letter{ID: "newer", Kind: "Event", Name: "b", Body: []byte("{}"), CreatedAt: now}))
	require.NoError(t, store.Put(deadletter.Letter{ID: "older", Kind: "Event", Name: "a", Body: []byte("{}"), CreatedAt: now.Add(-time.Minute)}))

	letters, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, letters, 2)
	assert.Equal(t, "older", letters[0].ID)
	assert.Equal(t, "newer", letters[1].ID)
}

func TestPurge_RemovesExpired(t *testing.T) {
	store := openTestStore(t, time.Minute)

	require.NoError(t, store.Put(deadletter.Letter{
		ID: "expired", Kind: "Event", Name: "old", Body: []byte("{}"),
		CreatedAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, store.Put(deadletter.Letter{
		ID: "fresh", Kind: "Event", Name: "new", Body: []byte("{}"),
	}))

	purged, err := store.Purge()
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	letters, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "fresh", letters[0].ID)
}

func TestPut_ReplacesSameID(t *testing.T) {
	store := openTestStore(t, time.Hour)

	require.NoError(t, store.Put(deadletter.Letter{ID: "x", Kind: "Event", Name: "first", Body: []byte("{}")}))
	require.NoError(t, store.Put(deadletter.Letter{ID: "x", Kind: "Event", Name: "second", Body: []byte("{}")}))

	letters, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "second", letters[0].Name)
}
