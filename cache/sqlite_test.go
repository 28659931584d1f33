package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteCache(t *testing.T) SQLiteCache {
	t.Helper()
	return NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"))
}

func TestSQLitePutGetRoundtrip(t *testing.T) {
	c := newTestSQLiteCache(t)

	entry := CacheEntry{
		Key:         "GET:/page",
		RequestedAt: time.Unix(1000, 0),
		ReceivedAt:  time.Unix(1001, 0),
		Bytes:       []byte("HTTP/1.1 200 OK\r\n\r\nhello"),
	}
	require.NoError(t, c.Put("static-v1.2", "GET:/page", entry))

	got, found, err := c.Get("static-v1.2", "GET:/page")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entry.Bytes, got.Bytes)
	assert.Equal(t, entry.RequestedAt.Unix(), got.RequestedAt.Unix())
	assert.Equal(t, entry.ReceivedAt.Unix(), got.ReceivedAt.Unix())
}

func TestSQLiteGetMissIsNotAnError(t *testing.T) {
	c := newTestSQLiteCache(t)

	_, found, err := c.Get("static-v1.2", "GET:/nothing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteNamespacesIncludeEmptyOnes(t *testing.T) {
	c := newTestSQLiteCache(t)

	require.NoError(t, c.EnsureNamespace("dynamic-v1.2"))
	require.NoError(t, c.Put("static-v1.2", "GET:/", CacheEntry{Bytes: []byte("x")}))

	names, err := c.Namespaces()
	require.NoError(t, err)
	assert.Equal(t, []string{"dynamic-v1.2", "static-v1.2"}, names)
}

func TestSQLiteDropNamespace(t *testing.T) {
	c := newTestSQLiteCache(t)

	require.NoError(t, c.Put("static-v1.1", "GET:/", CacheEntry{Bytes: []byte("old")}))
	require.NoError(t, c.Put("static-v1.2", "GET:/", CacheEntry{Bytes: []byte("new")}))
	require.NoError(t, c.DropNamespace("static-v1.1"))

	names, err := c.Namespaces()
	require.NoError(t, err)
	assert.Equal(t, []string{"static-v1.2"}, names)

	_, found, err := c.Get("static-v1.1", "GET:/")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = c.Get("static-v1.2", "GET:/")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSQLitePurge(t *testing.T) {
	c := newTestSQLiteCache(t)

	require.NoError(t, c.Put("dynamic-v1.2", "GET:/a", CacheEntry{Bytes: []byte("a")}))
	require.NoError(t, c.Put("dynamic-v1.2", "GET:/b", CacheEntry{Bytes: []byte("b")}))
	require.NoError(t, c.Purge("dynamic-v1.2", "GET:/a"))

	keys, err := c.Keys("dynamic-v1.2")
	require.NoError(t, err)
	assert.Equal(t, []string{"GET:/b"}, keys)
}

func TestSQLitePutReplacesEntry(t *testing.T) {
	c := newTestSQLiteCache(t)

	require.NoError(t, c.Put("static-v1.2", "GET:/", CacheEntry{Bytes: []byte("first")}))
	require.NoError(t, c.Put("static-v1.2", "GET:/", CacheEntry{Bytes: []byte("second")}))

	got, found, err := c.Get("static-v1.2", "GET:/")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("second"), got.Bytes)

	keys, err := c.Keys("static-v1.2")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}
