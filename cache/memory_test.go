package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemCacheRoundtrip(t *testing.T) {
	c := NewMemCache(0)

	entry := CacheEntry{Key: "GET:/page", Bytes: []byte("hello")}
	require.NoError(t, c.Put("static-v1.2", "GET:/page", entry))

	got, found, err := c.Get("static-v1.2", "GET:/page")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entry.Bytes, got.Bytes)

	_, found, err = c.Get("static-v1.2", "GET:/other")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = c.Get("nonexistent", "GET:/page")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemCacheNamespaces(t *testing.T) {
	c := NewMemCache(0)

	require.NoError(t, c.EnsureNamespace("dynamic-v1.2"))
	require.NoError(t, c.Put("static-v1.2", "GET:/", CacheEntry{Bytes: []byte("x")}))

	names, err := c.Namespaces()
	require.NoError(t, err)
	assert.Equal(t, []string{"dynamic-v1.2", "static-v1.2"}, names)

	require.NoError(t, c.DropNamespace("static-v1.2"))
	names, err = c.Namespaces()
	require.NoError(t, err)
	assert.Equal(t, []string{"dynamic-v1.2"}, names)
}

func TestMemCacheEvictsOldest(t *testing.T) {
	c := NewMemCache(2)

	require.NoError(t, c.Put("dynamic-v1.2", "GET:/a", CacheEntry{Bytes: []byte("a")}))
	require.NoError(t, c.Put("dynamic-v1.2", "GET:/b", CacheEntry{Bytes: []byte("b")}))
	require.NoError(t, c.Put("dynamic-v1.2", "GET:/c", CacheEntry{Bytes: []byte("c")}))

	_, found, err := c.Get("dynamic-v1.2", "GET:/a")
	require.NoError(t, err)
	assert.False(t, found, "oldest entry should have been evicted")

	keys, err := c.Keys("dynamic-v1.2")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestMemCachePurge(t *testing.T) {
	c := NewMemCache(0)

	require.NoError(t, c.Put("dynamic-v1.2", "GET:/a", CacheEntry{Bytes: []byte("a")}))
	require.NoError(t, c.Purge("dynamic-v1.2", "GET:/a"))

	_, found, err := c.Get("dynamic-v1.2", "GET:/a")
	require.NoError(t, err)
	assert.False(t, found)

	// purging in a missing namespace is fine
	require.NoError(t, c.Purge("nonexistent", "GET:/a"))
}
