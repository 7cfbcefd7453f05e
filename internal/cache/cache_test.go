package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyOf_SameContentsSameKey(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("same bytes"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("same bytes"), 0644))

	ka, err := KeyOf(a)
	require.NoError(t, err)
	kb, err := KeyOf(b)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
}

func TestLookupRecord_RoundTrip(t *testing.T) {
	c := New(4)
	key := Key{Size: 3}

	_, ok := c.Lookup(key)
	assert.False(t, ok)

	c.Record(key, true)
	val, ok := c.Lookup(key)
	require.True(t, ok)
	assert.True(t, val)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	k1, k2, k3 := Key{Size: 1}, Key{Size: 2}, Key{Size: 3}

	c.Record(k1, true)
	c.Record(k2, true)
	// touch k1 so it is the most recently used, k2 becomes the LRU victim
	_, _ = c.Lookup(k1)
	c.Record(k3, true)

	_, ok := c.Lookup(k2)
	assert.False(t, ok, "k2 should have been evicted")

	_, ok = c.Lookup(k1)
	assert.True(t, ok)
	_, ok = c.Lookup(k3)
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}
