/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUCache(t *testing.T) {
	var evicted []string
	cache, err := NewWithOpts[string, int](2, Options[string, int]{
		OnEvict: func(key string, _ int) { evicted = append(evicted, key) },
	})
	require.NoError(t, err)

	cache.Add("a", 1)
	cache.Add("b", 2)
	v, ok := cache.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	cache.Add("c", 3) // "b" is the least recently used.
	require.Equal(t, []string{"b"}, evicted)
	_, ok = cache.Get("b")
	require.False(t, ok)
	require.Equal(t, 2, cache.Len())

	cache.Add("a", 10)
	v, _ = cache.Get("a")
	require.Equal(t, 10, v)

	v, exists := cache.GetOrAdd("c", func() int { return 30 })
	require.True(t, exists)
	require.Equal(t, 3, v)
	v, exists = cache.GetOrAdd("d", func() int { return 4 })
	require.False(t, exists)
	require.Equal(t, 4, v)
	require.Equal(t, []string{"b", "a"}, evicted)

	require.True(t, cache.Remove("d"))
	require.False(t, cache.Remove("d"))
	cache.Purge()
	require.Equal(t, 0, cache.Len())
}

func TestNew_InvalidSize(t *testing.T) {
	_, err := New[string, int](0)
	require.Error(t, err)
}
