/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package lrucache provides a generic in-memory cache with LRU eviction policy.
package lrucache

import (
	"container/list"
	"fmt"
	"sync"
)

type cacheEntry[K comparable, V any] struct {
	key   K
	value V
}

// LRUCache is a concurrency-safe cache that evicts the least recently used entry when it's full.
type LRUCache[K comparable, V any] struct {
	maxEntries int

	mu      sync.Mutex
	lruList *list.List
	cache   map[K]*list.Element

	onEvict func(key K, value V)
}

// Options represents options for the cache.
type Options[K comparable, V any] struct {
	// OnEvict is called (under the cache lock) for every entry evicted due to the size limit.
	OnEvict func(key K, value V)
}

// New creates a new LRUCache with the provided maximum number of entries.
func New[K comparable, V any](maxEntries int) (*LRUCache[K, V], error) {
	return NewWithOpts[K, V](maxEntries, Options[K, V]{})
}

// NewWithOpts creates a new LRUCache with the provided maximum number of entries and options.
func NewWithOpts[K comparable, V any](maxEntries int, opts Options[K, V]) (*LRUCache[K, V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be greater than 0, got %d", maxEntries)
	}
	return &LRUCache[K, V]{
		maxEntries: maxEntries,
		lruList:    list.New(),
		cache:      make(map[K]*list.Element),
		onEvict:    opts.OnEvict,
	}, nil
}

// Get returns a value from the cache and marks it as recently used.
func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(key)
}

// Add adds or replaces a value in the cache.
func (c *LRUCache[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lruList.MoveToFront(elem)
		elem.Value.(*cacheEntry[K, V]).value = value
		return
	}
	c.addNew(key, value)
}

// GetOrAdd returns a value from the cache or adds the one returned by valueProvider.
// valueProvider is called under the cache lock, so it must not use the cache.
func (c *LRUCache[K, V]) GetOrAdd(key K, valueProvider func() V) (value V, exists bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value, exists = c.get(key); exists {
		return value, true
	}
	value = valueProvider()
	c.addNew(key, value)
	return value, false
}

// Remove removes a value from the cache.
func (c *LRUCache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		return false
	}
	c.lruList.Remove(elem)
	delete(c.cache, key)
	return true
}

// Purge removes all entries.
func (c *LRUCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[K]*list.Element)
	c.lruList.Init()
}

// Len returns the number of entries in the cache.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

func (c *LRUCache[K, V]) get(key K) (value V, ok bool) {
	elem, hit := c.cache[key]
	if !hit {
		return value, false
	}
	c.lruList.MoveToFront(elem)
	return elem.Value.(*cacheEntry[K, V]).value, true
}

func (c *LRUCache[K, V]) addNew(key K, value V) {
	c.cache[key] = c.lruList.PushFront(&cacheEntry[K, V]{key: key, value: value})
	if len(c.cache) <= c.maxEntries {
		return
	}
	oldest := c.lruList.Back()
	c.lruList.Remove(oldest)
	entry := oldest.Value.(*cacheEntry[K, V])
	delete(c.cache, entry.key)
	if c.onEvict != nil {
		c.onEvict(entry.key, entry.value)
	}
}
