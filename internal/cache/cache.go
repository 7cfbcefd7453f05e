// Package cache implements a bounded LRU cache of oracle verdicts keyed
// by a candidate's content hash, so a delta loop that re-derives a
// candidate it has already tried (a common occurrence once a pass starts
// backtracking over similar byte ranges) can skip forking a worker
// entirely. It is gated behind the `cache` option and left off by
// default; callers opt in by constructing one and attaching it to a
// delta.Loop.
package cache

import (
	"container/list"
	"crypto/sha256"
	"os"
	"sync"
)

// Key identifies a candidate's contents by size and hash, avoiding a full
// byte comparison on lookup while still being collision-safe in practice.
type Key struct {
	Size int64
	Sum  [sha256.Size]byte
}

// KeyOf hashes the file at path into a Key.
func KeyOf(path string) (Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Key{}, err
	}
	return Key{Size: int64(len(data)), Sum: sha256.Sum256(data)}, nil
}

// Cache is a fixed-capacity LRU mapping a candidate's content key to the
// oracle verdict previously observed for it, so a delta loop that
// re-derives an already-tried candidate (a common occurrence once a pass
// starts backtracking over similar byte ranges) can skip forking a worker
// entirely.
type Cache struct {
	mu       sync.Mutex
	capacity int
	items    map[Key]*list.Element
	order    *list.List
}

type entry struct {
	key         Key
	interesting bool
}

// New returns an empty Cache holding at most capacity entries.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		items:    make(map[Key]*list.Element, capacity),
		order:    list.New(),
	}
}

// Lookup reports a previously recorded verdict for key, if any.
func (c *Cache) Lookup(key Key) (interesting bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, found := c.items[key]
	if !found {
		return false, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).interesting, true
}

// Record stores the oracle's verdict for key, evicting the
// least-recently-used entry if the cache is at capacity.
func (c *Cache) Record(key Key, interesting bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, found := c.items[key]; found {
		el.Value.(*entry).interesting = interesting
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry{key: key, interesting: interesting})
	c.items[key] = el

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
