// Package lru remembers recently seen keys for a limited time.
package lru

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable] struct {
	key    K
	expiry time.Time
}

type Cache[K comparable] struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	ll   *list.List
	idx  map[K]*list.Element
	nowF func() time.Time
}

func New[K comparable](capacity int, ttl time.Duration) *Cache[K] {
	if capacity <= 0 {
		capacity = 64
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache[K]{
		cap:  capacity,
		ttl:  ttl,
		ll:   list.New(),
		idx:  map[K]*list.Element{},
		nowF: time.Now,
	}
}

// Seen returns true if key is already present and not expired; otherwise records it and returns false.
func (c *Cache[K]) Seen(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowF()

	if el, ok := c.idx[key]; ok {
		en := el.Value.(*entry[K])
		if now.Before(en.expiry) {
			c.ll.MoveToFront(el)
			return true
		}
		c.ll.Remove(el)
		delete(c.idx, key)
	}

	el := c.ll.PushFront(&entry[K]{key: key, expiry: now.Add(c.ttl)})
	c.idx[key] = el

	for c.ll.Len() > c.cap {
		c.removeTail()
	}
	// expired entries collect at the tail
	for tail := c.ll.Back(); tail != nil; tail = c.ll.Back() {
		if now.Before(tail.Value.(*entry[K]).expiry) {
			break
		}
		c.removeTail()
	}
	return false
}

// Len reports the number of remembered keys, expired ones included.
func (c *Cache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *Cache[K]) removeTail() {
	tail := c.ll.Back()
	if tail == nil {
		return
	}
	delete(c.idx, tail.Value.(*entry[K]).key)
	c.ll.Remove(tail)
}
