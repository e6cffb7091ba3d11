package lru

import (
	"fmt"
	"iter"
	"strings"
)

// Cache is a fixed-capacity LRU cache of values of type T.
//
// The zero value is a valid cache of capacity zero. Use New to get a cache
// that can hold entries.
type Cache[T any] struct {
	entries []entry[T] // cap(entries) is the capacity, len(entries) == length
	head    uint32     // most recently used, valid iff length > 0
	tail    uint32     // least recently used, valid iff length > 0
	length  int
}

// New creates a cache that holds at most capacity values. The whole arena is
// allocated here; later inserts and promotions reuse it.
//
// A zero capacity is accepted, but Insert on such a cache panics.
func New[T any](capacity int) (*Cache[T], error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if uint64(capacity) > MaxCapacity {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrCapacityOverflow, capacity, uint64(MaxCapacity))
	}

	return &Cache[T]{
		entries: make([]entry[T], 0, capacity),
	}, nil
}

// MustNew is like New but panics if the capacity is rejected.
func MustNew[T any](capacity int) *Cache[T] {
	c, err := New[T](capacity)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of cached values.
func (c *Cache[T]) Len() int {
	return c.length
}

// Cap returns the fixed capacity.
func (c *Cache[T]) Cap() int {
	return cap(c.entries)
}

// IsEmpty reports whether the cache holds no values.
func (c *Cache[T]) IsEmpty() bool {
	return c.length == 0
}

// Clear drops every value. The arena is kept for reuse.
func (c *Cache[T]) Clear() {
	clear(c.entries)
	c.entries = c.entries[:0]
	c.head = 0
	c.tail = 0
	c.length = 0
}

// Front returns the most recently used value without reordering.
func (c *Cache[T]) Front() (T, bool) {
	if c.length == 0 {
		var zero T
		return zero, false
	}
	return c.entries[c.head].value, true
}

// FrontMut returns a pointer to the most recently used value, or nil if the
// cache is empty. The pointer is valid until the next call that mutates c.
func (c *Cache[T]) FrontMut() *T {
	if c.length == 0 {
		return nil
	}
	return &c.entries[c.head].value
}

// Back returns the least recently used value, the one the next Insert into a
// full cache overwrites, without reordering.
func (c *Cache[T]) Back() (T, bool) {
	if c.length == 0 {
		var zero T
		return zero, false
	}
	return c.entries[c.tail].value, true
}

// Insert adds v as the most recently used value. When the cache is full the
// least recently used value is overwritten in place.
//
// Insert panics with ErrZeroCapacity if the cache has no capacity.
func (c *Cache[T]) Insert(v T) {
	if cap(c.entries) == 0 {
		panic(ErrZeroCapacity)
	}

	var i uint32
	if c.length == cap(c.entries) {
		i = c.popBack()
		c.entries[i] = entry[T]{value: v}
	} else {
		c.entries = append(c.entries, entry[T]{value: v})
		i = uint32(len(c.entries) - 1)
	}
	c.pushFront(i)
}

// Touch promotes the most recently used value that satisfies pred to the
// front. It reports whether a value matched; when none does the cache is left
// untouched.
func (c *Cache[T]) Touch(pred func(T) bool) bool {
	i, ok := c.find(pred)
	if !ok {
		return false
	}
	c.promote(i)
	return true
}

// Fetch is Touch followed by FrontMut. It returns nil when nothing matched.
func (c *Cache[T]) Fetch(pred func(T) bool) *T {
	if !c.Touch(pred) {
		return nil
	}
	return c.FrontMut()
}

// Lookup scans c most recent first and stops at the first value for which pred
// returns ok. That value is promoted to the front and pred's result returned.
// When nothing matches the cache is left untouched.
//
// Lookup is a function rather than a method because the result type is chosen
// by the caller.
func Lookup[T, R any](c *Cache[T], pred func(T) (R, bool)) (R, bool) {
	i := c.head
	for n := c.length; n > 0; n-- {
		if r, ok := pred(c.entries[i].value); ok {
			c.promote(i)
			return r, true
		}
		i = c.entries[i].next
	}

	var zero R
	return zero, false
}

// All returns an iterator over the cached values, most recent first. The
// cache must not be mutated while iterating.
func (c *Cache[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		i := c.head
		for n := c.length; n > 0; n-- {
			if !yield(c.entries[i].value) {
				return
			}
			i = c.entries[i].next
		}
	}
}

// Items returns a copy of the cached values, most recent first.
func (c *Cache[T]) Items() []T {
	items := make([]T, 0, c.length)
	for v := range c.All() {
		items = append(items, v)
	}
	return items
}

// Clone returns an independent cache with the same capacity, order and
// values. Values are copied shallowly.
func (c *Cache[T]) Clone() *Cache[T] {
	entries := make([]entry[T], len(c.entries), cap(c.entries))
	copy(entries, c.entries)

	return &Cache[T]{
		entries: entries,
		head:    c.head,
		tail:    c.tail,
		length:  c.length,
	}
}

func (c *Cache[T]) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "lru.Cache{len: %d, cap: %d", c.length, cap(c.entries))
	if c.length > 0 {
		fmt.Fprintf(&b, ", head: %d, tail: %d", c.head, c.tail)
	}
	fmt.Fprintf(&b, ", items: %v}", c.Items())
	return b.String()
}
