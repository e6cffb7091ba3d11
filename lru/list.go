package lru

// entry is a single arena slot. prev and next are arena indices; they are
// meaningless at the list boundaries and are never followed there.
type entry[T any] struct {
	value T
	prev  uint32
	next  uint32
}

// pushFront splices slot i in as the new head.
func (c *Cache[T]) pushFront(i uint32) {
	if c.length == 0 {
		c.tail = i
	} else {
		c.entries[i].next = c.head
		c.entries[c.head].prev = i
	}
	c.head = i
	c.length++
}

// unlink detaches slot i from the list, relinking its neighbours directly.
// The slot itself keeps its value and stale links.
func (c *Cache[T]) unlink(i uint32) {
	if c.length == 0 {
		panic("lru: unlink from empty list")
	}

	e := &c.entries[i]
	if i == c.head {
		c.head = e.next
	} else {
		c.entries[e.prev].next = e.next
	}
	if i == c.tail {
		c.tail = e.prev
	} else {
		c.entries[e.next].prev = e.prev
	}
	c.length--
}

// popBack detaches the tail and returns its index.
func (c *Cache[T]) popBack() uint32 {
	i := c.tail
	c.unlink(i)
	return i
}

// promote moves slot i to the head. Length is unchanged.
func (c *Cache[T]) promote(i uint32) {
	if i == c.head {
		return
	}
	c.unlink(i)
	c.pushFront(i)
}

// find returns the index of the first entry, most recent first, whose value
// satisfies pred. The scan never mutates the list.
func (c *Cache[T]) find(pred func(T) bool) (uint32, bool) {
	i := c.head
	for n := c.length; n > 0; n-- {
		if pred(c.entries[i].value) {
			return i, true
		}
		i = c.entries[i].next
	}
	return 0, false
}
