package lru

import "fmt"

// checkInvariants walks the list from head to tail and reports the first
// broken link, duplicate index or length mismatch.
func checkInvariants[T any](c *Cache[T]) error {
	if c.length != len(c.entries) {
		return fmt.Errorf("length %d does not match arena fill %d", c.length, len(c.entries))
	}
	if c.length > cap(c.entries) {
		return fmt.Errorf("length %d exceeds capacity %d", c.length, cap(c.entries))
	}
	if c.length == 0 {
		return nil
	}
	if c.length == 1 {
		if c.head != c.tail {
			return fmt.Errorf("single entry but head %d != tail %d", c.head, c.tail)
		}
		return nil
	}

	seen := make(map[uint32]bool, c.length)
	i := c.head
	for n := 0; n < c.length; n++ {
		if int(i) >= len(c.entries) {
			return fmt.Errorf("step %d: index %d out of arena bounds %d", n, i, len(c.entries))
		}
		if seen[i] {
			return fmt.Errorf("step %d: index %d visited twice", n, i)
		}
		seen[i] = true

		if n == c.length-1 {
			if i != c.tail {
				return fmt.Errorf("walk ended at %d, tail is %d", i, c.tail)
			}
			break
		}

		next := c.entries[i].next
		if int(next) >= len(c.entries) {
			return fmt.Errorf("step %d: next %d out of arena bounds", n, next)
		}
		if c.entries[next].prev != i {
			return fmt.Errorf("step %d: entries[%d].prev = %d, want %d", n, next, c.entries[next].prev, i)
		}
		i = next
	}
	return nil
}
