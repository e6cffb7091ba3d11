package lru_test

import (
	"fmt"

	"github.com/obot-platform/arenalru/lru"
)

func Example() {
	c := lru.MustNew[int](4)
	for i := 1; i <= 5; i++ {
		c.Insert(i)
	}
	fmt.Println(c.Items())

	c.Touch(func(v int) bool { return v == 3 })
	fmt.Println(c.Items())

	r, ok := lru.Lookup(c, func(v int) (int, bool) { return v * 10, v == 2 })
	fmt.Println(r, ok, c.Items())
	// Output:
	// [5 4 3 2]
	// [3 5 4 2]
	// 20 true [2 3 5 4]
}

func ExampleCache_Fetch() {
	type session struct {
		id   string
		hits int
	}

	c := lru.MustNew[session](2)
	c.Insert(session{id: "a"})
	c.Insert(session{id: "b"})

	if s := c.Fetch(func(s session) bool { return s.id == "a" }); s != nil {
		s.hits++
	}
	front, _ := c.Front()
	fmt.Println(front.id, front.hits)
	// Output: a 1
}
