// Package lru implements a fixed-capacity least-recently-used cache on top of
// an arena: a slice allocated once at construction whose slots are linked
// into a doubly linked list by index rather than by pointer.
//
// Entries are matched by predicate, not by key. Touch, Fetch and Lookup scan
// from the most recently used entry to the least recently used one and promote
// the first match to the head of the list. Insert always places the new value
// at the head and, once the arena is full, overwrites the tail slot in place.
//
// After New returns, no operation except Items and Clone allocates.
//
// A Cache is not safe for concurrent use. Callers that share one between
// goroutines must serialize access themselves.
package lru
