package lru

import "errors"

// MaxCapacity is the largest capacity New accepts. Links between entries are
// stored as uint32 arena indices.
const MaxCapacity = 1<<32 - 1

var (
	// ErrInvalidCapacity indicates a negative capacity was requested.
	ErrInvalidCapacity = errors.New("lru: invalid capacity")

	// ErrCapacityOverflow indicates the capacity does not fit the index space.
	ErrCapacityOverflow = errors.New("lru: capacity overflows index space")

	// ErrZeroCapacity is the panic value of Insert on a zero-capacity cache.
	ErrZeroCapacity = errors.New("lru: insert into zero-capacity cache")
)
