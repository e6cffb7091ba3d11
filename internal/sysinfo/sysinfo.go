// Package sysinfo reports host resources used to sanity-check configuration.
package sysinfo

import "errors"

// FallbackMemory is assumed when the host memory cannot be determined.
const FallbackMemory = 8 << 30

// ErrUnsupported is returned on platforms without a memory probe.
var ErrUnsupported = errors.New("memory probe not supported on this platform")

// MemoryOrFallback returns the total physical memory, or FallbackMemory
// together with the probe error.
func MemoryOrFallback() (uint64, error) {
	total, err := TotalMemoryBytes()
	if err != nil || total == 0 {
		return FallbackMemory, err
	}
	return total, nil
}
