//go:build darwin

package sysinfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// TotalMemoryBytes returns the total physical memory of the host in bytes.
func TotalMemoryBytes() (uint64, error) {
	n, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0, fmt.Errorf("sysctl hw.memsize: %w", err)
	}
	return n, nil
}
