//go:build linux

package sysinfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// TotalMemoryBytes returns the total physical memory of the host in bytes.
func TotalMemoryBytes() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, fmt.Errorf("sysinfo: %w", err)
	}

	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	return uint64(info.Totalram) * unit, nil
}
