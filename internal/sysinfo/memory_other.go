//go:build !linux && !darwin && !windows

package sysinfo

// TotalMemoryBytes returns ErrUnsupported.
func TotalMemoryBytes() (uint64, error) {
	return 0, ErrUnsupported
}
