//go:build windows

package accounts

import "golang.org/x/sys/windows"

// IsElevated reports whether the process token is elevated.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// DefaultElevator returns the UAC elevator. tool is ignored.
func DefaultElevator(tool string) (Elevator, error) {
	return NewWindowsElevator(), nil
}
