//go:build unix

package accounts

import "golang.org/x/sys/unix"

// IsElevated reports whether the process runs as root.
func IsElevated() bool {
	return unix.Geteuid() == 0
}

// DefaultElevator returns a pkexec or sudo elevator.
func DefaultElevator(tool string) (Elevator, error) {
	e, err := NewUnixElevator(tool)
	if err != nil {
		return nil, err
	}
	return e, nil
}
