package errors

import (
	"context"
	"errors"
	"fmt"
)

// Validation errors indicate bad input. No side effects have been performed.
var (
	// ErrValidation is the parent of every input validation failure.
	ErrValidation = errors.New("invalid input")

	// ErrEmptyName indicates an empty profile name.
	ErrEmptyName = fmt.Errorf("%w: profile name is required", ErrValidation)

	// ErrEmptySecret indicates an empty password for a new system account.
	ErrEmptySecret = fmt.Errorf("%w: password is required for the system account", ErrValidation)

	// ErrDuplicateName indicates a profile (or its account) already exists
	// under a case-insensitive comparison.
	ErrDuplicateName = fmt.Errorf("%w: a profile with this name already exists", ErrValidation)

	// ErrInvalidAccountName indicates nothing usable remained after sanitizing.
	ErrInvalidAccountName = fmt.Errorf("%w: account name is empty after sanitizing", ErrValidation)
)

// Lookup errors.
var (
	// ErrNotFound indicates the target profile does not exist.
	ErrNotFound = errors.New("profile not found")
)

// Privilege errors come from the account provisioner.
var (
	// ErrElevationDenied indicates the user declined or could not grant
	// administrative privilege. Retrying is reasonable.
	ErrElevationDenied = errors.New("elevation was denied")

	// ErrProvisionFailed indicates account creation failed after elevation.
	ErrProvisionFailed = errors.New("failed to create system account")

	// ErrDeprovisionFailed indicates account deletion failed after elevation.
	ErrDeprovisionFailed = errors.New("failed to delete system account")

	// ErrUnsupportedPlatform indicates no provisioner exists for this OS.
	ErrUnsupportedPlatform = errors.New("account provisioning is not supported on this platform")
)

// Cryptographic errors.
var (
	// ErrDecryptFailed indicates a saved secret is corrupt or was sealed
	// with a different key. Callers treat it as "no saved secret".
	ErrDecryptFailed = errors.New("failed to decrypt saved secret")

	// ErrInvalidKeyLength indicates the symmetric key has an unexpected length.
	ErrInvalidKeyLength = errors.New("invalid symmetric key length")
)

// Storage errors.
var (
	// ErrStoreCorrupt indicates the profile document could not be parsed.
	// The store recovers locally and never returns it from Load.
	ErrStoreCorrupt = errors.New("profile store is corrupt")
)

// Bound errors indicate a concurrency or latency limit was exceeded.
var (
	// ErrBusy indicates another mutation held the lock for too long.
	ErrBusy = errors.New("another profile operation is in progress")

	// ErrTimeout indicates the operation exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")
)

// Retryable reports whether err belongs to the class of failures the user
// can reasonably retry without changing input.
func Retryable(err error) bool {
	return errors.Is(err, ErrElevationDenied) ||
		errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrTimeout)
}

// FromContext converts a context error into ErrTimeout, keeping the cause.
// Other errors are returned unchanged.
func FromContext(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		if errors.Is(err, ErrTimeout) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// Is is errors.Is, re-exported so callers need a single import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As, re-exported so callers need a single import.
func As(err error, target any) bool {
	return errors.As(err, target)
}
