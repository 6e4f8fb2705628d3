// Package errors provides typed error values for kahu.
//
// Every failure the profile core can produce is an explicit outcome that the
// caller matches with errors.Is() rather than by string comparison. The CLI
// layer turns these into user-facing messages.
//
// # Error Categories
//
//   - Validation errors: bad input, no side effects (ErrValidation, ErrDuplicateName)
//   - Lookup errors: target profile absent (ErrNotFound)
//   - Privilege errors: elevation refused or OS failure after elevation
//     (ErrElevationDenied, ErrProvisionFailed, ErrDeprovisionFailed)
//   - Crypto errors: unusable saved secret (ErrDecryptFailed)
//   - Storage errors: malformed persisted document (ErrStoreCorrupt)
//   - Bound errors: contention or latency limits (ErrBusy, ErrTimeout)
//
// # Usage
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("creating account %s: %w", name, errors.ErrProvisionFailed)
//
// Handle them at the boundary:
//
//	if errors.Retryable(err) {
//	    // offer to try again
//	}
package errors
