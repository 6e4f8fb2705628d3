// Package workflows provides the profile service, the high-level
// orchestration behind every kahu command.
//
// The service coordinates the profile store, the account provisioner, the
// secret cipher and the audit trail. It is the only component that knows
// about more than one of them and the sole owner of the rules that span
// them:
//
//   - Profile names are unique under case-insensitive comparison.
//   - A profile is only persisted after its system account exists.
//   - The system account binding never changes on rename.
//   - Deleting a profile deprovisions its account on a best-effort basis.
//   - Callers never see ciphertext. Plaintext leaves only via Credentials.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls the appropriate service method
//   - Formats the result for display
//
// # Concurrency
//
// Mutations of the store document run one at a time under a store lock.
// Account provisioning can take minutes while a privilege prompt is open,
// so it runs outside that lock but under a lock for the account name.
// Locks are always taken account first, then store.
//
// A caller that cannot get a lock within Config.LockTimeout receives
// ErrBusy. Every call is bounded by Config.OperationTimeout and reports
// ErrTimeout when it runs out.
//
// Delete finds its profile by name but removes it by ID, so a rename that
// completes while the account is being deleted is still removed.
//
// # Error Handling
//
// Methods return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching:
//
//	res, err := svc.CreateProfile(ctx, req)
//	if errors.Is(err, kerrors.ErrDuplicateName) {
//	    // Ask for another name
//	}
package workflows
