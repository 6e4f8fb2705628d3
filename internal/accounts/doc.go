// Package accounts provisions the operating-system accounts bound to kahu
// profiles.
//
// # Provisioner
//
// Provisioner is the capability the profile service depends on:
//
//	Exists(ctx, name)          live existence query, never cached
//	Create(ctx, name, secret)  Created or AlreadyExisted
//	Delete(ctx, name)          Deleted or DidNotExist
//	Sanitize(name)             the account name a display name maps to
//
// Create and Delete are idempotent. Create never touches an account that
// already exists, so it cannot reset someone's password by accident.
//
// # Sanitizing
//
// Profile names are arbitrary text. Before any query or mutation they are
// mapped to [A-Za-z0-9_-] (everything else becomes '_', a leading '-'
// becomes '_') and truncated to the platform's account name limit. This is
// the only form that ever reaches privileged tooling.
//
// # Elevation
//
// OSProvisioner asks for elevation on every Create and Delete through an
// Elevator, even when the process already runs elevated:
//
//   - Linux: pkexec or sudo -k, running useradd/chpasswd/userdel
//   - Windows: PowerShell Start-Process -Verb RunAs, running
//     New-LocalUser/Remove-LocalUser
//
// Passwords never appear in argv. On Linux they are piped to chpasswd; on
// Windows they are protected with DPAPI for the current user and unwrapped
// by the elevated ConvertTo-SecureString. The Windows path therefore
// requires that the elevated process runs as the same user (the default
// admin-approval mode).
//
// Refusal maps to ErrElevationDenied, a failing OS command to
// ErrProvisionFailed or ErrDeprovisionFailed, a deadline to ErrTimeout.
// Nothing is retried automatically.
//
// MemoryProvisioner is an in-memory double for tests.
package accounts
