// Package store persists kahu profiles as a single TOML document.
//
// The store is a dumb persistence layer: it does not enforce name
// uniqueness or coordinate concurrent writers. Both are the profile
// service's job. What it does guarantee:
//
//   - A missing document is an empty collection.
//   - A malformed document is an empty collection and the error is logged.
//     Load never touches the file. The next Save moves it aside to
//     profiles.toml.corrupt-<time> before writing, so it is not destroyed.
//   - Every mutation rewrites the whole document through a temporary file
//     and an atomic rename, so readers never observe partial content.
//
// # Document Format
//
//	version = 1
//
//	[[profiles]]
//	id = "5f0c..."
//	name = "Main"
//	avatar = "avatars/main.png"
//	system_account = "Main"
//	encrypted_secret = "base64(nonce||box)"
//	created_at = 2024-06-01T10:00:00Z
//	updated_at = 2024-06-01T10:00:00Z
//
// Profile order is preserved across rewrites.
package store
