// Package utils provides shared helpers for kahu's command layer.
//
// # System Utilities
//
//   - GetUsername, GetHostname: identity strings of the running process
//   - CurrentIdentity: both, with environment fallbacks
//
// These are the only place the process identity is read from the OS. The
// values are passed into configs.Config and from there into key derivation,
// never looked up inside internal components.
//
// # Terminal and I/O Utilities
//
//   - ReadPassphrase: prompts without echo
//   - ReadSecretLine: reads one secret line from a non-terminal reader
package utils
