// Package audit records profile mutations.
//
// Every create, update and delete handled by the profile service appends
// one JSON object per line to audit.jsonl next to the profile store:
//
//	{"ts":"2024-06-01T10:00:00.000000Z","op":"create","profile_id":"…","profile":"Main","account":"Main","account_created":true}
//
// Entries name profiles and system accounts. Passwords and ciphertexts are
// never written.
//
// # Failure Handling
//
// Audit logging is best-effort. If appending fails the operation still
// succeeds; callers that want to surface the failure use Append instead of
// Log.
package audit
