// Package vault protects saved profile passwords.
//
// # Keys
//
// A Key is 32 bytes and is never written to the profile document. It comes
// from a KeySource:
//
//   - DerivedKeySource hashes the host and user identity with BLAKE3 in
//     derive-key mode. Nothing is stored, but anyone who can read both
//     identity strings can rebuild the key, and the key changes when the
//     machine or account changes.
//   - KeyringKeySource keeps a random key in the OS keyring (Keychain,
//     Windows Credential Manager, Secret Service or KWallet).
//
// # Ciphertext
//
// Cipher seals secrets with NaCl secretbox (XSalsa20-Poly1305). A fresh
// random 24-byte nonce is prepended to every sealed box, so sealing the same
// password twice gives different output. The stored text form is standard
// base64 of nonce||box.
//
// Decrypt never panics: truncated, tampered, badly encoded or wrong-key input
// returns ErrDecryptFailed and the caller treats the profile as having no
// usable saved password.
package vault
