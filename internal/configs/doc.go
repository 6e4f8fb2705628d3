// Package configs manages kahu's configuration.
//
// Configuration has two layers:
//
//   - Settings: the optional config.toml file in the kahu home directory
//     (store location, key backend, account options, timeouts)
//   - Config: the explicit value handed to workflows.New, combining the
//     settings with the process identity
//
// Nothing in internal/ looks up paths or identities on its own; everything
// flows through Config.
//
// # Home Directory
//
// The home directory is $KAHU_HOME when set, otherwise
// os.UserConfigDir()/kahu. It holds:
//
//	config.toml    settings (optional)
//	profiles.toml  the profile document
//	audit.jsonl    audit trail
//
// # Writes
//
// SaveTOML and WriteFileAtomic never leave a partially written file behind:
// data goes to a temporary file in the same directory which is synced and
// then renamed over the target.
package configs
