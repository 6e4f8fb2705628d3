package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Key backends.
const (
	// KeyBackendDerived derives the key from host and user identity.
	KeyBackendDerived = "derived"

	// KeyBackendKeyring keeps a random key in the OS keyring.
	KeyBackendKeyring = "keyring"
)

const (
	DefaultOperationTimeout = 2 * time.Minute
	DefaultLockTimeout      = 10 * time.Second
	DefaultKeyringService   = "kahu"
	DefaultAccountComment   = "kahu launcher profile"

	// DefaultMaxAccountNameLength is the Windows SAM limit, the strictest of
	// the supported platforms.
	DefaultMaxAccountNameLength = 20

	storeFileName    = "profiles.toml"
	auditFileName    = "audit.jsonl"
	settingsFileName = "config.toml"
)

// Config is everything the profile service needs, passed in at construction.
type Config struct {
	// StorePath is the profile document location.
	StorePath string

	// AuditPath is the audit trail location. Empty disables auditing.
	AuditPath string

	// HostIdentity and UserIdentity feed key derivation.
	HostIdentity string
	UserIdentity string

	KeyBackend     string
	KeyringService string

	// AccountComment is attached to provisioned accounts where supported.
	AccountComment       string
	MaxAccountNameLength int

	// ElevationTool selects the Unix elevation helper ("pkexec" or "sudo").
	// Empty picks the first one found on PATH.
	ElevationTool string

	// OperationTimeout bounds each service call end to end.
	OperationTimeout time.Duration

	// LockTimeout bounds how long a mutation waits for another to finish
	// before failing with ErrBusy.
	LockTimeout time.Duration
}

// Default returns a Config rooted at home with default options.
func Default(home string) Config {
	return Config{
		StorePath:            filepath.Join(home, storeFileName),
		AuditPath:            filepath.Join(home, auditFileName),
		KeyBackend:           KeyBackendDerived,
		KeyringService:       DefaultKeyringService,
		AccountComment:       DefaultAccountComment,
		MaxAccountNameLength: DefaultMaxAccountNameLength,
		OperationTimeout:     DefaultOperationTimeout,
		LockTimeout:          DefaultLockTimeout,
	}
}

// WithDefaults fills zero-valued options.
func (c Config) WithDefaults() Config {
	if c.KeyBackend == "" {
		c.KeyBackend = KeyBackendDerived
	}
	if c.KeyringService == "" {
		c.KeyringService = DefaultKeyringService
	}
	if c.AccountComment == "" {
		c.AccountComment = DefaultAccountComment
	}
	if c.MaxAccountNameLength == 0 {
		c.MaxAccountNameLength = DefaultMaxAccountNameLength
	}
	if c.OperationTimeout == 0 {
		c.OperationTimeout = DefaultOperationTimeout
	}
	if c.LockTimeout == 0 {
		c.LockTimeout = DefaultLockTimeout
	}
	return c
}

// Validate reports the first impossible option.
func (c Config) Validate() error {
	if c.StorePath == "" {
		return fmt.Errorf("store path is required")
	}
	switch c.KeyBackend {
	case KeyBackendDerived:
		if c.HostIdentity == "" || c.UserIdentity == "" {
			return fmt.Errorf("host and user identity are required for the %q key backend", KeyBackendDerived)
		}
	case KeyBackendKeyring:
		if c.KeyringService == "" {
			return fmt.Errorf("keyring service name is required for the %q key backend", KeyBackendKeyring)
		}
	default:
		return fmt.Errorf("unknown key backend %q", c.KeyBackend)
	}
	if c.MaxAccountNameLength < 1 {
		return fmt.Errorf("max account name length must be positive, got %d", c.MaxAccountNameLength)
	}
	switch c.ElevationTool {
	case "", "pkexec", "sudo":
	default:
		return fmt.Errorf("unknown elevation tool %q", c.ElevationTool)
	}
	if c.OperationTimeout < 0 || c.LockTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// DefaultHome returns $KAHU_HOME or the per-user config directory.
func DefaultHome() (string, error) {
	if home := os.Getenv("KAHU_HOME"); home != "" {
		return home, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting config directory: %w", err)
	}
	return filepath.Join(configDir, "kahu"), nil
}

// SettingsPath returns the settings file location inside home.
func SettingsPath(home string) string {
	return filepath.Join(home, settingsFileName)
}
