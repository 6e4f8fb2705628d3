package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Settings mirrors config.toml. Every field is optional.
type Settings struct {
	Store    StoreSettings   `toml:"store"`
	Keys     KeySettings     `toml:"keys"`
	Accounts AccountSettings `toml:"accounts"`
	Timeouts TimeoutSettings `toml:"timeouts"`
}

type StoreSettings struct {
	// Dir relocates profiles.toml and audit.jsonl. Relative paths are
	// resolved against the home directory.
	Dir          string `toml:"dir,omitempty"`
	DisableAudit bool   `toml:"disable_audit,omitempty"`
}

type KeySettings struct {
	Backend        string `toml:"backend,omitempty"`
	KeyringService string `toml:"keyring_service,omitempty"`
}

type AccountSettings struct {
	Comment       string `toml:"comment,omitempty"`
	MaxNameLength int    `toml:"max_name_length,omitempty"`
	ElevationTool string `toml:"elevation_tool,omitempty"`
}

type TimeoutSettings struct {
	Operation Duration `toml:"operation,omitempty"`
	Lock      Duration `toml:"lock,omitempty"`
}

// Duration is a time.Duration written as a string such as "90s" in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// LoadSettings loads settings from path. A missing file yields empty settings.
func LoadSettings(path string) (*Settings, error) {
	settings := &Settings{}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return settings, nil
	}

	if err := LoadTOML(path, settings); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	return settings, nil
}

// Config combines the settings with home and the process identity.
func (s *Settings) Config(home, host, user string) Config {
	cfg := Default(home)

	if s.Store.Dir != "" {
		dir := s.Store.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(home, dir)
		}
		cfg.StorePath = filepath.Join(dir, storeFileName)
		cfg.AuditPath = filepath.Join(dir, auditFileName)
	}
	if s.Store.DisableAudit {
		cfg.AuditPath = ""
	}

	cfg.HostIdentity = host
	cfg.UserIdentity = user

	if s.Keys.Backend != "" {
		cfg.KeyBackend = s.Keys.Backend
	}
	if s.Keys.KeyringService != "" {
		cfg.KeyringService = s.Keys.KeyringService
	}
	if s.Accounts.Comment != "" {
		cfg.AccountComment = s.Accounts.Comment
	}
	if s.Accounts.MaxNameLength != 0 {
		cfg.MaxAccountNameLength = s.Accounts.MaxNameLength
	}
	cfg.ElevationTool = s.Accounts.ElevationTool

	if s.Timeouts.Operation.Duration != 0 {
		cfg.OperationTimeout = s.Timeouts.Operation.Duration
	}
	if s.Timeouts.Lock.Duration != 0 {
		cfg.LockTimeout = s.Timeouts.Lock.Duration
	}

	return cfg
}
