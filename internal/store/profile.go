package store

import (
	"strings"
	"time"
)

// Profile is the persisted form of a named identity record.
type Profile struct {
	ID     string `toml:"id"`
	Name   string `toml:"name"`
	Avatar string `toml:"avatar,omitempty"`

	// SystemAccount is the provisioned OS account, empty if none.
	SystemAccount string `toml:"system_account,omitempty"`

	// EncryptedSecret is the vault.Ciphertext text form, empty if the
	// password was not saved.
	EncryptedSecret string `toml:"encrypted_secret,omitempty"`

	CreatedAt time.Time `toml:"created_at"`
	UpdatedAt time.Time `toml:"updated_at"`
}

// HasSecret reports whether a password was saved with the profile.
func (p Profile) HasSecret() bool {
	return p.EncryptedSecret != ""
}

// SameName reports whether a and b name the same profile.
func SameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

// IndexOf returns the index of the profile named name, or -1.
func IndexOf(profiles []Profile, name string) int {
	for i, p := range profiles {
		if SameName(p.Name, name) {
			return i
		}
	}
	return -1
}
