package vault

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/99designs/keyring"
	kerrors "github.com/PolarWolf314/kahu/internal/errors"
	"github.com/zeebo/blake3"
)

// KeySize is the symmetric key length in bytes.
const KeySize = 32

// derivationContext namespaces the BLAKE3 derive-key mode. Changing it
// changes every derived key.
const derivationContext = "kahu 2024-06 profile secret key v1"

// Key is a symmetric key for Cipher.
type Key [KeySize]byte

// DeriveKey deterministically derives a key from host and user identity.
// A NUL separator keeps ("ab", "c") and ("a", "bc") distinct.
func DeriveKey(hostIdentity, userIdentity string) Key {
	material := make([]byte, 0, len(hostIdentity)+1+len(userIdentity))
	material = append(material, hostIdentity...)
	material = append(material, 0)
	material = append(material, userIdentity...)

	var key Key
	blake3.DeriveKey(derivationContext, material, key[:])
	return key
}

// KeyFromBytes copies b into a Key.
func KeyFromBytes(b []byte) (Key, error) {
	var key Key
	if len(b) != KeySize {
		return key, fmt.Errorf("%w: expected %d bytes, got %d bytes", kerrors.ErrInvalidKeyLength, KeySize, len(b))
	}
	copy(key[:], b)
	return key, nil
}

// KeySource supplies the key used to seal saved passwords.
type KeySource interface {
	Key(ctx context.Context) (Key, error)
}

// DerivedKeySource derives the key from identity strings on every call.
type DerivedKeySource struct {
	Host string
	User string
}

func (s DerivedKeySource) Key(ctx context.Context) (Key, error) {
	if s.Host == "" || s.User == "" {
		return Key{}, fmt.Errorf("host and user identity are required to derive the key")
	}
	return DeriveKey(s.Host, s.User), nil
}

// keyringItem is the keyring entry holding the random key.
const keyringItem = "profile-secret-key"

// KeyringKeySource keeps a random key in an OS keyring, creating it on first
// use.
type KeyringKeySource struct {
	Ring keyring.Keyring
}

// OpenKeyring opens the native keyring for service. File-based backends are
// excluded because they would require yet another password.
func OpenKeyring(service string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: service,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
		},
		KeychainTrustApplication:       true,
		KeychainSynchronizable:         false,
		KeychainAccessibleWhenUnlocked: true,
		LibSecretCollectionName:        service,
		KWalletAppID:                   service,
		KWalletFolder:                  service,
		WinCredPrefix:                  service,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring %q: %w", service, err)
	}
	return ring, nil
}

// Key runs the keyring calls off the caller's goroutine. An unlock prompt
// from Secret Service or KWallet can block them indefinitely, and ctx must
// still bound the wait.
func (s KeyringKeySource) Key(ctx context.Context) (Key, error) {
	if err := ctx.Err(); err != nil {
		return Key{}, kerrors.FromContext(err)
	}

	type result struct {
		key Key
		err error
	}
	done := make(chan result, 1)
	go func() {
		key, err := s.fetch()
		done <- result{key, err}
	}()

	select {
	case <-ctx.Done():
		return Key{}, kerrors.FromContext(ctx.Err())
	case r := <-done:
		return r.key, r.err
	}
}

func (s KeyringKeySource) fetch() (Key, error) {
	item, err := s.Ring.Get(keyringItem)
	if err == nil {
		return KeyFromBytes(item.Data)
	}
	if !kerrors.Is(err, keyring.ErrKeyNotFound) {
		return Key{}, fmt.Errorf("reading key from keyring: %w", err)
	}

	var key Key
	if _, err := rand.Read(key[:]); err != nil {
		return Key{}, fmt.Errorf("generating key: %w", err)
	}
	err = s.Ring.Set(keyring.Item{
		Key:         keyringItem,
		Data:        key[:],
		Label:       "kahu profile key",
		Description: "Encrypts passwords saved with kahu profiles",
	})
	if err != nil {
		return Key{}, fmt.Errorf("saving key to keyring: %w", err)
	}
	return key, nil
}
