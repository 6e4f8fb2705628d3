package vault

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	kerrors "github.com/PolarWolf314/kahu/internal/errors"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// Ciphertext is nonce||secretbox output.
type Ciphertext []byte

// String returns the base64 text form stored in the profile document.
func (c Ciphertext) String() string {
	return base64.StdEncoding.EncodeToString(c)
}

// ParseCiphertext decodes the text form. Bad encoding is a decrypt failure.
func ParseCiphertext(s string) (Ciphertext, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrDecryptFailed, err)
	}
	return Ciphertext(raw), nil
}

// Cipher seals and opens secrets with a single key.
type Cipher struct {
	key [KeySize]byte
}

func NewCipher(key Key) *Cipher {
	return &Cipher{key: key}
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Cipher) Encrypt(plaintext string) (Ciphertext, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key), nil
}

// Decrypt opens blob. Any failure is reported as ErrDecryptFailed.
func (c *Cipher) Decrypt(blob Ciphertext) (string, error) {
	if len(blob) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("%w: ciphertext is %d bytes, too short", kerrors.ErrDecryptFailed, len(blob))
	}

	var nonce [nonceSize]byte
	copy(nonce[:], blob[:nonceSize])

	plaintext, ok := secretbox.Open(nil, blob[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", fmt.Errorf("%w: authentication failed", kerrors.ErrDecryptFailed)
	}
	return string(plaintext), nil
}

// DecryptString parses the text form and decrypts it.
func (c *Cipher) DecryptString(s string) (string, error) {
	blob, err := ParseCiphertext(s)
	if err != nil {
		return "", err
	}
	return c.Decrypt(blob)
}
