// Package secretbox provides symmetric at-rest encryption for message
// bodies. Bodies are sealed with AES-256-GCM under a process-wide key so a
// leaked database dump exposes no plaintext, while the transport payload of
// an already access-controlled channel stays readable.
//
// Wire format: "gcm:" + base64(nonce || ciphertext). The prefix makes
// encrypted values self-describing in the database and lets Decrypt reject
// foreign blobs early.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// prefix tags every ciphertext produced by this codec.
const prefix = "gcm:"

// KeySize is the required key length in bytes (AES-256).
const KeySize = 32

// ErrDecrypt is returned when a ciphertext cannot be opened: wrong key,
// truncated or tampered data, missing prefix, or empty input. Callers on the
// read path are expected to recover with a placeholder rather than fail the
// whole request.
var ErrDecrypt = errors.New("secretbox: cannot decrypt")

// Codec encrypts and decrypts strings under a fixed symmetric key.
// It is safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
}

// New constructs a Codec from a 32-byte key. The key is not retained beyond
// the derived cipher state.
func New(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("secretbox: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secretbox: create gcm: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Encrypt seals plaintext and returns the prefixed, base64-encoded result.
// The empty string is a valid plaintext (empty-line messages round-trip).
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secretbox: generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Any structural problem or
// authentication failure yields ErrDecrypt; the caller cannot distinguish a
// wrong key from tampering, and does not need to.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, prefix) {
		return "", ErrDecrypt
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext[len(prefix):])
	if err != nil {
		return "", ErrDecrypt
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrDecrypt
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

// IsEncrypted reports whether a stored value carries this codec's prefix.
func IsEncrypted(s string) bool { return strings.HasPrefix(s, prefix) }
