// Package secrets encrypts sensitive document payloads and profile fields at
// rest with AES-256-GCM.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	dErrors "beneficiary/pkg/domain-errors"
)

// HKDF info strings bind each derived key to one purpose.
const (
	hkdfInfo      = "beneficiary/document-encryption/v1"
	hkdfNonceInfo = "beneficiary/field-nonce/v1"
)

const minSecretLength = 16

// ErrCiphertext marks input that is not a valid ciphertext for this key.
var ErrCiphertext = errors.New("malformed ciphertext")

// Cipher encrypts and decrypts strings. Ciphertext is base64(nonce || sealed).
// Encrypt uses a random nonce; EncryptDeterministic a plaintext-derived one.
type Cipher struct {
	aead     cipher.AEAD
	nonceKey []byte
}

// NewCipher derives a 256-bit key from secret via HKDF-SHA256.
func NewCipher(secret []byte, salt []byte) (*Cipher, error) {
	if len(secret) < minSecretLength {
		return nil, dErrors.New(dErrors.CodeConfiguration, "encryption secret must be at least 16 bytes")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(hkdfInfo)), key); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "derive encryption key")
	}
	nonceKey := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(hkdfNonceInfo)), nonceKey); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "derive nonce key")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return &Cipher{aead: aead, nonceKey: nonceKey}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "generate nonce")
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// EncryptDeterministic seals plaintext under a nonce derived from
// HMAC-SHA256(nonceKey, plaintext), so equal plaintexts give equal
// ciphertexts. Use it for profile fields that are rebuilt on every run;
// Decrypt opens the result.
func (c *Cipher) EncryptDeterministic(plaintext string) (string, error) {
	mac := hmac.New(sha256.New, c.nonceKey)
	mac.Write([]byte(plaintext))
	nonce := mac.Sum(nil)[:c.aead.NonceSize()]
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Deterministic adapts c so that Encrypt is EncryptDeterministic.
func (c *Cipher) Deterministic() FieldCipher {
	return FieldCipher{c: c}
}

// FieldCipher encrypts deterministically and decrypts like its Cipher.
type FieldCipher struct {
	c *Cipher
}

func (f FieldCipher) Encrypt(plaintext string) (string, error) {
	return f.c.EncryptDeterministic(plaintext)
}

func (f FieldCipher) Decrypt(ciphertext string) (string, error) {
	return f.c.Decrypt(ciphertext)
}

// Decrypt opens ciphertext produced by Encrypt. Tampered or truncated input
// returns a CodeDecryption error wrapping ErrCiphertext.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", dErrors.Wrap(errors.Join(ErrCiphertext, err), dErrors.CodeDecryption, "ciphertext is not base64")
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return "", dErrors.Wrap(ErrCiphertext, dErrors.CodeDecryption, "ciphertext too short")
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", dErrors.Wrap(errors.Join(ErrCiphertext, err), dErrors.CodeDecryption, "ciphertext authentication failed")
	}
	return string(plain), nil
}

// GenerateSecret returns a random base64 secret suitable for NewCipher.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate secret")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
