// Package secrets seals and unseals credential fields that are stored
// inside organization and branch settings JSON.  Values are encrypted with
// ChaCha20-Poly1305 under a process-wide key and prefixed with "enc:" so
// that plaintext values (local development) pass through unchanged.
package secrets

import (
    "crypto/rand"
    "encoding/base64"
    "encoding/hex"
    "errors"
    "fmt"
    "strings"

    "golang.org/x/crypto/chacha20poly1305"
)

const sealedPrefix = "enc:"

// ErrInvalidCiphertext is returned when a sealed value cannot be decoded or
// fails authentication.
var ErrInvalidCiphertext = errors.New("secrets: invalid ciphertext")

// Box encrypts and decrypts short credential strings.  It is safe for
// concurrent use.
type Box struct {
    key []byte
}

// NewBox builds a Box from a hex-encoded 32-byte key.
func NewBox(hexKey string) (*Box, error) {
    key, err := hex.DecodeString(hexKey)
    if err != nil {
        return nil, fmt.Errorf("secrets: decode key: %w", err)
    }
    if len(key) != chacha20poly1305.KeySize {
        return nil, fmt.Errorf("secrets: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
    }
    return &Box{key: key}, nil
}

// Seal encrypts plain and returns a storable string of the form
// "enc:" + base64(nonce||ciphertext).
func (b *Box) Seal(plain string) (string, error) {
    aead, err := chacha20poly1305.New(b.key)
    if err != nil {
        return "", err
    }
    nonce := make([]byte, aead.NonceSize())
    if _, err := rand.Read(nonce); err != nil {
        return "", err
    }
    out := aead.Seal(nonce, nonce, []byte(plain), nil)
    return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal.  Values without the "enc:" prefix
// are returned unchanged so unencrypted development settings keep working.
func (b *Box) Open(value string) (string, error) {
    if !strings.HasPrefix(value, sealedPrefix) {
        return value, nil
    }
    raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
    if err != nil {
        return "", ErrInvalidCiphertext
    }
    aead, err := chacha20poly1305.New(b.key)
    if err != nil {
        return "", err
    }
    if len(raw) < aead.NonceSize() {
        return "", ErrInvalidCiphertext
    }
    nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
    plain, err := aead.Open(nil, nonce, ct, nil)
    if err != nil {
        return "", ErrInvalidCiphertext
    }
    return string(plain), nil
}
