package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrSealedValueTooShort is returned when a sealed value cannot hold a nonce.
var ErrSealedValueTooShort = errors.New("sealed value too short")

// Sealer encrypts short secrets (session credentials) before they are stored.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an AES-256-GCM key from secret with HKDF-SHA256.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("sealer secret must not be empty")
	}

	h := hkdf.New(sha256.New, []byte(secret), nil, []byte("skinwise-session-slot"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: gcm}, nil
}

// Seal encrypts plaintext and returns nonce||ciphertext, base64 encoded.
// additional binds the ciphertext to its slot so values cannot be swapped between rows.
func (s *Sealer) Seal(plaintext, additional string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := s.aead.Seal(nil, nonce, []byte(plaintext), []byte(additional))
	return base64.StdEncoding.EncodeToString(append(nonce, ct...)), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed, additional string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	ns := s.aead.NonceSize()
	if len(blob) < ns {
		return "", ErrSealedValueTooShort
	}
	pt, err := s.aead.Open(nil, blob[:ns], blob[ns:], []byte(additional))
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
