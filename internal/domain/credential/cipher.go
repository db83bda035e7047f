package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/myriagon/credvault/internal/domain"
)

// Cipher encrypts token maps with AES-256-GCM. The nonce is returned to the
// caller and persisted alongside the ciphertext, never embedded in it.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a 64-character hex key (32 bytes decoded).
func NewCipher(hexKey string) (*Cipher, error) {
	if len(hexKey) != 64 {
		return nil, fmt.Errorf("%w: want 64 hex characters, got %d", domain.ErrKeyMaterial, len(hexKey))
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKeyMaterial, err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKeyMaterial, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKeyMaterial, err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt serializes tokens as JSON and seals them with a fresh nonce.
func (c *Cipher) Encrypt(tokens map[string]any) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(tokens)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal tokens: %w", err)
	}
	nonce = make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Decrypt opens the ciphertext and decodes the token map. Any tampering or
// nonce mismatch surfaces as domain.ErrDecryption.
func (c *Cipher) Decrypt(ciphertext, nonce []byte) (map[string]any, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce length %d", domain.ErrDecryption, len(nonce))
	}
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	var tokens map[string]any
	if err := json.Unmarshal(plaintext, &tokens); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	return tokens, nil
}
