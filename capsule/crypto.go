package capsule

import (
	"crypto/rand"
	"fmt"

	"github.com/clawvcs/claw/clawerr"
	"golang.org/x/crypto/chacha20poly1305"
)

// EncryptPrivate seals plaintext under key with XChaCha20-Poly1305,
// returning nonce || ciphertext. The 24-byte XChaCha20 nonce is large
// enough to generate at random per call without a counter, unlike
// ChaCha20-Poly1305's 12-byte nonce.
func EncryptPrivate(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("claw: %w", clawerr.ErrInvalidKey)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("claw: %w", clawerr.ErrEncryptionFailed)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptPrivate reverses EncryptPrivate: sealed is nonce || ciphertext.
func DecryptPrivate(key, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("claw: %w", clawerr.ErrInvalidKey)
	}
	if len(sealed) < chacha20poly1305.NonceSizeX {
		return nil, clawerr.ErrDecryptionFailed
	}

	nonce, ciphertext := sealed[:chacha20poly1305.NonceSizeX], sealed[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("claw: %w", clawerr.ErrDecryptionFailed)
	}
	return plaintext, nil
}
