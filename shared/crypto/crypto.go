package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyIterations = 100000
	keyLength     = 32
)

// Salt is fixed so that the same passphrase always derives the same key.
// Rotating it invalidates every stored settings blob.
var keySalt = []byte("tenant_ai_gateway_salt")

// Box encrypts and decrypts tenant provider settings with AES-256-GCM.
// The key is derived from a passphrase via PBKDF2-HMAC-SHA256.
type Box struct {
	key []byte
}

// NewBox derives the encryption key from the given passphrase.
func NewBox(passphrase string) (*Box, error) {
	if passphrase == "" {
		return nil, errors.New("settings encryption key is required")
	}
	key := pbkdf2.Key([]byte(passphrase), keySalt, keyIterations, keyLength, sha256.New)
	return &Box{key: key}, nil
}

// Encrypt seals plaintext and returns base64url ciphertext with the nonce
// prepended.
func (b *Box) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(b.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. It fails on tampered or truncated input.
func (b *Box) Decrypt(encoded string) (string, error) {
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	block, err := aes.NewCipher(b.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(data) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}

	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.New("failed to decrypt settings data")
	}
	return string(plaintext), nil
}

// HashPayload returns a SHA-256 hex digest. Used to correlate ledger rows
// with requests without storing raw message content.
func HashPayload(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
