package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// Encrypt seals plaintext under the master key and returns a base64-encoded
// ciphertext in the form nonce||sealed. Every call draws a fresh nonce, so
// encrypting the same secret twice yields different ciphertexts.
func Encrypt(plaintext string, masterKey []byte) (string, error) {
	aead, err := newAEAD(masterKey)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Ciphertext that does not decode, is too short to
// contain a nonce, or fails GCM authentication yields ErrCorruptSecret.
func Decrypt(ciphertext string, masterKey []byte) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Join(ErrCorruptSecret, err)
	}

	aead, err := newAEAD(masterKey)
	if err != nil {
		return "", err
	}

	nonceSize := aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", ErrCorruptSecret
	}

	nonce, sealed := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.Join(ErrCorruptSecret, err)
	}
	return string(plaintext), nil
}

func newAEAD(masterKey []byte) (cipher.AEAD, error) {
	key, err := deriveKey(masterKey)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrKeyDerivation, err)
	}
	return cipher.NewGCM(block)
}
