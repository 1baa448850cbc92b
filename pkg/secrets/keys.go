package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required master key length: 256 bits for AES-256.
	KeySize = 32

	// keyInfo provides HKDF domain separation so the cipher key derived here
	// never collides with other uses of the same master key material.
	keyInfo = "certusflow-twofactor-secret-v1"
)

// deriveKey turns the master key into the AES-256 cipher key via HKDF-SHA256.
func deriveKey(masterKey []byte) ([]byte, error) {
	if len(masterKey) != KeySize {
		return nil, ErrMasterKeyInvalid
	}

	reader := hkdf.New(sha256.New, masterKey, nil, []byte(keyInfo))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, errors.Join(ErrKeyDerivation, err)
	}
	return key, nil
}

// ParseMasterKey decodes a base64-encoded master key and validates its
// length. An empty or malformed value is a configuration error; callers are
// expected to treat it as fatal at startup.
func ParseMasterKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, ErrMasterKeyNotSet
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Join(ErrMasterKeyInvalid, err)
	}
	if len(key) != KeySize {
		return nil, ErrMasterKeyInvalid
	}
	return key, nil
}

// GenerateMasterKey creates a fresh random master key, base64-encoded for
// storage in configuration. Operator tooling only.
func GenerateMasterKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
