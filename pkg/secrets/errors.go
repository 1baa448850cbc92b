package secrets

import "errors"

var (
	// ErrCorruptSecret marks ciphertext that failed authentication: tampered,
	// truncated, or encrypted under a different key. The record holding it is
	// unusable and the condition must be logged, never shown to end users.
	ErrCorruptSecret = errors.New("stored secret is corrupt or unauthenticated")

	ErrEncryptionFailed = errors.New("failed to encrypt secret")
	ErrKeyDerivation    = errors.New("failed to derive encryption key")

	ErrMasterKeyNotSet  = errors.New("master key is not set")
	ErrMasterKeyInvalid = errors.New("master key must be base64 of exactly 32 bytes")
)
