// Package secrets encrypts TOTP secrets for storage at rest.
//
// Ciphertexts are AES-256-GCM with a fresh random nonce prefixed to the
// sealed data, base64-encoded as a single opaque string. Decryption therefore
// needs nothing beyond the master key. The GCM key is derived from the master
// key with HKDF-SHA256 under a fixed info string, so the raw master key is
// never used as a cipher key directly and other subsystems deriving from the
// same key material cannot collide with this one.
//
// Any tampered, truncated or otherwise unauthenticatable ciphertext fails
// with ErrCorruptSecret and never yields partial plaintext.
//
// The master key comes from the TWOFA_MASTER_KEY environment variable as
// base64 of exactly 32 bytes. A missing or malformed key is a process
// startup failure, not a per-request error: call LoadMasterKey once during
// boot and pass the key down explicitly.
package secrets
