package totp

import "errors"

var (
	ErrSecretGeneration = errors.New("failed to generate TOTP secret key")
	ErrInvalidSecret    = errors.New("invalid TOTP secret key")
	ErrMissingAccount   = errors.New("missing account name")
	ErrMissingIssuer    = errors.New("missing issuer")

	// ErrCodeFormat marks input that is not a well-formed 6-digit code. It is
	// rejected before any cryptographic work and is distinguished from a
	// plain mismatch so audit trails can tell the two apart. User-facing
	// messages must not make that distinction.
	ErrCodeFormat = errors.New("malformed one-time code")

	ErrBackupCodeCount      = errors.New("backup code count must be positive")
	ErrBackupCodeGeneration = errors.New("failed to generate backup code")
)
