package twofa

import "errors"

// User-facing failures. Everything an attacker could probe maps onto one of
// the two generic errors below; the audit log keeps the internal distinction.
var (
	// ErrInvalidCredentials covers every primary-credential failure,
	// including unknown accounts, so 2FA state is never revealed through the
	// login path.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidCode covers every second-factor failure: wrong TOTP, wrong or
	// already-consumed backup code, malformed input. Callers must present one
	// generic message for all of them.
	ErrInvalidCode = errors.New("invalid verification code")
)

// State errors signal caller misuse of the enrollment machine, not attacks.
var (
	ErrAlreadyEnabled = errors.New("two-factor authentication is already enabled")
	ErrSetupNotFound  = errors.New("no pending two-factor setup")
	ErrNotEnabled     = errors.New("two-factor authentication is not enabled")
)

// Storage sentinels.
var (
	ErrRecordNotFound = errors.New("two-factor record not found")
	ErrDeviceNotFound = errors.New("trusted device not found")

	// ErrStateConflict is returned by conditional writes when the record's
	// enabled state changed between read and write.
	ErrStateConflict = errors.New("two-factor record state conflict")

	// ErrBackupCodeUnknown means the code hash was absent from the record,
	// either never issued or already consumed.
	ErrBackupCodeUnknown = errors.New("backup code not found or already used")
)
