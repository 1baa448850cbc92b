package twofa

import (
	"context"
	"time"
)

// Storage persists two-factor records and trusted devices. Every method that
// changes record state is a single atomic operation: implementations must
// make the conditional semantics below hold under concurrent callers.
type Storage interface {
	// GetRecord returns the user's record or ErrRecordNotFound.
	GetRecord(ctx context.Context, userID string) (*TwoFactorRecord, error)

	// SavePending creates or replaces the user's record with a fresh
	// encrypted secret, enabled=false and no backup codes. It fails with
	// ErrStateConflict if an enabled record exists.
	SavePending(ctx context.Context, userID, encryptedSecret string) error

	// Enable flips a pending record to enabled, setting verified_at and the
	// backup-code hashes in the same write. It fails with ErrStateConflict
	// unless a record exists with enabled=false.
	Enable(ctx context.Context, userID string, backupHashes []string, verifiedAt time.Time) error

	// DeleteRecord removes the user's record entirely, or returns
	// ErrRecordNotFound.
	DeleteRecord(ctx context.Context, userID string) error

	// ConsumeBackupCode removes one backup-code hash from an enabled record.
	// The check and the removal are one atomic operation: of N concurrent
	// calls with the same hash, exactly one succeeds and the rest get
	// ErrBackupCodeUnknown.
	ConsumeBackupCode(ctx context.Context, userID, hash string) error

	// UpsertDevice inserts or refreshes a device row keyed by
	// (user_id, fingerprint).
	UpsertDevice(ctx context.Context, device TrustedDevice) error

	// GetDevice returns the device for the fingerprint, or ErrDeviceNotFound.
	// An expired row is deleted during the read and reported as not found;
	// it is never returned.
	GetDevice(ctx context.Context, userID, fp string) (*TrustedDevice, error)

	// TouchDevice updates last_used_at on a bypass.
	TouchDevice(ctx context.Context, userID, fp string, at time.Time) error

	// ListDevices returns the user's non-expired devices, most recently used
	// first.
	ListDevices(ctx context.Context, userID string) ([]TrustedDevice, error)

	// DeleteDevice removes one device row by ID, or ErrDeviceNotFound.
	DeleteDevice(ctx context.Context, userID, deviceID string) error

	// DeleteDevicesExcept removes every device of the user except the one
	// with the given fingerprint.
	DeleteDevicesExcept(ctx context.Context, userID, keepFingerprint string) error

	// PruneExpiredDevices deletes all rows expired at the given instant and
	// returns how many were removed.
	PruneExpiredDevices(ctx context.Context, now time.Time) (int64, error)
}

// PrimaryVerifier is the external primary-credential collaborator. This
// subsystem never stores or checks passwords itself.
type PrimaryVerifier interface {
	// VerifyCredentials checks the primary factor and, on success, returns
	// the stable user ID and a short-lived session credential. Bad
	// credentials must surface as ErrInvalidCredentials; any other error is
	// treated as infrastructure failure.
	VerifyCredentials(ctx context.Context, email, password string) (userID, session string, err error)

	// RevokeSession invalidates a session issued by VerifyCredentials.
	RevokeSession(ctx context.Context, session string) error
}
