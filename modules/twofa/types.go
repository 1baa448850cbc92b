package twofa

import "time"

// TwoFactorRecord is the single 2FA row a user may own.
type TwoFactorRecord struct {
	UserID          string
	EncryptedSecret string
	Enabled         bool
	VerifiedAt      *time.Time
	BackupCodes     []string // one-way hashes, each single-use
}

// TrustedDevice is a client allowed to bypass the second factor until
// ExpiresAt.
type TrustedDevice struct {
	ID          string
	UserID      string
	Fingerprint string
	DeviceName  string
	IPAddress   string
	UserAgent   string
	ExpiresAt   time.Time
	LastUsedAt  time.Time
}

// Expired reports whether the device trust has lapsed at the given instant.
func (d TrustedDevice) Expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// SetupResult is returned from Setup. Secret is the plaintext key for manual
// entry and is disclosed exactly once; it is never persisted or logged.
type SetupResult struct {
	ProvisioningURI string
	Secret          string
	QRCode          string // base64 PNG data URI of the provisioning URI
}

// Status describes a user's 2FA state for settings screens.
type Status struct {
	Enabled    bool
	VerifiedAt *time.Time
}

// RequestMeta carries client metadata for audit events and device rows.
type RequestMeta struct {
	IP        string
	UserAgent string
}
