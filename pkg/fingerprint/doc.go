// Package fingerprint derives deterministic device fingerprints for the
// trusted-device ledger.
//
// A fingerprint binds a user identity to a client identifying string (the
// User-Agent, typically) via SHA-256, so the same browser/user pair always
// re-derives the same value without any client-side state beyond the opaque
// bearer token issued separately. Fingerprints identify devices for this
// subsystem's trust decisions only; they are not a tracking mechanism.
package fingerprint
