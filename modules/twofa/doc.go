// Package twofa is the two-factor authentication and device-trust module.
//
// It drives the enrollment state machine (no record -> pending setup ->
// enabled, with disable back to no record), orchestrates the login challenge
// flow on top of an external primary credential verifier, and maintains the
// trusted-device ledger that lets a user skip the second factor on devices
// they opted to trust.
//
// The module never sees passwords: primary credentials are checked by the
// PrimaryVerifier collaborator, which returns an opaque session credential.
// The single most important invariant lives here: when the second factor
// fails, the session issued by the primary verifier is revoked before the
// failure is returned, so a half-authenticated session never survives.
//
// State transitions are single atomic storage operations (conditional
// updates), so concurrent requests cannot interleave into an inconsistent
// record and a backup code can never be consumed twice.
package twofa
