// Package totp implements the time-based one-time-password primitives used by
// the two-factor subsystem: secret key generation, provisioning URIs for
// authenticator apps, RFC 4226/6238 code generation and validation, and the
// single-use backup codes issued when two-factor auth is enabled.
//
// The package is self-contained on purpose. It implements HOTP/TOTP directly
// instead of pulling in a third-party OTP library, which keeps the crypto
// surface small and auditable.
//
// Code validation tolerates client clock drift of DriftSteps time steps in
// either direction. With the standard 30-second step that is a ±30s window.
// Changing DriftSteps changes the security/usability trade-off for every
// caller, which is why it is a single named constant.
package totp
