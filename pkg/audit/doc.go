// Package audit records the security events emitted by the two-factor
// subsystem: every enrollment transition and every second-factor login
// decision.
//
// The trail is append-only and advisory. Logging is fail-open by contract:
// a storage failure must never block or change an authorization decision, so
// Logger.Log has no error return. Failed writes are not silent, though —
// they are reported through slog so operators can alert on audit loss.
package audit
