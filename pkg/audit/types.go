package audit

import "time"

// EventType enumerates the auditable actions of the subsystem.
type EventType string

const (
	EventSetupInitiated EventType = "setup_initiated"
	EventVerifyAttempt  EventType = "verify_attempt"
	EventEnabled        EventType = "enabled"
	EventDisableAttempt EventType = "disable_attempt"
	EventDisabled       EventType = "disabled"
	EventLoginFailed    EventType = "login_failed"
	EventLoginSuccess   EventType = "login_success"
)

// Event is a single audit log entry.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventType EventType `json:"event_type"`
	Success   bool      `json:"success"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Option decorates an event with optional request metadata.
type Option func(*Event)

// WithIP attaches the client IP address.
func WithIP(ip string) Option {
	return func(e *Event) { e.IPAddress = ip }
}

// WithUserAgent attaches the client User-Agent.
func WithUserAgent(ua string) Option {
	return func(e *Event) { e.UserAgent = ua }
}
