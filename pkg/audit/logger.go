package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Storage persists audit events. Implementations should be append-only.
type Storage interface {
	Store(ctx context.Context, event Event) error
}

// Logger writes audit events without ever failing the caller.
type Logger struct {
	storage Storage
	log     *slog.Logger
}

// NewLogger creates an audit logger over the given storage. A nil slog logger
// falls back to slog.Default.
func NewLogger(storage Storage, log *slog.Logger) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Logger{storage: storage, log: log}
}

// Log records an event. Storage failures are reported to slog and swallowed:
// the security decision the event describes has already been made and must
// not be reverted or blocked by audit unavailability.
func (l *Logger) Log(ctx context.Context, userID string, eventType EventType, success bool, opts ...Option) {
	event := Event{
		ID:        uuid.New().String(),
		UserID:    userID,
		EventType: eventType,
		Success:   success,
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&event)
	}

	if err := l.storage.Store(ctx, event); err != nil {
		l.log.ErrorContext(ctx, "audit event lost",
			slog.String("event_type", string(event.EventType)),
			slog.String("user_id", event.UserID),
			slog.Bool("success", event.Success),
			slog.Any("error", err),
		)
	}
}
