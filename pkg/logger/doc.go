// Package logger builds the process-wide slog logger: JSON for production
// aggregation, text for local development, with static service attributes.
package logger
