// Package httpserver runs an http.Server with context-driven graceful
// shutdown and env-based configuration.
package httpserver
