package main

import (
	"log/slog"
	"time"
)

type logConfig struct {
	Level  slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	Format string     `env:"LOG_FORMAT" envDefault:"json"`
}

type authConfig struct {
	// VerifyURL receives {email,password} and answers 200 with
	// {user_id,session} or 401 for bad credentials.
	VerifyURL string `env:"AUTH_VERIFY_URL,required"`

	// RevokeURL receives {session} and invalidates it.
	RevokeURL string `env:"AUTH_REVOKE_URL,required"`

	Timeout time.Duration `env:"AUTH_TIMEOUT" envDefault:"5s"`
}
