// Package pg owns the PostgreSQL connection pool: env-driven configuration,
// connect-with-retry for orderly service startup, a healthcheck closure, and
// goose schema migrations bridged over the pgx pool.
package pg
