package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/joho/godotenv/autoload"

	"github.com/certusflow/twofactor/modules/twofa"
	"github.com/certusflow/twofactor/pkg/audit"
	"github.com/certusflow/twofactor/pkg/httpserver"
	"github.com/certusflow/twofactor/pkg/logger"
	"github.com/certusflow/twofactor/pkg/pg"
	"github.com/certusflow/twofactor/pkg/secrets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var logCfg logConfig
	if err := env.Parse(&logCfg); err != nil {
		os.Stderr.WriteString("failed to parse log config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(
		logger.WithLevel(logCfg.Level),
		logger.WithFormat(logger.Format(logCfg.Format)),
		logger.WithService("twofactord"),
	)

	fatal := func(msg string, err error) {
		log.Error(msg, "error", err)
		os.Exit(1)
	}

	masterKey, err := secrets.LoadMasterKey()
	if err != nil {
		fatal("failed to load master key", err)
	}

	var srvCfg httpserver.Config
	if err := env.Parse(&srvCfg); err != nil {
		fatal("failed to parse server config", err)
	}
	var pgCfg pg.Config
	if err := env.Parse(&pgCfg); err != nil {
		fatal("failed to parse postgres config", err)
	}
	var twofaCfg twofa.Config
	if err := env.Parse(&twofaCfg); err != nil {
		fatal("failed to parse twofa config", err)
	}
	var authCfg authConfig
	if err := env.Parse(&authCfg); err != nil {
		fatal("failed to parse auth config", err)
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		fatal("failed to connect to postgres", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		fatal("failed to run migrations", err)
	}

	auditLog := audit.NewLogger(twofa.NewPostgresAuditStorage(pool), log)
	svc, err := twofa.NewService(
		twofaCfg,
		masterKey,
		twofa.NewPostgresStorage(pool),
		auditLog,
		newAuthClient(authCfg),
		log,
	)
	if err != nil {
		fatal("failed to build twofa service", err)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	healthcheck := pg.Healthcheck(pool)
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := healthcheck(req.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Mount("/2fa", svc.Router())

	if err := httpserver.New(srvCfg, log).Run(ctx, r); err != nil {
		fatal("server stopped", err)
	}
}
