package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/therapy-appointments/internal/appointment"
	"github.com/hackgods/therapy-appointments/internal/config"
	"github.com/hackgods/therapy-appointments/internal/db"
	"github.com/hackgods/therapy-appointments/internal/logging"
	redisclient "github.com/hackgods/therapy-appointments/internal/redis"
)

// The worker cancels pending appointments whose start time has passed without a therapist decision.
func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("dev", "info", "expiry-worker")
		boot.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, cfg.LogLevel, "expiry-worker")
	logger.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("expiry-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2, MinConns: 1})
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	schemaCtx, cancelSchema := context.WithTimeout(rootCtx, 30*time.Second)
	err = db.EnsureSchema(schemaCtx, pgPool)
	cancelSchema()
	if err != nil {
		logger.Fatal().Err(err).Msg("schema setup error")
	}

	repo := appointment.NewPgRepository(pgPool)
	// expiry only moves pending rows to cancelled, which frees slots and never needs the slot lock
	svc := appointment.NewService(repo, redisclient.NopLocker{}, cfg, &logger)

	// Run once at startup
	runOnce(rootCtx, svc, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping expiry worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	lapsed, err := svc.ExpirePendingAppointments(runCtx)
	if err != nil {
		logger.Error().Err(err).Msg("expiry run error")
		return
	}
	logger.Info().Int("lapsed", lapsed).Dur("took", time.Since(start)).Msg("expiry run complete")
}
