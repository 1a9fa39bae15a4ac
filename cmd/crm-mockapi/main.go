// Command crm-mockapi serves the CRM collaborator over HTTP for development:
// the seeded in-memory fixture by default, or MongoDB with
// MOCKAPI_STORAGE=mongo.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/etiya/crm-client/internal/api"
	"github.com/etiya/crm-client/internal/api/handler"
	"github.com/etiya/crm-client/internal/core/service"
	"github.com/etiya/crm-client/internal/infrastructure/config"
	"github.com/etiya/crm-client/internal/infrastructure/db/mongo"
	"github.com/etiya/crm-client/internal/infrastructure/fixture"
	"github.com/etiya/crm-client/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{})
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment(), Service: "crm-mockapi"})

	deps, cleanup, err := buildDeps(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise storage")
	}
	defer cleanup()

	e := api.NewRouter(deps)
	go func() {
		log.Info().Str("port", cfg.MockAPI.Port).Str("storage", cfg.MockAPI.Storage).Msg("mock api listening")
		if err := e.Start(":" + cfg.MockAPI.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("mock api stopped")
}

func buildDeps(ctx context.Context, cfg *config.Config, log zerolog.Logger) (api.Deps, func(), error) {
	deps := api.Deps{Log: log.With().Str("component", "mockapi").Logger()}

	if cfg.MockAPI.Storage != config.StorageMongo {
		fx := fixture.New(fixture.Options{
			JWTSecret: cfg.JWTSecret,
			TokenTTL:  cfg.MockAPI.TokenTTL,
		}, logger.Component("fixture"))
		deps.Auth = fx.Auth
		deps.Tokens = fx.Auth.Tokens()
		deps.Customers = fx.Customers
		deps.Tasks = fx.Tasks
		return deps, func() {}, nil
	}

	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return deps, nil, err
	}
	cleanup := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		cleanup()
		return deps, nil, err
	}
	seed := fixture.SeedData()
	seeded, err := mongo.SeedIfEmpty(ctx, db, seed.Users, seed.Customers, seed.Tasks)
	if err != nil {
		cleanup()
		return deps, nil, err
	}
	if seeded {
		log.Info().Str("database", cfg.Mongo.Database).Msg("seeded demo data")
	}

	users := mongo.NewUserRepository(db)
	customers := mongo.NewCustomerRepository(db)
	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.MockAPI.TokenTTL)

	deps.Auth = service.NewAuthenticator(users, tokens, logger.Component("auth"))
	deps.Tokens = tokens
	deps.Customers = customers
	deps.Tasks = mongo.NewTaskRepository(db, customers, users)
	deps.Probes = map[string]handler.Probe{"mongodb": handler.MongoProbe(db)}
	return deps, cleanup, nil
}
