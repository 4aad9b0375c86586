// main.go
//
// Entry point for the house hunt server.
// Responsibilities:
//   - Load configuration (.env + environment) and set the log level.
//   - Open SQLite (file or in-memory) and apply embedded migrations.
//   - Start loading the house assets in the background; sessions wait
//     in "loading" until the catalog is ready.
//   - Serve HTTP and sweep idle sessions.

package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/househunt/assets"
	"github.com/robalobadob/househunt/internal/config"
	"github.com/robalobadob/househunt/internal/httpserver"
	"github.com/robalobadob/househunt/internal/loader"
	"github.com/robalobadob/househunt/internal/store"
)

const sweepInterval = time.Minute

func main() {
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	ctx := context.Background()

	dsn := cfg.DBPath
	if dsn == "" {
		dsn = store.MemoryDSN
	}
	db, err := store.Open(dsn)
	if err != nil {
		log.Fatal().Err(err).Str("db", dsn).Msg("failed to open database")
	}
	defer db.Close()

	migrations, err := assets.Migrations()
	if err != nil {
		log.Fatal().Err(err).Msg("embedded migrations missing")
	}
	if err := store.Migrate(ctx, db, migrations); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	assetLoader := loader.New(cfg.AssetsDir)
	go func() {
		// Failure is already logged by the loader; sessions stay in loading.
		_ = assetLoader.Load(ctx)
	}()

	srv := httpserver.New(httpserver.Deps{
		Config: cfg,
		Store:  store.NewSQLiteStore(db),
		DB:     db,
		Assets: assetLoader,
	})
	defer srv.Close()
	go srv.SweepIdle(ctx, sweepInterval, cfg.SessionIdle)

	log.Info().Str("port", cfg.Port).Str("db", dsn).Str("assets", cfg.AssetsDir).Msg("starting househunt server")
	if err := srv.Start(cfg.Addr()); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
