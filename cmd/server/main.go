package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Simplici0/printcost/internal/config"
	"github.com/Simplici0/printcost/internal/costmodel"
	"github.com/Simplici0/printcost/internal/db"
	"github.com/Simplici0/printcost/internal/logging"
	"github.com/Simplici0/printcost/internal/migrations"
	"github.com/Simplici0/printcost/internal/properties"
	"github.com/Simplici0/printcost/internal/seed"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.IsDev(), os.Stderr)
	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database.DB); err != nil {
			log.Fatal().Err(err).Msg("failed to run database migrations")
		}
		stats, err := seed.Run(database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to seed property table")
		}
		log.Info().Int("inserts", stats.Inserts).Msg("property table seeded")
	}

	store := properties.NewStore(database)
	srv := &server{
		store:         store,
		model:         costmodel.New(store, cfg.Policy()),
		apiToken:      cfg.APIToken,
		defaultSource: cfg.CostSource,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	log.Info().Str("addr", httpServer.Addr).Str("env", cfg.Env).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
