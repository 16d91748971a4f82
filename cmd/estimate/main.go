// Command estimate prices a recipe file against the local property table.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/Simplici0/printcost/internal/config"
	"github.com/Simplici0/printcost/internal/costmodel"
	"github.com/Simplici0/printcost/internal/db"
	"github.com/Simplici0/printcost/internal/logging"
	"github.com/Simplici0/printcost/internal/migrations"
	"github.com/Simplici0/printcost/internal/properties"
	"github.com/Simplici0/printcost/internal/recipe"
	"github.com/Simplici0/printcost/internal/report"
	"github.com/Simplici0/printcost/internal/seed"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, true, os.Stderr)
	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
	}

	if err := run(context.Background(), cfg, os.Args[1:], os.Stdout); err != nil {
		log.Error().Err(err).Msg("estimate failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	recipePath := fs.String("recipe", "", "path to a YAML or JSON recipe")
	dbPath := fs.String("db", cfg.DBPath, "path to the SQLite property database")
	format := fs.String("format", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *recipePath == "" {
		return fmt.Errorf("-recipe is required")
	}
	if *format != "text" && *format != "json" {
		return fmt.Errorf("unknown format %q", *format)
	}

	f, err := os.Open(*recipePath)
	if err != nil {
		return fmt.Errorf("open recipe: %w", err)
	}
	defer f.Close()

	doc, err := recipe.DecodeDocument(f)
	if err != nil {
		return err
	}
	rec, device, err := doc.WithDefaultSource(cfg.CostSource).Build()
	if err != nil {
		return err
	}

	database, err := db.Open(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := migrations.Up(database.DB); err != nil {
		return err
	}
	stats, err := seed.Run(database)
	if err != nil {
		return err
	}
	log.Debug().Int("inserts", stats.Inserts).Msg("property table seeded")

	model := costmodel.New(properties.NewStore(database), cfg.Policy())
	rep, err := model.Calculate(ctx, rec, device)
	if err != nil {
		return err
	}

	if *format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return report.Render(out, rep)
}
