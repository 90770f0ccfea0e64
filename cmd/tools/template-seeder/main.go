// cmd/tools/template-seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"rentpulse/internal/common/config"
	"rentpulse/internal/common/database"
	commonerrors "rentpulse/internal/common/errors"
	"rentpulse/internal/common/logger"
	"rentpulse/internal/models"
	"rentpulse/internal/templates"
	"rentpulse/pkg/catalog"
)

func main() {
	manifestPath := flag.String("manifest", "", "Path to a template manifest JSON file (default: built-in stock templates)")
	dryRun := flag.Bool("dry-run", false, "Print what would be seeded without writing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewStructured(cfg.Logging.Level, "console")

	manifest := catalog.Stock()
	if *manifestPath != "" {
		manifest, err = catalog.Load(*manifestPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "manifest: %v\n", err)
			os.Exit(1)
		}
	}

	if *dryRun {
		for _, t := range manifest.Templates {
			fmt.Printf("would seed %-20s category=%-10s vars=%v\n", t.Name, t.Category, t.Variables)
		}
		return
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	engine := templates.NewEngine(templates.NewPostgresRepository(pg.GetDB()), log)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seeded, skipped := 0, 0
	for _, t := range manifest.Templates {
		if _, err := engine.GetByName(ctx, t.Name); err == nil {
			skipped++
			log.Info("template already present", map[string]interface{}{"name": t.Name})
			continue
		} else if !commonerrors.IsCode(err, commonerrors.ErrCodeTemplateNotFound) {
			fmt.Fprintf(os.Stderr, "lookup %s: %v\n", t.Name, err)
			os.Exit(1)
		}

		tmpl, err := engine.Register(ctx, t.Name, models.MessageCategory(t.Category), t.Body, t.Variables)
		if err != nil {
			fmt.Fprintf(os.Stderr, "register %s: %v\n", t.Name, err)
			os.Exit(1)
		}
		seeded++
		log.Info("template seeded", map[string]interface{}{"name": t.Name, "templateId": tmpl.ID})
	}

	fmt.Printf("done: %d seeded, %d skipped\n", seeded, skipped)
}
