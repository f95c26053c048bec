package main

import (
	"context"
	"fmt"
	"os"

	"bakery-backoffice/internal/config"
	"bakery-backoffice/internal/repository"
	"bakery-backoffice/internal/service"
	"bakery-backoffice/pkg/database"
	"bakery-backoffice/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "recost",
		Usage: "recompute every recipe's production cost from current ingredient prices and stock",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "report new costs without storing them",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file to load before reading the environment",
				Value: ".env",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, _, err := config.Load(c.String("env-file"))
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	recipes := service.NewRecipeService(
		repository.NewIngredientRepo(db),
		repository.NewRecipeRepo(db),
		repository.NewOrderRepo(db),
		db,
		log,
	)

	dryRun := c.Bool("dry-run")
	report, err := recipes.RecostAll(context.Background(), dryRun)
	if err != nil {
		return err
	}

	out := c.App.Writer
	for _, e := range report.Entries {
		if e.Error != "" {
			fmt.Fprintf(out, "%-30s kept %s (%s)\n", e.Recipe, costString(e.Previous), e.Error)
			continue
		}
		fmt.Fprintf(out, "%-30s %s -> %s\n", e.Recipe, costString(e.Previous), costString(e.Current))
	}
	suffix := ""
	if dryRun {
		suffix = " (dry run, nothing stored)"
	}
	fmt.Fprintf(out, "%d recosted, %d failed%s\n", report.Recosted, report.Failed, suffix)
	return nil
}

func costString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "none"
	}
	return d.Decimal.StringFixed(4)
}
