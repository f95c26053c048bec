package main

import (
	"fmt"
	"os"

	"bakery-backoffice/internal/config"
	"bakery-backoffice/internal/repository"
	"bakery-backoffice/internal/service"
	"bakery-backoffice/pkg/database"
	"bakery-backoffice/pkg/jwt"
	"bakery-backoffice/pkg/logger"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "reset-password",
		Usage: "set a new password for a back-office account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "account email", Required: true},
			&cli.StringFlag{Name: "password", Usage: "new password (min 6 characters)", Required: true},
			&cli.StringFlag{Name: "env-file", Usage: "dotenv file to load", Value: ".env"},
		},
		Action: func(c *cli.Context) error {
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
			tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)
			if err != nil {
				return err
			}

			auth := service.NewAuthService(repository.NewUserRepo(db), tokens, log)
			if err := auth.ResetPassword(c.String("email"), c.String("password")); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "password for %s has been reset\n", c.String("email"))
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
