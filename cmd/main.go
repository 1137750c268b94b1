// Package main is the users service CLI: the HTTP API, the order-completed
// worker, migrations and seeding.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oksasatya/users-service/config"
	"github.com/oksasatya/users-service/pkg/helpers"
)

// app is filled by the root command before any subcommand runs.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *logrus.Logger
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "users",
		Short:         "User registration, login and lookup service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load() // load .env if present

			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = helpers.NewLogger(cfg.App.Name, cfg.App.Env, cfg.App.LogLevel)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "JSON config file path")

	rootCmd.AddCommand(
		serveCommand(a),
		workerCommand(a),
		migrateCommand(a),
		seedCommand(a),
	)

	if err := rootCmd.Execute(); err != nil {
		if a.logger != nil {
			a.logger.WithError(err).Error("command failed")
		} else {
			logrus.WithError(err).Error("command failed")
		}
		os.Exit(1)
	}
}
