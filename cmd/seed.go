package main

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oksasatya/users-service/internal/container"
	"github.com/oksasatya/users-service/internal/domain/apperror"
	"github.com/oksasatya/users-service/pkg/helpers"
)

func seedCommand(a *app) *cobra.Command {
	var email, name, password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Creates a demo user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger := a.cfg, a.logger

			repo, closeRepo, err := container.BuildUserRepository(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeRepo() }()

			svc := container.BuildUserService(repo, cfg, logger)
			u, err := svc.Register(ctx, email, name, password)
			if errors.Is(err, apperror.ErrUserAlreadyExists) {
				helpers.LogInfo(logger, "demo user already present", logrus.Fields{"email": email})
				return nil
			}
			if err != nil {
				return err
			}

			helpers.LogInfo(logger, "seeded user", logrus.Fields{"email": u.EmailAddress(), "name": u.Name()})
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "demo@example.com", "email address of the seeded user")
	cmd.Flags().StringVar(&name, "name", "Demo User", "name of the seeded user")
	cmd.Flags().StringVar(&password, "password", "Demo!2345", "password of the seeded user")
	return cmd
}
