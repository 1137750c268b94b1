package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oksasatya/users-service/internal/container"
	"github.com/oksasatya/users-service/internal/worker"
	"github.com/oksasatya/users-service/pkg/helpers"
)

func workerCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consumes order-completed messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, logger := a.cfg, a.logger
			if !cfg.Messaging.Enabled {
				logger.Info("MESSAGING_ENABLED=false; order-completed worker disabled")
				return nil
			}

			repo, closeRepo, err := container.BuildUserRepository(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeRepo() }()

			consumer, err := helpers.NewRabbitConsumer(cfg.Messaging.URL, cfg.Messaging.OrderCompletedQueue, cfg.Messaging.Prefetch)
			if err != nil {
				return fmt.Errorf("rabbitmq consumer: %w", err)
			}
			defer consumer.Close()

			deliveries, err := consumer.Deliveries(cfg.App.Name)
			if err != nil {
				return fmt.Errorf("consume %s: %w", cfg.Messaging.OrderCompletedQueue, err)
			}

			w := worker.NewOrderCompletedWorker(container.BuildUserService(repo, cfg, logger), logger, 0)
			helpers.LogInfo(logger, "order-completed worker listening", logrus.Fields{"queue": cfg.Messaging.OrderCompletedQueue})

			err = w.Run(ctx, deliveries)
			if errors.Is(err, context.Canceled) {
				logger.Info("worker shutting down")
				return nil
			}
			return err
		},
	}
}
