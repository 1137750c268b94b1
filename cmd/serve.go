package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oksasatya/users-service/config"
	"github.com/oksasatya/users-service/internal/container"
	"github.com/oksasatya/users-service/internal/interface/middleware"
	"github.com/oksasatya/users-service/internal/router"
	"github.com/oksasatya/users-service/pkg/helpers"
	"github.com/oksasatya/users-service/pkg/validation"
)

func serveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, logger := a.cfg, a.logger
			gin.SetMode(cfg.HTTP.GinMode)
			validation.Init()

			tel, err := container.BuildTelemetry(cfg)
			if err != nil {
				return err
			}
			if tel != nil {
				container.SetTelemetry(tel)
				defer func() { _ = tel.Shutdown(context.Background()) }()
			}

			repo, closeRepo, err := container.BuildUserRepository(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeRepo(); err != nil {
					helpers.LogError(logger, "closing user storage", err, nil)
				}
			}()

			if cfg.Messaging.Enabled {
				pub, err := helpers.NewRabbitPublisher(cfg.Messaging.URL, cfg.Messaging.UserRegisteredQueue)
				if err != nil {
					// registration must keep working without the broker
					helpers.LogWarn(logger, "rabbitmq unavailable, user-registered events disabled", err, nil)
				} else {
					container.SetRabbitPub(pub)
					defer pub.Close()
				}
			}

			container.SetConfig(cfg)
			container.SetLogger(logger)
			container.SetUserRepository(repo)
			container.SetUserService(container.BuildUserService(repo, cfg, logger))

			r := newEngine(cfg, logger)
			reg := router.NewRegistry(r, cfg.HTTP.Prefix)
			router.InitModules(reg)
			reg.RegisterAll()

			srv := &http.Server{
				Addr:              cfg.Addr(),
				Handler:           r,
				ReadTimeout:       cfg.HTTP.ReadTimeout,
				ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
				WriteTimeout:      cfg.HTTP.WriteTimeout,
				IdleTimeout:       cfg.HTTP.IdleTimeout,
			}
			serveErr := make(chan error, 1)
			go func() {
				logger.Infof("server starting on %s", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				return err
			case <-ctx.Done():
			}
			logger.Info("shutting down server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			logger.Info("server exited properly")
			return nil
		},
	}
}

// newEngine builds the gin engine with the global middleware.
func newEngine(cfg *config.Config, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	if len(cfg.HTTP.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.HTTP.CORSAllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
			ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}
	if cfg.HTTP.AccessLog {
		r.Use(middleware.RequestLogger(logger))
	}
	return r
}
