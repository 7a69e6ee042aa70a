package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"usersvc/internal/config"
	"usersvc/internal/server"
	"usersvc/internal/services"
	"usersvc/pkg/rabbitmq"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd, v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.String("port", "", "listen port (overrides PORT)")
	flags.String("store-driver", "", "user store: mongo, postgres, sqlite or memory (overrides STORE_DRIVER)")
	flags.Bool("access-log", true, "log every HTTP request")
	bindFlags(v, flags, map[string]string{
		config.KeyPort:        "port",
		config.KeyStoreDriver: "store-driver",
		config.KeyAccessLog:   "access-log",
	})

	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// --- Initialize Store ---
	store, closeStore, err := server.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := closeStore(closeCtx); err != nil {
			logger.Error("failed to close user store", "error", err)
		}
	}()

	// --- Initialize Services ---
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)
	opts := []services.Option{services.WithBcryptCost(cfg.BcryptCost)}

	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := mqClient.Close(); err != nil {
				logger.Warn("failed to close RabbitMQ client", "error", err)
			}
		}()
		opts = append(opts, services.WithEventPublisher(mqClient))
	}

	authService := services.NewAuthService(store, tokens, logger, opts...)

	// --- Initialize Fiber App ---
	app := server.NewApp(cfg, server.Dependencies{
		Store:       store,
		AuthService: authService,
		Logger:      logger,
		AccessLog:   cfg.AccessLog,
	})

	// --- Start HTTP Server ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.ListenAddr(), "store", cfg.StoreDriver)
		errCh <- app.Listen(cfg.ListenAddr())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("listener returned error", "error", err)
	}
	logger.Info("server gracefully stopped")
	return nil
}
