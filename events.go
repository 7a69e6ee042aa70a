package main

import (
	"errors"
	"os/signal"
	"syscall"

	"usersvc/pkg/rabbitmq"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewConsumeEventsCmd creates the consume-events subcommand, which tails the
// user event queue and logs each event.
func NewConsumeEventsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "consume-events",
		Short: "Log user events published to RabbitMQ",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd, v)
			if err != nil {
				return err
			}
			if cfg.RabbitMQURL == "" {
				return errors.New("RABBITMQ_URL is required")
			}

			client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := client.Close(); err != nil {
					logger.Warn("rabbitmq close failed", "error", err)
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("waiting for user events")
			err = client.ConsumeUserEvents(ctx, func(e rabbitmq.Event) error {
				logger.Info("user event", "type", e.Type, "id", e.ID, "occurred_at", e.OccurredAt, "data", e.Data)
				return nil
			})
			if err != nil {
				logger.Error("event consumer stopped", "error", err)
				return err
			}
			logger.Info("event consumer stopped")
			return nil
		},
	}
}
