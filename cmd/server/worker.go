package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/google/logger"
	"github.com/spf13/cobra"

	"github.com/iliyamo/fest-registration/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume registration events and send confirmations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		logger.Infof("worker consuming %s", queue.RegistrationQueue)
		err = queue.Consume(ctx, cfg.AMQP.URL, a.processor)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
