/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/identikit/apiserver/config"
	"github.com/identikit/apiserver/internal/events"
	"github.com/identikit/apiserver/internal/logging"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Security event stream tools",
}

var eventsListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Consume security events and write them to the audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := logging.Setup("identikit-events", cfg.Env, os.Getenv("LOG_FORMAT"), nil)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		backend, err := events.NewBackend(ctx, cfg.Events)
		if err != nil {
			return err
		}
		if backend == nil {
			return errors.New("EVENTS_BACKEND is not configured")
		}
		defer func() {
			_ = backend.Close()
		}()

		consumer := events.NewConsumer(backend, cfg.Events.Channel, logger)
		logger.Info("listening for security events", "channel", cfg.Events.Channel)
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListenCmd)
}
