package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rollcall/internal/capture"
	"rollcall/internal/config"
	"rollcall/internal/logging"
	"rollcall/internal/notifications"
	"rollcall/internal/pipeline"
	"rollcall/internal/store"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a capture session in the foreground",
		Long: `Run a capture session attached to the terminal. Recognition and
cooldown events print to stdout as they happen. Use the rollcalld daemon for
unattended operation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return err
				}

				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				notifier := notifications.NewService(cfg)
				factory := capture.NewSessionFactory(cfg, st, notifier, logger, func(event pipeline.Event) {
					printEvent(cmd, event)
				})

				session, err := factory(runCtx)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Capturing from %s (Ctrl+C to stop)\n", cfg.Camera.StreamURL)
				if err := session.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		},
	}
}

func printEvent(cmd *cobra.Command, event pipeline.Event) {
	stamp := event.At.Format("15:04:05")
	switch event.Type {
	case pipeline.EventRecognitionConfirmed:
		fmt.Fprintf(cmd.OutOrStdout(), "%s  recognized %s (%s)\n", stamp, event.Name, event.PersonID)
	case pipeline.EventCooldownActive:
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s already logged, cooldown %s remaining\n", stamp, event.PersonID, event.Remaining.Round(time.Second))
	case pipeline.EventUnknownFace:
		fmt.Fprintf(cmd.OutOrStdout(), "%s  unknown face on track %s\n", stamp, event.TrackID)
	case pipeline.EventTrackLost:
		fmt.Fprintf(cmd.OutOrStdout(), "%s  track %s lost\n", stamp, event.TrackID)
	}
}
