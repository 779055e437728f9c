package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/Alexander-Kershaw/JANUS/internal/events"
	"github.com/Alexander-Kershaw/JANUS/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch [topic]",
	Short:   "Stream run events from NATS",
	GroupID: "system",
	Args:    cobra.MaximumNArgs(1),
	// Override PersistentPreRunE so watching does not need warehouse credentials.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats-url")
		if natsURL == "" {
			return fmt.Errorf("JANUS_NATS_URL is not set")
		}
		topic := events.TopicAll
		if len(args) == 1 {
			topic = args[0]
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("nats disconnected", "err", err)
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				logger.Info("nats reconnected", "url", nc.ConnectedUrl())
			}),
		)
		if err != nil {
			return err
		}
		defer sub.Close()

		return watchEvents(ctx, sub, topic, logger)
	},
}

func init() {
	watchCmd.Flags().String("nats-url", os.Getenv("JANUS_NATS_URL"), "NATS server URL")
}

// watchEvents prints every message on topic until ctx is done.
func watchEvents(ctx context.Context, sub events.Subscriber, topic string, log *slog.Logger) error {
	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return err
	}
	defer cancel()
	log.Info("watching run events", "topic", topic)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			printEvent(time.Now(), msg)
		}
	}
}
