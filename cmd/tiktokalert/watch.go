package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tiktokalert/tiktokalert-go/internal/activitylog"
	"github.com/tiktokalert/tiktokalert-go/internal/config"
	"github.com/tiktokalert/tiktokalert-go/internal/monitor"
	"github.com/tiktokalert/tiktokalert-go/internal/notify"
	"github.com/tiktokalert/tiktokalert-go/internal/supervisor"
	"github.com/tiktokalert/tiktokalert-go/pkg/webcast"
)

// drainTimeout bounds how long queued notifications may delay exit.
const drainTimeout = 10 * time.Second

// session is the live connection the supervisor drives.
type session interface {
	supervisor.Session
	io.Closer
}

// newSession builds the live connection for cfg. Tests replace it.
var newSession = func(cfg config.Config, logger *slog.Logger) (session, error) {
	return webcast.NewClient(cfg.BroadcasterID,
		webcast.WithRelayURL(cfg.RelayURL),
		webcast.WithLogger(logger),
	)
}

func runWatch(cmd *cobra.Command, args []string) error {
	stdout := cmd.OutOrStdout()

	v, err := config.Bind(cmd.Flags())
	if err != nil {
		return err
	}
	cfg, err := config.Load(v, args[0], args[1], args[2])
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "unique_id: %s\n", cfg.BroadcasterID)
	fmt.Fprintf(stdout, "user_id: %s\n", cfg.WatchedUserID)
	fmt.Fprintf(stdout, "topic_id: %s\n", cfg.Topic)

	logger := newLogger(cfg.Verbose, cmd.ErrOrStderr())

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	alog, err := activitylog.Open(cfg.LogDir, cfg.BroadcasterID, stdout)
	if err != nil {
		return err
	}
	defer alog.Close()

	dispatcher := notify.NewDispatcher(
		notify.NewClient(cfg.TopicURL(), notify.WithClientLogger(logger)),
		notify.WithLogger(logger),
	)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := dispatcher.Close(drainCtx); err != nil {
			logger.Warn("pending notifications dropped", "error", err)
		}
	}()

	sess, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	mon := monitor.New(cfg, alog, dispatcher)
	sup := supervisor.New(sess, mon,
		supervisor.WithRetryDelay(cfg.RetryDelay),
		supervisor.WithLogger(logger),
	)
	return sup.Run(ctx)
}
