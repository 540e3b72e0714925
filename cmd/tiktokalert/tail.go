package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tiktokalert/tiktokalert-go/internal/activitylog"
	"github.com/tiktokalert/tiktokalert-go/internal/config"
	"github.com/tiktokalert/tiktokalert-go/internal/tailer"
)

type tailOptions struct {
	format    string
	fromStart bool
	poll      bool
}

func newTailCmd() *cobra.Command {
	opts := &tailOptions{}
	cmd := &cobra.Command{
		Use:   "tail <unique_id>",
		Short: "Follow the activity log of a broadcaster",
		Long: `Follow <unique_id>_log.txt as a running watch appends to it.

Examples:
  # Follow new lines
  tiktokalert tail streamer

  # Print the whole log, then follow it
  tiktokalert tail streamer --from-start

  # JSON Lines for jq
  tiktokalert tail streamer --format jsonl | jq -r 'select(.message | contains("->")) | .message'`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeBroadcasters,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTail(cmd, opts, args[0])
		},
	}

	cmd.Flags().String(config.KeyLogDir, config.DefaultLogDir, "directory holding <unique_id>_log.txt")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, jsonl")
	cmd.Flags().BoolVar(&opts.fromStart, "from-start", false, "Print existing lines before following")
	cmd.Flags().BoolVar(&opts.poll, "poll", false, "Poll for changes instead of using file notifications")
	registerFormatCompletion(cmd)
	return cmd
}

func runTail(cmd *cobra.Command, opts *tailOptions, uniqueID string) error {
	if err := validateFormat(opts.format); err != nil {
		return err
	}

	path, err := findLog(cmd, uniqueID)
	if err != nil {
		return err
	}

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := tailer.DefaultConfig()
	cfg.FromStart = opts.fromStart
	cfg.Poll = opts.poll

	t, err := tailer.New(ctx, path, cfg)
	if err != nil {
		return err
	}
	defer t.Stop()

	out := cmd.OutOrStdout()
	for {
		select {
		case entry, ok := <-t.Entries():
			if !ok {
				return nil
			}
			if err := OutputEntry(opts.format, entry, out); err != nil {
				return fmt.Errorf("output error: %w", err)
			}

		case err, ok := <-t.Errors():
			if !ok {
				return nil
			}
			// Always output errors to stderr
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)

		case <-ctx.Done():
			return nil
		}
	}
}

// findLog resolves the log of uniqueID in --log-dir or TIKTOKALERT_LOG_DIR.
func findLog(cmd *cobra.Command, uniqueID string) (string, error) {
	v, err := config.Bind(cmd.Flags())
	if err != nil {
		return "", err
	}
	return activitylog.Find(v.GetString(config.KeyLogDir), trimHandle(uniqueID))
}
