package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tiktokalert/tiktokalert-go/internal/activitylog"
	"github.com/tiktokalert/tiktokalert-go/internal/config"
)

type parseOptions struct {
	format      string
	since       string
	until       string
	stopOnError bool
}

func newParseCmd() *cobra.Command {
	opts := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "parse <unique_id>",
		Short: "Print the entries of an activity log",
		Long: `Read <unique_id>_log.txt once and print its entries.

Examples:
  # Everything logged for @streamer
  tiktokalert parse streamer

  # One evening as JSON Lines
  tiktokalert parse streamer --since 2024-01-15T18:00:00Z --until 2024-01-15T23:00:00Z --format jsonl`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeBroadcasters,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, opts, args[0])
		},
	}

	cmd.Flags().String(config.KeyLogDir, config.DefaultLogDir, "directory holding <unique_id>_log.txt")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, jsonl")
	cmd.Flags().StringVar(&opts.since, "since", "",
		"Only entries at/after timestamp (RFC3339 format, e.g., 2024-01-15T12:00:00Z)")
	cmd.Flags().StringVar(&opts.until, "until", "",
		"Only entries up to timestamp (RFC3339 format)")
	cmd.Flags().BoolVar(&opts.stopOnError, "stop-on-error", false,
		"Stop on first malformed line instead of skipping")
	registerFormatCompletion(cmd)
	return cmd
}

func runParse(cmd *cobra.Command, opts *parseOptions, uniqueID string) error {
	if err := validateFormat(opts.format); err != nil {
		return err
	}

	since, until, err := parseTimeRange(opts.since, opts.until)
	if err != nil {
		return err
	}

	path, err := findLog(cmd, uniqueID)
	if err != nil {
		return err
	}

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	for entry, err := range activitylog.ReadFile(ctx, path,
		activitylog.WithTimeRange(since, until),
		activitylog.WithStopOnError(opts.stopOnError),
	) {
		if err != nil {
			// Ctrl+C: exit silently
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("parse error: %w", err)
		}

		if err := OutputEntry(opts.format, entry, out); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}

	return nil
}

// parseTimeRange parses since and until strings into time.Time values.
func parseTimeRange(since, until string) (time.Time, time.Time, error) {
	var sinceTime, untilTime time.Time
	var err error

	if since != "" {
		sinceTime, err = time.Parse(time.RFC3339, since)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --since format: %w (expected RFC3339, e.g., 2024-01-15T12:00:00Z)", err)
		}
	}

	if until != "" {
		untilTime, err = time.Parse(time.RFC3339, until)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --until format: %w (expected RFC3339, e.g., 2024-01-15T12:00:00Z)", err)
		}
	}

	if !sinceTime.IsZero() && !untilTime.IsZero() && sinceTime.After(untilTime) {
		return time.Time{}, time.Time{}, fmt.Errorf("--since must be before --until")
	}

	return sinceTime, untilTime, nil
}

func trimHandle(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "@")
}
