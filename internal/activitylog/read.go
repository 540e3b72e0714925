package activitylog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"time"
)

// ParseError is yielded for a malformed line when stop-on-error is set.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ReadOption configures ReadFile.
type ReadOption func(*readConfig)

type readConfig struct {
	since       time.Time
	until       time.Time
	stopOnError bool
}

// WithTimeRange keeps entries at or after since and not after until.
// A zero bound is open.
func WithTimeRange(since, until time.Time) ReadOption {
	return func(c *readConfig) {
		c.since = since
		c.until = until
	}
}

// WithStopOnError stops at the first malformed line instead of skipping it.
func WithStopOnError(stop bool) ReadOption {
	return func(c *readConfig) {
		c.stopOnError = stop
	}
}

// ReadFile returns an iterator over the entries of an activity log.
// The file is opened on first iteration.
//
// Open and scan errors are yielded once and end the iteration. Malformed
// lines are skipped unless WithStopOnError is set.
func ReadFile(ctx context.Context, path string, opts ...ReadOption) iter.Seq2[Entry, error] {
	if path == "" {
		return func(yield func(Entry, error) bool) {
			yield(Entry{}, errors.New("activitylog: path required"))
		}
	}

	cfg := &readConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	return func(yield func(Entry, error) bool) {
		file, err := os.Open(path)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 512*1024)

		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				yield(Entry{}, err)
				return
			}

			line := scanner.Text()
			if line == "" {
				continue
			}
			entry, err := ParseLine(line)
			if err != nil {
				if cfg.stopOnError {
					yield(Entry{}, &ParseError{Line: line, Err: err})
					return
				}
				continue
			}

			if !cfg.since.IsZero() && entry.Time.Before(cfg.since) {
				continue
			}
			// Lines are appended in time order.
			if !cfg.until.IsZero() && entry.Time.After(cfg.until) {
				return
			}

			if !yield(entry, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(Entry{}, err)
		}
	}
}
