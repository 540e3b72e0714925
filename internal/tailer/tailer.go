// Package tailer follows an activity log file and emits its parsed entries.
package tailer

import (
	"context"
	"fmt"
	"sync"

	"github.com/nxadm/tail"

	"github.com/tiktokalert/tiktokalert-go/internal/activitylog"
)

// errBuffer keeps a few errors around while the consumer is busy printing.
const errBuffer = 16

// Tailer wraps nxadm/tail and parses each line with activitylog.ParseLine.
type Tailer struct {
	t       *tail.Tail
	ctx     context.Context
	cancel  context.CancelFunc
	entries chan activitylog.Entry
	errors  chan error
	doneCh  chan struct{}

	mu      sync.Mutex
	stopped bool
}

// Config holds configuration for tailing.
type Config struct {
	// Follow continues reading as the file grows (tail -f).
	Follow bool

	// ReOpen reopens the file when it is truncated or recreated (tail -F).
	ReOpen bool

	// Poll uses polling instead of inotify.
	Poll bool

	// FromStart reads the whole file before following it.
	FromStart bool
}

// DefaultConfig follows new lines only.
func DefaultConfig() Config {
	return Config{
		Follow: true,
		ReOpen: true,
	}
}

// New starts tailing path. The file must exist.
// The provided context controls the tailer's lifecycle.
func New(ctx context.Context, path string, cfg Config) (*Tailer, error) {
	location := &tail.SeekInfo{Offset: 0, Whence: 2}
	if cfg.FromStart {
		location = &tail.SeekInfo{Offset: 0, Whence: 0}
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    cfg.Follow,
		ReOpen:    cfg.ReOpen,
		Poll:      cfg.Poll,
		MustExist: true,
		Location:  location,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening tail: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	tailer := &Tailer{
		t:       t,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(chan activitylog.Entry),
		errors:  make(chan error, errBuffer),
		doneCh:  make(chan struct{}),
	}

	go tailer.run()

	return tailer, nil
}

// Entries returns a channel that receives parsed log entries.
// It is closed when the tailer stops.
func (t *Tailer) Entries() <-chan activitylog.Entry {
	return t.entries
}

// Errors returns a channel that receives read and parse errors.
// Errors are dropped when the buffer is full.
func (t *Tailer) Errors() <-chan error {
	return t.errors
}

// Stop stops tailing and closes all channels.
// Safe to call multiple times.
func (t *Tailer) Stop() error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.stopped = true
	t.mu.Unlock()

	t.cancel()
	<-t.doneCh
	return t.t.Stop()
}

func (t *Tailer) run() {
	defer close(t.doneCh)
	defer close(t.entries)
	defer close(t.errors)

	for {
		select {
		case <-t.ctx.Done():
			return
		case line, ok := <-t.t.Lines:
			if !ok {
				return
			}
			if line.Err != nil {
				t.sendError(fmt.Errorf("tail: %w", line.Err))
				continue
			}
			if line.Text == "" {
				continue
			}
			entry, err := activitylog.ParseLine(line.Text)
			if err != nil {
				t.sendError(err)
				continue
			}
			select {
			case t.entries <- entry:
			case <-t.ctx.Done():
				return
			}
		}
	}
}

func (t *Tailer) sendError(err error) {
	select {
	case t.errors <- err:
	default:
	}
}
