// Package supervisor keeps one live session open for as long as the process
// runs, waiting out offline periods and reconnecting after drops.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tiktokalert/tiktokalert-go/pkg/webcast"
	"github.com/tiktokalert/tiktokalert-go/pkg/webcast/event"
)

// DefaultRetryDelay is how long to wait before retrying an offline broadcaster.
const DefaultRetryDelay = 300 * time.Second

// Reconnect backoff after a dropped session. The delay doubles on each drop
// and resets once a session stays up for at least DefaultMaxReconnectDelay.
const (
	DefaultReconnectDelay    = time.Second
	DefaultMaxReconnectDelay = time.Minute
)

// Session is one broadcaster's live connection. *webcast.Client satisfies it.
type Session interface {
	Connect(ctx context.Context) error
	Run(ctx context.Context, handle func(event.Event)) error
}

// Handler receives session events and offline notices.
type Handler interface {
	Handle(ev event.Event)
	Offline(wait time.Duration)
}

// Supervisor owns the connect/run loop of a Session.
type Supervisor struct {
	session    Session
	handler    Handler
	clock      clockwork.Clock
	retryDelay time.Duration
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *slog.Logger

	attempts atomic.Int64
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithClock sets the clock used for offline waits. Default: real clock.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Supervisor) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithRetryDelay sets the offline wait. Default: 300 seconds.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.retryDelay = d
		}
	}
}

// WithReconnectBackoff sets the first and the largest wait before
// reconnecting after a dropped session. A zero base reconnects immediately.
func WithReconnectBackoff(base, limit time.Duration) Option {
	return func(s *Supervisor) {
		s.baseDelay = base
		s.maxDelay = limit
	}
}

// WithLogger sets the diagnostic logger.
// If nil, logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// New creates a Supervisor. It does not connect.
func New(session Session, handler Handler, opts ...Option) *Supervisor {
	s := &Supervisor{
		session:    session,
		handler:    handler,
		clock:      clockwork.NewRealClock(),
		retryDelay: DefaultRetryDelay,
		baseDelay:  DefaultReconnectDelay,
		maxDelay:   DefaultMaxReconnectDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.maxDelay < s.baseDelay {
		s.maxDelay = s.baseDelay
	}
	return s
}

// Attempts reports how many times Connect has been called.
func (s *Supervisor) Attempts() int64 {
	return s.attempts.Load()
}

// Run connects and delivers events until ctx is cancelled or the session
// fails with an error other than an offline broadcaster or a dropped
// connection. Cancellation is not an error: Run returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	var backoff time.Duration
	for {
		if ctx.Err() != nil {
			return nil
		}

		n := s.attempts.Add(1)
		s.logger.Debug("connecting", "attempt", n)

		err := s.session.Connect(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, webcast.ErrUserOffline):
			s.handler.Offline(s.retryDelay)
			if !s.wait(ctx, s.retryDelay) {
				return nil
			}
			continue
		default:
			return err
		}

		started := s.clock.Now()
		err = s.session.Run(ctx, s.handler.Handle)
		switch {
		case ctx.Err() != nil:
			return nil
		case err == nil, errors.Is(err, webcast.ErrDisconnected):
		default:
			return err
		}

		backoff = s.nextBackoff(backoff, s.clock.Since(started))
		s.logger.Debug("session dropped", "error", err, "reconnect_in", backoff)
		if backoff > 0 && !s.wait(ctx, backoff) {
			return nil
		}
	}
}

// nextBackoff returns the wait after a drop, given the previous wait and
// how long the dropped session lasted.
func (s *Supervisor) nextBackoff(prev, uptime time.Duration) time.Duration {
	if s.baseDelay <= 0 {
		return 0
	}
	if prev == 0 || uptime >= s.maxDelay {
		return s.baseDelay
	}
	return min(prev*2, s.maxDelay)
}

// wait blocks for d. It reports false if ctx ended first.
func (s *Supervisor) wait(ctx context.Context, d time.Duration) bool {
	timer := s.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
