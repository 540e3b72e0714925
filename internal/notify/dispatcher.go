package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Publisher delivers one message.
type Publisher interface {
	Publish(ctx context.Context, message string) error
}

// Stats counts what happened to queued messages.
type Stats struct {
	Sent    int64
	Failed  int64
	Dropped int64
}

// Dispatcher publishes queued messages in FIFO order from one goroutine.
// Delivery is fire-and-forget: failures are logged at debug level and never
// retried.
type Dispatcher struct {
	pub     Publisher
	queue   chan string
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	doneCh chan struct{}

	mu     sync.Mutex
	closed bool

	sent, failed, dropped atomic.Int64
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithQueueSize sets how many messages may wait. Default: 256.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan string, n)
		}
	}
}

// WithRate limits how fast messages are published.
// Default: one every 2 seconds with a burst of 10.
func WithRate(limit rate.Limit, burst int) DispatcherOption {
	return func(d *Dispatcher) {
		d.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithPublishTimeout bounds each publish. Default: 15 seconds.
func WithPublishTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// WithLogger sets the slog logger for debug output.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// NewDispatcher starts a dispatcher publishing through pub.
// Call Close to drain and stop it.
func NewDispatcher(pub Publisher, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		pub:     pub,
		queue:   make(chan string, 256),
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 10),
		timeout: 15 * time.Second,
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())

	go d.run()
	return d
}

// Notify queues message and returns immediately. The message is dropped
// when the queue is full or the dispatcher is closed.
func (d *Dispatcher) Notify(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.dropped.Add(1)
		d.logger.Warn("notification dropped, dispatcher closed", "message", message)
		return
	}
	select {
	case d.queue <- message:
	default:
		d.dropped.Add(1)
		d.logger.Warn("notification queue full, dropping message", "message", message, "queued", len(d.queue))
	}
}

// Close stops accepting messages and waits for the queue to drain.
// When ctx expires first, pending messages are abandoned and ctx.Err() is
// returned. Safe to call multiple times.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.doneCh:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-d.doneCh
		return ctx.Err()
	}
}

// Stats returns delivery counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Sent:    d.sent.Load(),
		Failed:  d.failed.Load(),
		Dropped: d.dropped.Load(),
	}
}

func (d *Dispatcher) run() {
	defer close(d.doneCh)

	for msg := range d.queue {
		if err := d.limiter.Wait(d.ctx); err != nil {
			d.dropped.Add(1)
			d.logger.Warn("notification dropped on shutdown", "message", msg)
			continue
		}

		ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
		err := d.pub.Publish(ctx, msg)
		cancel()

		if err != nil {
			d.failed.Add(1)
			d.logger.Debug("notification failed", "error", err)
			continue
		}
		d.sent.Add(1)
	}
}
