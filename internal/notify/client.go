// Package notify delivers push notifications to an ntfy topic.
//
// Client performs one HTTP POST per message behind a circuit breaker.
// Dispatcher queues messages and publishes them from its own goroutine so
// callers on the event path never wait for the network.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// Title is sent in the Title header of every notification.
const Title = "Tiktok Alert"

// ErrUnexpectedStatus is returned for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client posts plain-text messages to a single ntfy topic URL.
type Client struct {
	topicURL string
	http     *http.Client
	cb       *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient   *http.Client
	logger       *slog.Logger
	maxFailures  uint32
	openDuration time.Duration
}

// WithHTTPClient replaces the HTTP client. Default: 10 second timeout.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithClientLogger sets the slog logger for debug output.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = l
	}
}

// WithBreaker sets how many consecutive failures open the circuit and how
// long it stays open. Default: 5 failures, 1 minute.
func WithBreaker(maxFailures uint32, openDuration time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.maxFailures = maxFailures
		o.openDuration = openDuration
	}
}

// NewClient returns a client for topicURL, e.g. https://ntfy.sh/my_topic.
func NewClient(topicURL string, opts ...ClientOption) *Client {
	o := &clientOptions{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		maxFailures:  5,
		openDuration: time.Minute,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.maxFailures == 0 {
		o.maxFailures = 1
	}

	logger := o.logger
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ntfy",
		MaxRequests: 1,
		Timeout:     o.openDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		topicURL: topicURL,
		http:     o.httpClient,
		cb:       cb,
		logger:   o.logger,
	}
}

// Publish posts message as the UTF-8 request body.
// Returns gobreaker.ErrOpenState without a request while the circuit is open.
func (c *Client) Publish(ctx context.Context, message string) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.post(ctx, message)
	})
	return err
}

// State reports the circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}

func (c *Client) post(ctx context.Context, message string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.topicURL, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("creating notification request: %w", err)
	}
	req.Header.Set("Title", Title)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	c.logger.Debug("notification delivered", "status", resp.StatusCode)
	return nil
}
