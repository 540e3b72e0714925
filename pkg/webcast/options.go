package webcast

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultRelayURL is used when WithRelayURL is not given.
const DefaultRelayURL = "ws://localhost:8080/ws"

// Option configures a Client using the functional options pattern.
type Option func(*clientConfig)

type clientConfig struct {
	relayURL         string
	header           http.Header
	dialer           *websocket.Dialer
	handshakeTimeout time.Duration
	pingInterval     time.Duration
	pongWait         time.Duration
	maxFrameSize     int64
	logger           *slog.Logger
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		relayURL:         DefaultRelayURL,
		dialer:           websocket.DefaultDialer,
		handshakeTimeout: 15 * time.Second,
		pingInterval:     30 * time.Second,
		pongWait:         60 * time.Second,
		maxFrameSize:     1 << 20,
	}
}

func applyOptions(opts []Option) *clientConfig {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}

// WithRelayURL sets the WebSocket endpoint of the webcast relay.
// Default: DefaultRelayURL.
func WithRelayURL(url string) Option {
	return func(c *clientConfig) {
		c.relayURL = url
	}
}

// WithHeader adds HTTP headers to the WebSocket handshake.
func WithHeader(h http.Header) Option {
	return func(c *clientConfig) {
		c.header = h.Clone()
	}
}

// WithDialer replaces the WebSocket dialer (proxies, TLS config).
func WithDialer(d *websocket.Dialer) Option {
	return func(c *clientConfig) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithHandshakeTimeout bounds how long Connect waits for the relay to accept
// or reject the room. Default: 15 seconds.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.handshakeTimeout = d
	}
}

// WithPingInterval sets how often Run pings the relay. Default: 30 seconds.
func WithPingInterval(d time.Duration) Option {
	return func(c *clientConfig) {
		c.pingInterval = d
	}
}

// WithPongWait sets how long Run waits for any frame or pong before it
// considers the session dead. Must be longer than the ping interval.
// Default: 60 seconds.
func WithPongWait(d time.Duration) Option {
	return func(c *clientConfig) {
		c.pongWait = d
	}
}

// WithLogger sets the slog logger for debug output.
// If nil (default), logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}
