package webcast

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a live session for one broadcaster.
//
// A Client holds at most one open session. After Run returns, Connect may be
// called again to open a new one.
type Client struct {
	uniqueID string
	cfg      *clientConfig

	mu     sync.Mutex
	conn   *websocket.Conn
	roomID string
	closed bool
}

// NewClient creates a client for the broadcaster with the given @handle.
// Does NOT dial (cheap to call).
// Returns error for an empty handle or an unusable relay URL.
func NewClient(uniqueID string, opts ...Option) (*Client, error) {
	uniqueID = strings.TrimPrefix(strings.TrimSpace(uniqueID), "@")
	if uniqueID == "" {
		return nil, errors.New("unique id must not be empty")
	}

	cfg := applyOptions(opts)
	u, err := url.Parse(cfg.relayURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid relay url %q: scheme must be ws or wss", cfg.relayURL)
	}
	if cfg.pongWait <= cfg.pingInterval {
		return nil, fmt.Errorf("pong wait (%v) must be longer than ping interval (%v)", cfg.pongWait, cfg.pingInterval)
	}

	return &Client{
		uniqueID: uniqueID,
		cfg:      cfg,
	}, nil
}

// UniqueID returns the broadcaster handle without the leading '@'.
func (c *Client) UniqueID() string {
	return c.uniqueID
}

// RoomID returns the room of the last accepted session.
func (c *Client) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// Connect opens a session and waits for the relay to accept it.
// Returns ErrUserOffline when the broadcaster is not live.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.conn != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.handshakeTimeout)
	defer cancel()

	endpoint, err := c.endpoint()
	if err != nil {
		return err
	}

	c.cfg.logger.Debug("dialing relay", "url", endpoint)
	conn, resp, err := c.cfg.dialer.DialContext(ctx, endpoint, c.cfg.header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: relay returned %s", ErrUserOffline, resp.Status)
		}
		return fmt.Errorf("dialing relay: %w", err)
	}

	roomID, err := c.handshake(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.roomID = roomID
	c.cfg.logger.Debug("session accepted", "unique_id", c.uniqueID, "room_id", roomID)
	return nil
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.relayURL)
	if err != nil {
		return "", fmt.Errorf("invalid relay url: %w", err)
	}
	q := u.Query()
	q.Set("uniqueId", c.uniqueID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// handshake reads the first frame, which must be "connected" or "error".
func (c *Client) handshake(ctx context.Context, conn *websocket.Conn) (string, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.cfg.handshakeTimeout)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return "", fmt.Errorf("setting handshake deadline: %w", err)
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("reading handshake: %w", err)
	}

	f, err := decodeFrame(raw)
	if err != nil {
		return "", err
	}

	switch f.Type {
	case frameConnected:
		var d connectedData
		if err := f.decodeData(&d); err != nil {
			return "", err
		}
		return string(d.RoomID), nil
	case frameError:
		return "", f.handshakeError()
	default:
		return "", fmt.Errorf("%w: unexpected handshake frame %s", ErrRelay, f)
	}
}

// Run delivers the session's events to handle until the session ends.
//
// The first event is always EventConnect. When the relay drops the session,
// handle receives an EventDisconnect and Run returns an error wrapping
// ErrDisconnected. When ctx is cancelled, Run returns ctx.Err() without a
// disconnect event. A frame that cannot be decoded ends the session with
// ErrMalformedFrame.
//
// handle is called on the calling goroutine, one event at a time.
func (c *Client) Run(ctx context.Context, handle func(Event)) error {
	c.mu.Lock()
	conn := c.conn
	roomID := c.roomID
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	defer c.release(conn)

	conn.SetReadLimit(c.cfg.maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go c.keepalive(ctx, conn, done)

	handle(Event{
		Type:      EventConnect,
		Timestamp: time.Now(),
		UniqueID:  c.uniqueID,
		RoomID:    roomID,
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.cfg.logger.Debug("session read ended", "error", err)
			handle(Event{
				Type:      EventDisconnect,
				Timestamp: time.Now(),
				UniqueID:  c.uniqueID,
				RoomID:    roomID,
				Reason:    err.Error(),
			})
			return fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.pongWait))

		f, err := decodeFrame(raw)
		if err != nil {
			return err
		}

		ev, ok, err := f.toEvent(c.uniqueID, time.Now())
		if err != nil {
			return err
		}
		if !ok {
			c.cfg.logger.Debug("ignoring frame", "frame", f.String())
			continue
		}
		ev.RoomID = roomID

		handle(ev)
		if ev.Type == EventDisconnect {
			return fmt.Errorf("%w: %s", ErrDisconnected, ev.Reason)
		}
	}
}

// keepalive pings the relay and unblocks the reader when ctx is cancelled.
func (c *Client) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.pongWait - c.cfg.pingInterval)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.cfg.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

// release closes conn and clears it so Connect can be called again.
func (c *Client) release(conn *websocket.Conn) {
	_ = conn.Close()
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
}

// Close closes any open session. Safe to call multiple times.
// A running Run returns ErrDisconnected shortly after.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
