package webcast_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiktokalert/tiktokalert-go/pkg/webcast"
)

// newRelay starts a fake webcast relay. script runs once per accepted
// WebSocket connection.
func newRelay(t *testing.T, script func(t *testing.T, conn *websocket.Conn, r *http.Request)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		script(t, conn, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func send(t *testing.T, conn *websocket.Conn, frames ...string) {
	t.Helper()
	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			return
		}
	}
}

// holdOpen blocks until the client goes away.
func holdOpen(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name     string
		uniqueID string
		opts     []webcast.Option
		wantErr  bool
	}{
		{"valid", "streamer", nil, false},
		{"leading at sign", "@streamer", nil, false},
		{"empty", "", nil, true},
		{"only at sign", " @ ", nil, true},
		{"http scheme", "streamer", []webcast.Option{webcast.WithRelayURL("http://localhost/ws")}, true},
		{"pong shorter than ping", "streamer", []webcast.Option{
			webcast.WithPingInterval(time.Minute),
			webcast.WithPongWait(time.Second),
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := webcast.NewClient(tt.uniqueID, tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "streamer", c.UniqueID())
		})
	}
}

func TestConnect_UserOfflineFrame(t *testing.T) {
	relay := newRelay(t, func(t *testing.T, conn *websocket.Conn, r *http.Request) {
		send(t, conn, `{"type":"error","data":{"code":"user_offline","message":"LIVE has ended"}}`)
	})

	c, err := webcast.NewClient("streamer", webcast.WithRelayURL(relay))
	require.NoError(t, err)
	defer c.Close()

	err = c.Connect(context.Background())
	assert.ErrorIs(t, err, webcast.ErrUserOffline)
}

func TestConnect_NotFoundIsOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, err := webcast.NewClient("streamer", webcast.WithRelayURL("ws"+strings.TrimPrefix(srv.URL, "http")))
	require.NoError(t, err)

	err = c.Connect(context.Background())
	assert.ErrorIs(t, err, webcast.ErrUserOffline)
}

func TestConnect_RelayError(t *testing.T) {
	relay := newRelay(t, func(t *testing.T, conn *websocket.Conn, r *http.Request) {
		send(t, conn, `{"type":"error","data":{"code":"rate_limited","message":"slow down"}}`)
	})

	c, err := webcast.NewClient("streamer", webcast.WithRelayURL(relay))
	require.NoError(t, err)

	err = c.Connect(context.Background())
	assert.ErrorIs(t, err, webcast.ErrRelay)
	assert.NotErrorIs(t, err, webcast.ErrUserOffline)
}

func TestRun_DeliversEventsInOrder(t *testing.T) {
	relay := newRelay(t, func(t *testing.T, conn *websocket.Conn, r *http.Request) {
		assert.Equal(t, "streamer", r.URL.Query().Get("uniqueId"))
		send(t, conn,
			`{"type":"connected","data":{"roomId":7301234567890}}`,
			`{"type":"chat","data":{"user":{"uniqueId":"alice"},"comment":"hi"}}`,
			`{"type":"gift","data":{"user":{"uniqueId":"bob"},"gift":{"id":5655,"name":"Rose","streakable":true},"repeatCount":3,"repeatEnd":false}}`,
			`{"type":"gift","data":{"user":{"uniqueId":"bob"},"gift":{"id":5655,"name":"Rose","streakable":true},"repeatCount":4,"repeatEnd":true}}`,
			`{"type":"like","data":{"likeCount":10}}`,
			`{"type":"member","data":{"user":{"uniqueId":"carol"}}}`,
			`{"type":"streamEnd","data":{}}`,
		)
		holdOpen(conn)
	})

	c, err := webcast.NewClient("@streamer", webcast.WithRelayURL(relay))
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	assert.Equal(t, "7301234567890", c.RoomID())

	var got []webcast.Event
	err = c.Run(ctx, func(ev webcast.Event) {
		got = append(got, ev)
	})
	assert.ErrorIs(t, err, webcast.ErrDisconnected)

	var types []webcast.EventType
	for _, ev := range got {
		types = append(types, ev.Type)
		assert.Equal(t, "streamer", ev.UniqueID)
	}
	assert.Equal(t, []webcast.EventType{
		webcast.EventConnect,
		webcast.EventComment,
		webcast.EventGift,
		webcast.EventGift,
		webcast.EventJoin,
		webcast.EventDisconnect,
	}, types)

	assert.Equal(t, "7301234567890", got[0].RoomID)
	assert.Equal(t, "alice", got[1].User.UniqueID)
	assert.Equal(t, "hi", got[1].Comment)
	require.NotNil(t, got[2].Gift)
	assert.Equal(t, "Rose", got[2].Gift.Name)
	assert.True(t, got[2].Streaking)
	assert.Equal(t, 3, got[2].RepeatCount)
	assert.False(t, got[3].Streaking)
	assert.Equal(t, "carol", got[4].User.UniqueID)
}

func TestRun_RelayCloseIsDisconnect(t *testing.T) {
	relay := newRelay(t, func(t *testing.T, conn *websocket.Conn, r *http.Request) {
		send(t, conn, `{"type":"connected","data":{"roomId":"1"}}`)
	})

	c, err := webcast.NewClient("streamer", webcast.WithRelayURL(relay))
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))

	var disconnects int
	err = c.Run(ctx, func(ev webcast.Event) {
		if ev.Type == webcast.EventDisconnect {
			disconnects++
		}
	})
	assert.ErrorIs(t, err, webcast.ErrDisconnected)
	assert.Equal(t, 1, disconnects)
}

func TestRun_MalformedFrame(t *testing.T) {
	relay := newRelay(t, func(t *testing.T, conn *websocket.Conn, r *http.Request) {
		send(t, conn, `{"type":"connected","data":{"roomId":"1"}}`, `{not json`)
		holdOpen(conn)
	})

	c, err := webcast.NewClient("streamer", webcast.WithRelayURL(relay))
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))

	err = c.Run(ctx, func(webcast.Event) {})
	assert.ErrorIs(t, err, webcast.ErrMalformedFrame)
}

func TestRun_ContextCancel(t *testing.T) {
	relay := newRelay(t, func(t *testing.T, conn *websocket.Conn, r *http.Request) {
		send(t, conn, `{"type":"connected","data":{"roomId":"1"}}`)
		holdOpen(conn)
	})

	c, err := webcast.NewClient("streamer",
		webcast.WithRelayURL(relay),
		webcast.WithPingInterval(10*time.Millisecond),
		webcast.WithPongWait(time.Second),
	)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Connect(ctx))

	var types []webcast.EventType
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Run(ctx, func(ev webcast.Event) {
			types = append(types, ev.Type)
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, []webcast.EventType{webcast.EventConnect}, types)
}

func TestRun_NotConnected(t *testing.T) {
	c, err := webcast.NewClient("streamer")
	require.NoError(t, err)

	err = c.Run(context.Background(), func(webcast.Event) {})
	assert.ErrorIs(t, err, webcast.ErrNotConnected)
}

func TestConnect_AgainAfterDisconnect(t *testing.T) {
	relay := newRelay(t, func(t *testing.T, conn *websocket.Conn, r *http.Request) {
		send(t, conn, `{"type":"connected","data":{"roomId":"1"}}`, `{"type":"streamEnd"}`)
		holdOpen(conn)
	})

	c, err := webcast.NewClient("streamer", webcast.WithRelayURL(relay))
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 2; i++ {
		require.NoError(t, c.Connect(ctx), "attempt %d", i)
		assert.ErrorIs(t, c.Connect(ctx), webcast.ErrAlreadyConnected)
		err := c.Run(ctx, func(webcast.Event) {})
		assert.ErrorIs(t, err, webcast.ErrDisconnected)
	}
}

func TestClose_Idempotent(t *testing.T) {
	c, err := webcast.NewClient("streamer")
	require.NoError(t, err)

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Connect(context.Background()), webcast.ErrClosed)
}
