package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method string
	path   string
	title  string
	body   string
}

func TestClient_Publish(t *testing.T) {
	var (
		mu  sync.Mutex
		got []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			title:  r.Header.Get("Title"),
			body:   string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/my_topic")
	require.NoError(t, c.Publish(context.Background(), "(chat) alice : ¡hola!"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, capturedRequest{
		method: http.MethodPost,
		path:   "/my_topic",
		title:  "Tiktok Alert",
		body:   "(chat) alice : ¡hola!",
	}, got[0])
}

func TestClient_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/topic")
	err := c.Publish(context.Background(), "msg")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/topic", WithBreaker(3, time.Hour))

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, c.Publish(context.Background(), "msg"), ErrUnexpectedStatus)
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())

	err := c.Publish(context.Background(), "msg")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), hits.Load(), "open circuit must not reach the server")
}
