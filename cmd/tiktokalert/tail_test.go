package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the tail goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunTailInvalidFormat(t *testing.T) {
	opts := &tailOptions{format: "pretty"}

	err := runTail(newTailCmd(), opts, "streamer")
	if err == nil {
		t.Fatal("expected error for invalid format, got nil")
	}
	if !strings.Contains(err.Error(), "invalid format") {
		t.Errorf("expected 'invalid format' error, got: %v", err)
	}
}

func TestRunTailMissingLog(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"tail", "streamer", "--log-dir", t.TempDir()}, &stdout, &stderr)

	if code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "activity log not found") {
		t.Errorf("expected missing log error, got: %s", stderr.String())
	}
}

func TestRunTailFromStart(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "streamer", "2024-01-15 12:00:00 - alice -> hi\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	cmd := newTailCmd()
	cmd.SetContext(ctx)
	cmd.SetOut(out)
	cmd.SetErr(&syncBuffer{})
	if err := cmd.Flags().Set("log-dir", dir); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- runTail(cmd, &tailOptions{format: "jsonl", fromStart: true, poll: true}, "streamer")
	}()

	waitFor(t, func() bool { return strings.Contains(out.String(), `"message":"alice -> hi"`) })

	f, err := os.OpenFile(filepath.Join(dir, "streamer_log.txt"), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("2024-01-15 12:00:05 - 🟢 bob Conectado\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	waitFor(t, func() bool { return strings.Contains(out.String(), "🟢 bob Conectado") })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runTail() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runTail did not return after cancel")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
