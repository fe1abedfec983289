package tailer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/coffersTech/logtail/internal/filter"
	"github.com/coffersTech/logtail/internal/record"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
}

func newTestTailer(path string) *Tailer {
	tl := New(path)
	tl.pollInterval = 20 * time.Millisecond
	return tl
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestTailerDeliversOnlyAppendedRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.ndjson")
	writeFile(t, path, `{"level":"info","time":"2025-12-01T00:00:00Z","msg":"before subscribe"}`+"\n")

	tl := newTestTailer(path)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tl.Run(ctx)

	var mu sync.Mutex
	var got []record.Record
	unsub := tl.Subscribe(filter.Spec{}, func(r record.Record) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	}, nil)
	defer unsub()

	// Give the register message time to land before the file changes.
	time.Sleep(50 * time.Millisecond)
	appendFile(t, path, `{"level":"info","time":"2025-12-01T00:01:00Z","msg":"after subscribe"}`+"\n")

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("got %d records, want exactly 1 (no replay of pre-subscribe content)", len(got))
	}
	if got[0].Msg != "after subscribe" {
		t.Errorf("msg = %q, want %q", got[0].Msg, "after subscribe")
	}
}

func TestTailerRotationResetsWithoutReplay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.ndjson")
	writeFile(t, path, `{"level":"info","time":"2025-12-01T00:00:00Z","msg":"original content, will be truncated"}`+"\n")

	tl := newTestTailer(path)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tl.Run(ctx)

	var mu sync.Mutex
	var got []record.Record
	unsub := tl.Subscribe(filter.Spec{}, func(r record.Record) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	}, nil)
	defer unsub()

	time.Sleep(50 * time.Millisecond)

	// Truncate (rotation), then append a single new record.
	writeFile(t, path, "")
	time.Sleep(50 * time.Millisecond)
	appendFile(t, path, `{"level":"info","time":"2025-12-01T01:00:00Z","msg":"post-rotation"}`+"\n")

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("got %d records, want exactly 1 post-rotation record", len(got))
	}
	if got[0].Msg != "post-rotation" {
		t.Errorf("msg = %q, want post-rotation", got[0].Msg)
	}
}

func TestTailerUnsubscribeStopsDelivery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.ndjson")
	writeFile(t, path, "")

	tl := newTestTailer(path)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tl.Run(ctx)

	var mu sync.Mutex
	var count int
	unsub := tl.Subscribe(filter.Spec{}, func(r record.Record) {
		mu.Lock()
		count++
		mu.Unlock()
	}, nil)

	time.Sleep(50 * time.Millisecond)
	unsub()
	time.Sleep(50 * time.Millisecond)

	appendFile(t, path, `{"level":"info","time":"2025-12-01T00:00:00Z","msg":"after unsubscribe"}`+"\n")
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("got %d deliveries after unsubscribe, want 0", count)
	}
}

func TestTailerRespectsFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.ndjson")
	writeFile(t, path, "")

	tl := newTestTailer(path)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tl.Run(ctx)

	var mu sync.Mutex
	var got []record.Record
	spec := filter.Spec{Level: filter.NewLevelSet([]string{"error"})}
	unsub := tl.Subscribe(spec, func(r record.Record) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	}, nil)
	defer unsub()

	time.Sleep(50 * time.Millisecond)
	appendFile(t, path, `{"level":"info","time":"2025-12-01T00:00:00Z","msg":"ignored"}`+"\n")
	appendFile(t, path, `{"level":"error","time":"2025-12-01T00:01:00Z","msg":"kept"}`+"\n")

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Msg != "kept" {
		t.Fatalf("got %+v, want exactly the error-level record", got)
	}
}
