package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

var errSSEClosed = errors.New("httpapi: sse client closed")

// sseClient writes Server-Sent-Events frames to a single HTTP response. A
// mutex serializes writes so the heartbeat ticker and the record-delivery
// path never interleave a partial frame.
type sseClient struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	closed  bool
}

func newSSEClient(w http.ResponseWriter) (*sseClient, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	return &sseClient{w: w, flusher: flusher}, true
}

// send writes a single SSE frame. event may be empty for a default message
// event.
func (c *sseClient) send(event string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errSSEClosed
	}
	if event != "" {
		if _, err := fmt.Fprintf(c.w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(c.w, "data: %s\n\n", data); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

// heartbeat writes an SSE comment frame, keeping idle-timeout proxies from
// killing a quiet live tail.
func (c *sseClient) heartbeat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errSSEClosed
	}
	if _, err := fmt.Fprint(c.w, ": ping\n\n"); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

func (c *sseClient) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
