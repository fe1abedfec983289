package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/coffersTech/logtail/internal/record"
)

const sseHeartbeatInterval = 15 * time.Second

// handleStream implements the live-stream endpoint: deliver historical
// matches, emit a historical-end sentinel naming the count, then — only if
// limit is absent — attach a tailer subscription for the remainder of the
// connection.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	spec := parseSpec(r)

	client, ok := newSSEClient(w)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	defer client.close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()

	count, err := s.engine.ScanForStream(spec, func(rec record.Record) bool {
		data, _ := json.Marshal(toWireMap(rec))
		if sendErr := client.send("", data); sendErr != nil {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})
	if err != nil {
		log.Printf("httpapi: stream historical scan error: %v", err)
		return
	}

	sentinel, _ := json.Marshal(count)
	if err := client.send("historical-end", sentinel); err != nil {
		return
	}

	if spec.Limit > 0 {
		// Historical quota satisfied the request; close cleanly, no live
		// attachment.
		return
	}

	live := make(chan record.Record, 16)
	endCh := make(chan error, 1)
	cancel := s.engine.Subscribe(spec, func(rec record.Record) {
		select {
		case live <- rec:
		case <-ctx.Done():
		}
	}, func(err error) {
		endCh <- err
	})
	defer cancel()

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-endCh:
			if err != nil {
				log.Printf("httpapi: tailer ended: %v", err)
			}
			return
		case rec := <-live:
			data, _ := json.Marshal(toWireMap(rec))
			if err := client.send("", data); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := client.heartbeat(); err != nil {
				return
			}
		}
	}
}
