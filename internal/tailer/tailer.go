// Package tailer watches a single append-only log file and fans newly
// appended, filter-matching records out to its live subscribers.
package tailer

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/coffersTech/logtail/internal/filter"
	"github.com/coffersTech/logtail/internal/record"
)

const defaultPollInterval = 500 * time.Millisecond

type subscription struct {
	id      uuid.UUID
	spec    filter.Spec
	deliver func(record.Record)
	onEnd   func(error)
}

// Tailer follows LOG_FILE_PATH by polling it on a ticker, opening the file
// for each poll and closing it again; it does not use filesystem change
// notifications and holds no open handle between polls. All subscriber-set
// mutation flows through the
// register/unregister channels into the single goroutine running Run, so
// the set is never read and written concurrently from two goroutines.
type Tailer struct {
	path         string
	pollInterval time.Duration

	register   chan *subscription
	unregister chan uuid.UUID
	done       chan struct{}

	subs map[uuid.UUID]*subscription
}

// New creates a Tailer for path, polling at the default interval. Call Run
// to start polling.
func New(path string) *Tailer {
	return NewWithPollInterval(path, defaultPollInterval)
}

// NewWithPollInterval creates a Tailer for path, polling every pollInterval
// (LOG_POLL_INTERVAL in the environment, normally) rather than the default.
func NewWithPollInterval(path string, pollInterval time.Duration) *Tailer {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Tailer{
		path:         path,
		pollInterval: pollInterval,
		register:     make(chan *subscription),
		unregister:   make(chan uuid.UUID),
		done:         make(chan struct{}),
		subs:         make(map[uuid.UUID]*subscription),
	}
}

// Subscribe registers a live subscriber and returns a cancel function that
// deregisters it. deliver is called once per matching record appended after
// the call to Subscribe, in file order. onEnd is called at most once, when
// the tailer stops after a fatal read error; the tailer does not retry.
func (t *Tailer) Subscribe(spec filter.Spec, deliver func(record.Record), onEnd func(error)) (cancel func()) {
	sub := &subscription{id: uuid.New(), spec: spec, deliver: deliver, onEnd: onEnd}

	select {
	case t.register <- sub:
	case <-t.done:
		if onEnd != nil {
			onEnd(errors.New("tailer: already stopped"))
		}
		return func() {}
	}

	return func() {
		select {
		case t.unregister <- sub.id:
		case <-t.done:
		}
	}
}

// Run polls path for appended bytes until ctx is cancelled or a fatal read
// error occurs, in which case it notifies every current subscriber via
// onEnd and returns that error. It never retries; a fresh Tailer is
// expected to be wired up on the next process start, matching the "no
// persistent cursor across restarts" non-goal.
func (t *Tailer) Run(ctx context.Context) error {
	defer close(t.done)

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	var lastSize int64
	if fi, err := os.Stat(t.path); err == nil {
		lastSize = fi.Size()
	}
	var carry []byte

	for {
		select {
		case <-ctx.Done():
			return nil
		case sub := <-t.register:
			t.subs[sub.id] = sub
		case id := <-t.unregister:
			delete(t.subs, id)
		case <-ticker.C:
			newSize, newCarry, recs, err := t.poll(lastSize, carry)
			if err != nil {
				t.broadcastEnd(err)
				return err
			}
			lastSize, carry = newSize, newCarry
			for _, rec := range recs {
				t.deliverOne(rec)
			}
		}
	}
}

func (t *Tailer) poll(lastSize int64, carry []byte) (newSize int64, newCarry []byte, recs []record.Record, err error) {
	f, err := os.Open(t.path)
	if err != nil {
		return lastSize, carry, nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return lastSize, carry, nil, err
	}
	currentSize := fi.Size()

	if currentSize < lastSize {
		log.Printf("tailer: rotation detected on %s (size %d -> %d), resetting", t.path, lastSize, currentSize)
		lastSize = 0
		carry = nil
	}
	if currentSize == lastSize {
		return lastSize, carry, nil, nil
	}

	buf := make([]byte, currentSize-lastSize)
	if _, rerr := f.ReadAt(buf, lastSize); rerr != nil && rerr != io.EOF {
		return lastSize, carry, nil, rerr
	}

	data := append(carry, buf...)
	lines, leftover := splitComplete(data)
	for _, line := range lines {
		if rec, ok := record.ParseStrict(line); ok {
			recs = append(recs, rec)
		}
	}
	return currentSize, leftover, recs, nil
}

func (t *Tailer) deliverOne(rec record.Record) {
	for _, sub := range t.subs {
		if filter.Match(rec, sub.spec) {
			sub.deliver(rec)
		}
	}
}

func (t *Tailer) broadcastEnd(err error) {
	for _, sub := range t.subs {
		if sub.onEnd != nil {
			sub.onEnd(err)
		}
	}
}

// splitComplete splits data on '\n' into complete lines, returning any
// trailing partial line as carry for the next poll.
func splitComplete(data []byte) (lines []string, carry []byte) {
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			lines = append(lines, string(data[start:i]))
			start = i + 1
		}
	}
	carry = data[start:]
	return
}
