// Package query composes the offset cache, the locator, the streaming
// reader, and the tailer into the operations the HTTP boundary consumes:
// a full scan for the bulk/plain-text endpoints and a historical-then-live
// scan for the stream endpoint.
package query

import (
	"fmt"
	"os"
	"time"

	"github.com/coffersTech/logtail/internal/cache"
	"github.com/coffersTech/logtail/internal/filter"
	"github.com/coffersTech/logtail/internal/record"
	"github.com/coffersTech/logtail/internal/storage"
	"github.com/coffersTech/logtail/internal/tailer"
)

// cacheThreshold is the file size above which a from bound is worth
// consulting the offset cache/locator for, rather than just scanning from
// byte 0.
const cacheThreshold = 1 << 20

// Engine composes the offset cache, the locator, the streaming reader, and
// the tailer into the operations the HTTP boundary needs. One Engine is
// created per process and shared across requests; it opens a fresh file
// handle per request (file handles are scoped to an operation) but shares
// the single offset cache and the one long-lived tailer across all of them.
type Engine struct {
	path   string
	cache  *cache.Cache
	tailer *tailer.Tailer
}

// New creates an Engine for the log file at path, with its own tailer ready
// to be started by the caller via Tailer().Run.
func New(path string) *Engine {
	return &Engine{
		path:   path,
		cache:  &cache.Cache{},
		tailer: tailer.New(path),
	}
}

// NewWithPollInterval creates an Engine like New, but with its tailer
// polling at pollInterval instead of the default.
func NewWithPollInterval(path string, pollInterval time.Duration) *Engine {
	return &Engine{
		path:   path,
		cache:  &cache.Cache{},
		tailer: tailer.NewWithPollInterval(path, pollInterval),
	}
}

// Tailer returns the Engine's long-lived tailer, for the caller to run as a
// background task.
func (e *Engine) Tailer() *tailer.Tailer {
	return e.tailer
}

// Subscribe attaches a live subscriber to the Engine's tailer.
func (e *Engine) Subscribe(spec filter.Spec, deliver func(record.Record), onEnd func(error)) (cancel func()) {
	return e.tailer.Subscribe(spec, deliver, onEnd)
}

func (e *Engine) openSnapshot() (*os.File, int64, error) {
	f, err := os.Open(e.path)
	if err != nil {
		return nil, 0, fmt.Errorf("query: open log file: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("query: stat log file: %w", err)
	}
	return f, fi.Size(), nil
}

func (e *Engine) startOffset(f *os.File, size int64, spec filter.Spec) (int64, error) {
	if spec.From == nil || size <= cacheThreshold {
		return 0, nil
	}
	fromMillis := spec.From.UnixMilli()

	readAt := func(off int64, n int) ([]byte, error) {
		buf := make([]byte, n)
		k, err := f.ReadAt(buf, off)
		return buf[:k], err
	}
	if off, ok := e.cache.Lookup(fromMillis, size, readAt); ok {
		return off, nil
	}

	off, firstLine, err := storage.Locate(f, size, *spec.From)
	if err != nil {
		return 0, fmt.Errorf("query: locate: %w", err)
	}
	if firstLine != "" {
		e.cache.Store(fromMillis, off, size, firstLine)
	}
	return off, nil
}

// Scan runs the streaming reader over the current file contents with spec,
// delivering matches to sink in file byte order. permissive selects whether
// a line that fails strict parsing is dropped or surfaced as a synthesized
// record (see storage.Stream) — permissive is for the bulk/raw endpoints
// only; the live stream and the HTML page stay strict.
func (e *Engine) Scan(spec filter.Spec, permissive bool, sink storage.Sink) error {
	f, size, err := e.openSnapshot()
	if err != nil {
		return err
	}
	defer f.Close()

	start, err := e.startOffset(f, size, spec)
	if err != nil {
		return err
	}
	return storage.Stream(f, size, start, spec, permissive, sink)
}

// Page is one page of a bulk or plain-text read, plus the pagination
// metadata both endpoints report.
type Page struct {
	Records []record.Record
	Total   int
	HasMore bool
}

// Bulk runs a full, permissive scan — ignoring spec.Offset/spec.Limit at the
// streaming layer, since those paginate the result set rather than bound the
// scan — and returns the requested page of the result plus the total match
// count. The scan is permissive per §4.1, so a stray non-JSON line still
// renders in bulk/raw output instead of being silently dropped.
func (e *Engine) Bulk(spec filter.Spec) (Page, error) {
	unpaged := spec
	unpaged.Limit = 0
	unpaged.Offset = 0

	var all []record.Record
	err := e.Scan(unpaged, true, func(r record.Record) bool {
		all = append(all, r)
		return true
	})
	if err != nil {
		return Page{}, err
	}

	total := len(all)
	start := spec.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if spec.Limit > 0 && start+spec.Limit < total {
		end = start + spec.Limit
	}
	return Page{
		Records: all[start:end],
		Total:   total,
		HasMore: end < total,
	}, nil
}

// ScanForStream runs a strict-only streaming scan — per §4.1 the permissive
// parser is for the bulk/raw endpoints only — with spec.Limit honored
// directly, since unlike Bulk, the live-stream endpoint has no offset to
// reconcile a limit against. It emits each match to emit and returns the
// count emitted once the scan completes or emit asks to stop.
func (e *Engine) ScanForStream(spec filter.Spec, emit func(record.Record) bool) (int, error) {
	count := 0
	err := e.Scan(spec, false, func(r record.Record) bool {
		if !emit(r) {
			return false
		}
		count++
		return true
	})
	return count, err
}
