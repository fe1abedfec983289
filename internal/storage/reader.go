package storage

import (
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coffersTech/logtail/internal/filter"
	"github.com/coffersTech/logtail/internal/record"
)

// readChunkSize is the streaming reader's chunk size; the spec suggests
// 64 KiB-256 KiB.
const readChunkSize = 128 * 1024

// Sink receives each matching record in file byte order. Returning false
// stops the stream early (used for a slow or cancelled consumer).
type Sink func(record.Record) bool

// Stream reads f from startOffset to size, parsing complete lines, applying
// spec, and emitting matches to sink in byte order. With permissive=false
// (the live stream and the HTML page) it
// strict-parses and silently drops any line that doesn't parse. With
// permissive=true (the bulk and raw endpoints, per §4.1) a line that fails
// strict parsing is still surfaced as a synthesized record instead of being
// dropped. It stops early once spec.Limit matches have been emitted, or once
// a strict record's time exceeds spec.To (relying on the file's assumed
// chronological order; this is an optimization only, and never applied to a
// synthesized permissive record's now-time — see filter.Match for the
// precise bound check applied to every candidate).
func Stream(f io.ReaderAt, size, startOffset int64, spec filter.Spec, permissive bool, sink Sink) error {
	cursor := startOffset
	if cursor < 0 {
		cursor = 0
	}

	var carry []byte
	matched := 0

	parseLine := func(line string) (record.Record, bool) {
		if permissive {
			return record.ParsePermissive(line, time.Now())
		}
		return record.ParseStrict(line)
	}

	emit := func(line string) (stop bool, err error) {
		rec, ok := parseLine(sanitizeUTF8(line))
		if !ok {
			return false, nil
		}
		if rec.Strict && spec.To != nil && rec.Time.After(*spec.To) {
			return true, nil
		}
		if !filter.Match(rec, spec) {
			return false, nil
		}
		matched++
		if !sink(rec) {
			return true, nil
		}
		if spec.Limit > 0 && matched >= spec.Limit {
			return true, nil
		}
		return false, nil
	}

	for cursor < size {
		end := cursor + readChunkSize
		if end > size {
			end = size
		}
		buf := make([]byte, end-cursor)
		if _, err := f.ReadAt(buf, cursor); err != nil && err != io.EOF {
			return err
		}
		cursor = end

		data := append(carry, buf...)
		lines, _, leftover, _ := splitLines(data, 0)
		carry = leftover

		for _, line := range lines {
			stop, err := emit(line)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
	}

	if len(carry) > 0 {
		line := strings.TrimRight(string(carry), "\r")
		if strings.TrimSpace(line) != "" {
			if _, err := emit(line); err != nil {
				return err
			}
		}
	}
	return nil
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}
