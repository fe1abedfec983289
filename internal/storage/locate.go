// Package storage implements the offset locator and the streaming reader:
// the two pieces that turn a byte-offset request into chronologically
// ordered records out of a single large NDJSON file.
package storage

import (
	"io"
	"log"
	"time"

	"github.com/coffersTech/logtail/internal/record"
)

const (
	initialProbeWindow = 4 * 1024
	maxProbeWindow      = 4 * 1024 * 1024
	probeGrowthFactor   = 8

	// windowW0 is the binary-search stopping width; below it we fall
	// through to the confirmation scan.
	windowW0 = 64 * 1024

	// confirmScanChunk is the chunk size the confirmation scan reads at a
	// time; the scan keeps growing past it (chunk by chunk) until it finds
	// a match or reaches EOF, satisfying the "window MUST be enlarged"
	// requirement without re-reading already-scanned bytes.
	confirmScanChunk = 256 * 1024
)

// Locate finds the byte offset of the first strict record whose time is ≥
// target. offset is a line start such that no strict record at a smaller
// offset has time ≥ target. If no such record exists, returns size and an
// empty line. If target precedes every record, returns offset 0.
func Locate(f io.ReaderAt, size int64, target time.Time) (int64, string, error) {
	if size <= 0 {
		return 0, "", nil
	}

	// lowIsBoundary tracks whether low is known to sit exactly on a line
	// start. It starts true (low=0 is trivially a line start) and survives
	// the lineEnd+1 advance below (the byte right after a newline is a line
	// start too), but the noise-advance path lands low on an arbitrary byte
	// with no such guarantee — confirmScan must not discard a line it
	// reaches by the first path, only one it reaches by the second.
	low, high := int64(0), size
	lowIsBoundary := true
	for high-low > windowW0 {
		mid := low + (high-low)/2

		rec, recOK, _, lineEnd, newlineFound, windowUsed, err := probeAndScanForStrict(f, mid, size)
		if err != nil {
			return 0, "", err
		}

		if !newlineFound {
			// No newline anywhere in the enlarged probe: the region is
			// conclusively past usable structure in this direction, so
			// retreat.
			high = mid
			continue
		}

		if !recOK {
			// No strict line anywhere in the probe window: this is noise,
			// not evidence either way. Advance past it; retreating here
			// would loop on the same noisy region forever.
			low = mid + windowUsed
			if low > high {
				low = high
			}
			lowIsBoundary = false
			continue
		}

		if rec.Time.Before(target) {
			low = lineEnd + 1
			lowIsBoundary = true
		} else {
			high = mid
		}
	}

	return confirmScan(f, low, size, target, lowIsBoundary)
}

// probeAndScanForStrict reads a growing window starting at mid, discards
// the first (necessarily partial, since mid is an arbitrary byte position)
// line, and returns the first strict record found among the following
// complete lines in the window.
//
// newlineFound reports whether at least one newline was found at all
// (distinguishing "no line boundary anywhere nearby" from "line boundaries
// exist but none of them are strict"). windowUsed is the final window size,
// used by the caller to advance low past a wholly noisy region.
func probeAndScanForStrict(f io.ReaderAt, mid, size int64) (rec record.Record, recOK bool, lineStart, lineEnd int64, newlineFound bool, windowUsed int64, err error) {
	window := int64(initialProbeWindow)
	for {
		end := mid + window
		if end > size {
			end = size
		}
		if end <= mid {
			return record.Record{}, false, 0, 0, false, window, nil
		}

		buf := make([]byte, end-mid)
		if _, rerr := f.ReadAt(buf, mid); rerr != nil && rerr != io.EOF {
			return record.Record{}, false, 0, 0, false, window, rerr
		}
		atEnd := end == size

		lines, offsets, leftover, leftoverStart := splitLines(buf, mid)
		newlines := len(lines)
		if atEnd && len(leftover) > 0 {
			lines = append(lines, string(leftover))
			offsets = append(offsets, leftoverStart)
		}

		if len(lines) < 2 {
			if atEnd || window >= maxProbeWindow {
				return record.Record{}, false, 0, 0, newlines > 0, window, nil
			}
			window = growWindow(window)
			continue
		}

		// lines[0] runs from mid to the first newline: a fragment, not a
		// line, since mid need not be a line boundary. The candidate line
		// is lines[1], with lines[2:] available if it isn't strict.
		for i := 1; i < len(lines); i++ {
			if r, ok := record.ParseStrict(lines[i]); ok {
				return r, true, offsets[i], offsets[i] + int64(len(lines[i])), true, window, nil
			}
		}

		if atEnd || window >= maxProbeWindow {
			return record.Record{}, false, 0, 0, true, window, nil
		}
		window = growWindow(window)
	}
}

func growWindow(window int64) int64 {
	window *= probeGrowthFactor
	if window > maxProbeWindow {
		window = maxProbeWindow
	}
	return window
}

// confirmScan scans forward from low, growing its read window chunk by
// chunk, until it finds the first strict record with time ≥ target or
// reaches EOF. lowIsBoundary reports whether low is already known to sit on
// a line start (Locate's low=0 and lineEnd+1 cases); when it is not (low
// landed on an arbitrary byte via the noise-advance path), the first
// candidate line is discarded since it may be a partial fragment.
func confirmScan(f io.ReaderAt, low, size int64, target time.Time, lowIsBoundary bool) (int64, string, error) {
	if low >= size {
		return size, "", nil
	}

	cursor := low
	var carry []byte
	carryStart := low
	discardFirst := !lowIsBoundary

	// Window growth is logged once per scan, after it ends.
	chunks := 0
	defer func() {
		if chunks > 1 {
			log.Printf("storage: confirmation scan from offset %d grew to %d chunks of %d KiB", low, chunks, confirmScanChunk/1024)
		}
	}()

	for {
		var buf []byte
		if cursor < size {
			end := cursor + confirmScanChunk
			if end > size {
				end = size
			}
			buf = make([]byte, end-cursor)
			if _, err := f.ReadAt(buf, cursor); err != nil && err != io.EOF {
				return 0, "", err
			}
			cursor = end
			chunks++
		}

		data := append(carry, buf...)
		lines, offsets, leftover, leftoverStart := splitLines(data, carryStart)
		carry = leftover
		carryStart = leftoverStart
		atEOF := cursor >= size

		start := 0
		if discardFirst && len(lines) > 0 {
			start = 1
			discardFirst = false
		}
		for i := start; i < len(lines); i++ {
			if r, ok := record.ParseStrict(lines[i]); ok && !r.Time.Before(target) {
				return offsets[i], lines[i], nil
			}
		}

		if atEOF {
			if len(carry) > 0 {
				if r, ok := record.ParseStrict(string(carry)); ok && !r.Time.Before(target) {
					return carryStart, string(carry), nil
				}
			}
			return size, "", nil
		}
	}
}
