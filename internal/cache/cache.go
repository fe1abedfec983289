// Package cache implements the single-slot, process-wide offset cache
// described in spec §4.4: it lets repeated queries with drifting but nearby
// `from` bounds skip the locator.
package cache

import (
	"io"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Window bounds how far request.from may drift past entry.FromMillis and
// still count as a hit.
const Window = time.Hour

// entry is the single cached slot. validationFingerprint is a BLAKE2b-256
// digest of the validation line and validationLen its length, rather than
// the line itself: the line can be a multi-megabyte embedded-payload record,
// and the cache has exactly one slot for the life of the process, so it
// isn't worth pinning that much memory just to compare it back on the next
// hit-check.
type entry struct {
	fromMillis            int64
	byteOffset            int64
	validationLen         int
	validationFingerprint [32]byte
	fileSize              int64
}

// Cache is the process-wide offset cache. The zero value is an empty cache
// ready to use.
type Cache struct {
	mu  sync.RWMutex
	cur *entry
}

// Lookup returns (byteOffset, ok) for a query with the given fromMillis
// against a file of observed fileSize, re-validating the cached entry by
// reading validationLine.length+100 bytes back from its offset through
// readAt. It never blocks a concurrent Store.
func (c *Cache) Lookup(fromMillis, fileSize int64, readAt func(off int64, n int) ([]byte, error)) (int64, bool) {
	c.mu.RLock()
	e := c.cur
	c.mu.RUnlock()
	if e == nil {
		return 0, false
	}

	if fileSize < e.fileSize {
		return 0, false
	}
	if fromMillis < e.fromMillis {
		return 0, false
	}
	if fromMillis-e.fromMillis > Window.Milliseconds() {
		return 0, false
	}

	buf, err := readAt(e.byteOffset, e.validationLen+100)
	if err != nil && err != io.EOF {
		return 0, false
	}
	candidate := firstLine(buf)
	if blake2b256(candidate) != e.validationFingerprint {
		return 0, false
	}
	return e.byteOffset, true
}

// Store writes a fresh entry, overwriting whatever was cached before.
func (c *Cache) Store(fromMillis, byteOffset, fileSize int64, validationLine string) {
	e := &entry{
		fromMillis:            fromMillis,
		byteOffset:            byteOffset,
		validationLen:         len(validationLine),
		validationFingerprint: blake2b256(validationLine),
		fileSize:              fileSize,
	}
	c.mu.Lock()
	c.cur = e
	c.mu.Unlock()
}

// Invalidate clears the cache, e.g. on a detected file rotation.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.cur = nil
	c.mu.Unlock()
}

func firstLine(buf []byte) string {
	for i, b := range buf {
		if b == '\n' {
			return string(buf[:i])
		}
	}
	return string(buf)
}

func blake2b256(s string) [32]byte {
	return blake2b.Sum256([]byte(s))
}
