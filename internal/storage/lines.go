package storage

// splitLines splits data on '\n' into complete lines, returning each line's
// absolute byte offset (base + its start index within data) alongside any
// trailing partial line (the bytes after the last newline), which the
// caller carries into the next read.
func splitLines(data []byte, base int64) (lines []string, offsets []int64, leftover []byte, leftoverStart int64) {
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			lines = append(lines, string(data[start:i]))
			offsets = append(offsets, base+int64(start))
			start = i + 1
		}
	}
	leftover = data[start:]
	leftoverStart = base + int64(start)
	return
}
