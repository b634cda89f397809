package core

import "pkt.systems/loopgate/schema"

// logBuffer accumulates interleaved command output, byte-bounded by
// trimming from the front when the limit is exceeded.
type logBuffer struct {
	data     []byte
	maxBytes int
}

func newLogBuffer(maxBytes int) *logBuffer {
	if maxBytes <= 0 {
		maxBytes = schema.DefaultLogMaxBytes
	}
	return &logBuffer{maxBytes: maxBytes}
}

func (b *logBuffer) Append(chunk string) {
	if chunk == "" {
		return
	}
	b.data = append(b.data, chunk...)
	if len(b.data) > b.maxBytes {
		trim := len(b.data) - b.maxBytes
		b.data = append(b.data[:0], b.data[trim:]...)
	}
}

func (b *logBuffer) String() string {
	return string(b.data)
}

func (b *logBuffer) Reset() {
	b.data = b.data[:0]
}
