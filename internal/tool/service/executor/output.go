package executor

import (
	"fmt"
	"io"
	"math"
	"sync"
	"unicode/utf8"

	"github.com/docker/go-units"
)

// tailBuffer keeps the last capBytes bytes written to it. Older bytes are
// dropped once the ring is full.
type tailBuffer struct {
	mu        sync.Mutex
	capBytes  int
	buf       []byte
	start     int
	n         int
	total     int64
	truncated bool
}

func newTailBuffer(capBytes int64) *tailBuffer {
	if capBytes < 1 {
		capBytes = 1
	}
	if capBytes > int64(math.MaxInt32) {
		capBytes = int64(math.MaxInt32)
	}
	return &tailBuffer{capBytes: int(capBytes)}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total += int64(len(p))
	if len(p) == 0 {
		return 0, nil
	}
	if b.buf == nil {
		b.buf = make([]byte, b.capBytes)
	}

	if len(p) >= b.capBytes {
		copy(b.buf, p[len(p)-b.capBytes:])
		b.start = 0
		b.truncated = b.truncated || len(p) > b.capBytes || b.n > 0
		b.n = b.capBytes
		return len(p), nil
	}

	if overflow := b.n + len(p) - b.capBytes; overflow > 0 {
		b.start = (b.start + overflow) % b.capBytes
		b.n -= overflow
		b.truncated = true
	}

	end := (b.start + b.n) % b.capBytes
	first := min(len(p), b.capBytes-end)
	copy(b.buf[end:end+first], p[:first])
	if first < len(p) {
		copy(b.buf[:len(p)-first], p[first:])
	}
	b.n += len(p)
	return len(p), nil
}

func (b *tailBuffer) bytes() []byte {
	if b.n == 0 {
		return nil
	}
	out := make([]byte, b.n)
	if b.start+b.n <= b.capBytes {
		copy(out, b.buf[b.start:b.start+b.n])
		return out
	}
	n1 := b.capBytes - b.start
	copy(out, b.buf[b.start:])
	copy(out[n1:], b.buf[:b.n-n1])
	return out
}

// String renders the retained tail. A truncated buffer is prefixed with the
// marker and never starts in the middle of a UTF-8 sequence.
func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := b.bytes()
	if !b.truncated {
		return string(data)
	}
	for i := 0; i < len(data) && i < utf8.UTFMax; i++ {
		if utf8.RuneStart(data[i]) {
			data = data[i:]
			break
		}
	}
	return truncationMarker(int64(b.capBytes)) + string(data)
}

func (b *tailBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

func (b *tailBuffer) TotalBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// truncationMarker has a fixed length for a given capacity.
func truncationMarker(capBytes int64) string {
	return fmt.Sprintf("[... output truncated, last %s shown ...]\n", units.BytesSize(float64(capBytes)))
}

// streamWriter forwards chunks to a caller-supplied writer. Both output
// pipes write through it, and a failing destination must never stall the
// copy goroutines, so errors disable forwarding instead of propagating.
type streamWriter struct {
	mu     sync.Mutex
	w      io.Writer
	failed bool
}

func (s *streamWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.failed {
		if _, err := s.w.Write(p); err != nil {
			s.failed = true
		}
	}
	return len(p), nil
}

// teeOutput returns the writer wired to one process pipe.
func teeOutput(buf *tailBuffer, stream *streamWriter) io.Writer {
	if stream == nil {
		return buf
	}
	return io.MultiWriter(buf, stream)
}
