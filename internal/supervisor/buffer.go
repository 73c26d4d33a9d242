package supervisor

import (
	"io"
	"sync"
)

// cappedBuffer accumulates writes up to a fixed capacity and silently drops
// anything past it. Sizing it to outputLimit+1 lets the caller detect an
// output-limit overflow by checking len(Bytes()) > outputLimit, mirroring
// the Python original's `stdout.read(output_limit + 1)`.
type cappedBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func newCappedBuffer(limit int) *cappedBuffer {
	if limit < 0 {
		limit = 0
	}
	return &cappedBuffer{limit: limit}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buf) < c.limit {
		room := c.limit - len(c.buf)
		if room > len(p) {
			room = len(p)
		}
		c.buf = append(c.buf, p[:room]...)
	}
	return len(p), nil
}

// readFrom drains r into the buffer until EOF, discarding bytes past the
// cap. It always reads to EOF (ignoring the cap) so the pipe itself never
// blocks a writer waiting on a full OS pipe buffer.
func (c *cappedBuffer) readFrom(r io.Reader) (int64, error) {
	return io.Copy(c, r)
}

func (c *cappedBuffer) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.buf))
	copy(out, c.buf)
	return out
}
