package exec

import "sync"

// capture is an io.Writer that keeps the first limit bytes written to it and
// counts the rest. Writes never fail, so the process feeding it is drained
// at full speed.
type capture struct {
	mu        sync.Mutex
	buf       []byte
	limit     int
	discarded int64
}

func newCapture(limit int) *capture {
	return &capture{limit: limit}
}

func (c *capture) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keep := c.limit - len(c.buf)
	if keep > len(b) {
		keep = len(b)
	}
	if keep > 0 {
		c.buf = append(c.buf, b[:keep]...)
	}
	c.discarded += int64(len(b) - keep)
	return len(b), nil
}

// Bytes returns a copy of the kept output.
func (c *capture) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.buf...)
}

// Len returns the number of kept bytes.
func (c *capture) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

func (c *capture) Discarded() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discarded
}
