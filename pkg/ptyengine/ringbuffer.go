package ptyengine

import "sync"

// Buffer is a fixed-capacity byte ring used to retain the most recent PTY
// output for scrollback and for late-attaching bus subscribers. Writes
// past capacity overwrite the oldest bytes; nothing ever blocks on it.
type Buffer struct {
	mu       sync.Mutex
	data     []byte
	cap      int
	start    int // index of oldest byte
	size     int // number of valid bytes
	overflow bool
}

// NewBuffer allocates a ring of the given byte capacity. capacity <= 0
// is treated as the package default.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		data: make([]byte, capacity),
		cap:  capacity,
	}
}

// DefaultCapacity is the scrollback size used when a session does not
// override it.
const DefaultCapacity = 1 << 20 // 1 MiB

// Write appends p to the ring, evicting the oldest bytes if necessary.
// It never returns an error; it always reports len(p) written.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(p) >= b.cap {
		// p alone exceeds capacity: keep only its tail.
		copy(b.data, p[len(p)-b.cap:])
		b.start = 0
		b.size = b.cap
		b.overflow = true
		return len(p), nil
	}

	end := (b.start + b.size) % b.cap
	for _, c := range p {
		b.data[end] = c
		end = (end + 1) % b.cap
	}

	if b.size+len(p) > b.cap {
		overrun := b.size + len(p) - b.cap
		b.start = (b.start + overrun) % b.cap
		b.size = b.cap
		b.overflow = true
	} else {
		b.size += len(p)
	}
	return len(p), nil
}

// Contents returns a copy of all bytes currently held, oldest first.
func (b *Buffer) Contents() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

func (b *Buffer) snapshot() []byte {
	out := make([]byte, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.data[(b.start+i)%b.cap]
	}
	return out
}

// Tail returns the last n lines (newline-delimited) of the buffer's
// contents, or everything if fewer than n lines are present. n <= 0
// returns the full contents.
func (b *Buffer) Tail(n int) []byte {
	b.mu.Lock()
	contents := b.snapshot()
	b.mu.Unlock()

	if n <= 0 {
		return contents
	}

	lines := 0
	for i := len(contents) - 1; i >= 0; i-- {
		if contents[i] == '\n' {
			lines++
			if lines == n {
				return contents[i+1:]
			}
		}
	}
	return contents
}

// Len reports the number of bytes currently retained.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Overflowed reports whether the ring has ever evicted data, i.e. whether
// Contents() is missing output that was written.
func (b *Buffer) Overflowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overflow
}
