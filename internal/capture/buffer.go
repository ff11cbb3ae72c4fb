package capture

import (
	"bytes"
	"sync"
)

// Cursor marks a read position in a Buffer. The zero Cursor reads from the
// start of the current epoch.
type Cursor struct {
	Offset int
	Epoch  uint64
}

// Buffer is an append-only byte accumulator shared between the reader
// goroutine and the interpreter. Each Append bumps the generation; each
// Clear starts a new epoch. Within one epoch, a snapshot taken at an
// earlier generation is always a prefix of a later one.
type Buffer struct {
	mu         sync.Mutex
	data       []byte
	generation uint64
	epoch      uint64
}

// Append adds p to the end of the buffer.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.mu.Lock()
	b.data = append(b.data, p...)
	b.generation++
	b.mu.Unlock()
}

// Snapshot returns a copy of the current contents.
func (b *Buffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.data)
}

// Contains reports whether pattern occurs in the current contents without
// copying them.
func (b *Buffer) Contains(pattern []byte) bool {
	found, _ := b.ContainsAt(pattern)
	return found
}

// ContainsAt is Contains that also returns the generation the answer holds
// for.
func (b *Buffer) ContainsAt(pattern []byte) (bool, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Contains(b.data, pattern), b.generation
}

// Generation returns the number of non-empty appends so far. Clear does not
// reset it.
func (b *Buffer) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Clear drops all buffered bytes and starts a new epoch.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.data = nil
	b.epoch++
	b.mu.Unlock()
}

// ReadFrom returns the bytes appended since c and the cursor to pass next
// time. A cursor from an earlier epoch restarts at offset 0.
func (b *Buffer) ReadFrom(c Cursor) ([]byte, Cursor) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c.Epoch != b.epoch || c.Offset > len(b.data) || c.Offset < 0 {
		c = Cursor{Epoch: b.epoch}
	}
	out := bytes.Clone(b.data[c.Offset:])
	return out, Cursor{Offset: len(b.data), Epoch: b.epoch}
}
