// SPDX-License-Identifier: MIT
/*
Package ring implements a bounded single-producer/single-consumer sample
queue used to move audio from the device callback to the analysis loop.

Thread Safety:
- Exactly one goroutine/thread may call producer methods (Push)
- Exactly one goroutine may call consumer methods (Pull, Available, Discard)
- Cursors are monotonically increasing atomics, slots are indexed with a mask

Real-Time Safety:
- No locks, no allocations, no blocking on either side
- A full buffer drops the incoming sample, buffered samples are never overwritten
*/
package ring

import (
	"errors"
	"fmt"
	"sync/atomic"

	"specvis/pkg/bitint"
)

// ErrCapacity is returned by New for a capacity that is not a positive power of two.
var ErrCapacity = errors.New("ring capacity must be a positive power of two")

// DefaultCapacity holds roughly 170ms of mono audio at 48kHz.
const DefaultCapacity = 8192

// Buffer is a fixed capacity circular buffer of float32 samples.
type Buffer struct {
	data []float32
	mask uint64

	// write is only stored by the producer, read only by the consumer.
	// Each side loads the other's cursor to compute the fill level.
	write atomic.Uint64
	_     [56]byte // keep the cursors on separate cache lines
	read  atomic.Uint64
}

// New creates a Buffer holding up to capacity samples. The capacity is
// immutable for the life of the buffer.
func New(capacity int) (*Buffer, error) {
	if !bitint.IsPowerOfTwo(capacity) {
		return nil, fmt.Errorf("%w: got %d", ErrCapacity, capacity)
	}
	return &Buffer{
		data: make([]float32, capacity),
		mask: uint64(capacity - 1),
	}, nil
}

// Cap returns the fixed capacity of the buffer.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Push appends a sample. It returns false, leaving the buffer unchanged,
// when the buffer is full.
func (b *Buffer) Push(s float32) bool {
	w := b.write.Load()
	r := b.read.Load()
	if w-r >= uint64(len(b.data)) {
		return false
	}
	b.data[w&b.mask] = s
	b.write.Store(w + 1)
	return true
}

// Available returns the number of samples that can currently be pulled.
func (b *Buffer) Available() int {
	w := b.write.Load()
	r := b.read.Load()
	return int(w - r)
}

// Pull copies up to len(dst) of the oldest buffered samples into dst and
// advances the read cursor by exactly the number copied.
func (b *Buffer) Pull(dst []float32) int {
	r := b.read.Load()
	w := b.write.Load()

	n := int(w - r)
	if n > len(dst) {
		n = len(dst)
	}
	if n == 0 {
		return 0
	}

	// Copy in at most two contiguous runs.
	start := int(r & b.mask)
	first := copy(dst[:n], b.data[start:])
	if first < n {
		copy(dst[first:n], b.data[:n-first])
	}

	b.read.Store(r + uint64(n))
	return n
}

// Discard drops up to n of the oldest buffered samples and returns the
// number dropped.
func (b *Buffer) Discard(n int) int {
	if n <= 0 {
		return 0
	}
	r := b.read.Load()
	w := b.write.Load()
	if avail := int(w - r); n > avail {
		n = avail
	}
	b.read.Store(r + uint64(n))
	return n
}

// Split returns the two endpoints of the buffer. The producer is handed to
// the audio callback, the consumer to the analysis loop; neither may be
// shared further.
func (b *Buffer) Split() (*Producer, *Consumer) {
	return &Producer{buf: b}, &Consumer{buf: b}
}

// Producer is the write endpoint of a Buffer.
type Producer struct {
	buf *Buffer
}

// Push appends a sample, returning false if it was dropped.
func (p *Producer) Push(s float32) bool {
	return p.buf.Push(s)
}

// Cap returns the capacity of the underlying buffer.
func (p *Producer) Cap() int {
	return p.buf.Cap()
}

// Consumer is the read endpoint of a Buffer.
type Consumer struct {
	buf *Buffer
}

// Pull copies up to len(dst) samples into dst.
func (c *Consumer) Pull(dst []float32) int {
	return c.buf.Pull(dst)
}

// Available returns the number of buffered samples.
func (c *Consumer) Available() int {
	return c.buf.Available()
}

// Discard drops up to n of the oldest samples.
func (c *Consumer) Discard(n int) int {
	return c.buf.Discard(n)
}
