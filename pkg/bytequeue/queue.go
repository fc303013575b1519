package bytequeue

import "github.com/valyala/bytebufferpool"

// ByteQueue accumulates socket reads and exposes the unconsumed window
// for sentence parsing. The backing buffer comes from a pool and is
// returned on Reset.
type ByteQueue struct {
	buffer     *bytebufferpool.ByteBuffer
	offsetSize uint64
	totalSize  uint64
}

func New() *ByteQueue {
	return &ByteQueue{
		buffer: bytebufferpool.Get(),
	}
}

// Write appends p to the tail of the queue.
func (b *ByteQueue) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := b.buffer.Write(p)
	if err != nil {
		return 0, err
	}
	b.totalSize += uint64(n)
	return n, nil
}

// Bytes returns the unconsumed window. The slice is only valid until
// the next Write or Discard.
func (b *ByteQueue) Bytes() []byte {
	return b.buffer.B
}

// Len is the number of unconsumed bytes.
func (b *ByteQueue) Len() int {
	return len(b.buffer.B)
}

// Discard drops n bytes from the front of the window.
func (b *ByteQueue) Discard(n int) int {
	if n <= 0 {
		return 0
	}
	if n >= len(b.buffer.B) {
		n = len(b.buffer.B)
		b.offsetSize += uint64(n)
		b.buffer.B = b.buffer.B[:0]
		return n
	}
	b.buffer.B = b.buffer.B[n:]
	b.offsetSize += uint64(n)
	return n
}

// Offset is the total number of bytes discarded over the queue's
// lifetime.
func (b *ByteQueue) Offset() uint64 {
	return b.offsetSize
}

// TotalSize is the total number of bytes ever written.
func (b *ByteQueue) TotalSize() uint64 {
	return b.totalSize
}

// Reset empties the queue and returns the buffer to the pool. The
// queue must not be used afterwards.
func (b *ByteQueue) Reset() {
	b.buffer.Reset()
	b.offsetSize = 0
	b.totalSize = 0
	bytebufferpool.Put(b.buffer)
}
