package client

import "sync"

// Stream carries the responses of one command in arrival order. The
// channel closes when the command completes, the session dies or the
// stream is abandoned with Close.
type Stream[T any] struct {
	c         chan T
	done      chan struct{}
	closeOnce sync.Once
}

func newStream[T any](size int) *Stream[T] {
	return &Stream[T]{
		c:    make(chan T, size),
		done: make(chan struct{}),
	}
}

// C is the receive side of the stream.
func (s *Stream[T]) C() <-chan T {
	return s.c
}

// Close abandons the stream. The device drops the command's tag on the
// next delivery attempt; the session itself stays up, see Device.Close
// for connection teardown.
func (s *Stream[T]) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// deliver hands v to the consumer. It blocks while the stream buffer
// is full and reports false once the stream was abandoned. The done
// check runs first so an abandoned stream refuses even with buffer
// space left.
func (s *Stream[T]) deliver(v T) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.c <- v:
		return true
	case <-s.done:
		return false
	}
}

// finish closes the response channel. Only the connection loop calls
// this, exactly once per stream it has seen.
func (s *Stream[T]) finish() {
	close(s.c)
}
