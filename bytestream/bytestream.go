// Package bytestream implements the bounded, ordered byte conduit between
// the response controller (producer) and the transport drain (consumer).
//
// The stream deliberately never drops data: when the buffer is full the
// producer blocks, which is the system's backpressure mechanism against a
// slow consumer. After Close, readers continue to observe every byte
// written before the close and only then see io.EOF.
package bytestream

import (
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned by Write after the stream has been closed.
var ErrClosed = errors.New("bytestream: stream closed")

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 64

// Stream is a single-producer, single-consumer byte conduit with bounded
// capacity and strict FIFO ordering.
type Stream struct {
	ch        chan byte
	closed    chan struct{}
	closeOnce sync.Once
}

// New creates a Stream buffering up to capacity bytes.
func New(capacity int) *Stream {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Stream{
		ch:     make(chan byte, capacity),
		closed: make(chan struct{}),
	}
}

var _ io.WriteCloser = (*Stream)(nil)
var _ io.Reader = (*Stream)(nil)

// Write appends p to the stream in order, blocking while the buffer is
// full. It returns the number of bytes accepted and ErrClosed if the
// stream was closed before every byte could be buffered.
func (s *Stream) Write(p []byte) (int, error) {
	for i, b := range p {
		select {
		case <-s.closed:
			return i, ErrClosed
		default:
		}
		select {
		case s.ch <- b:
		case <-s.closed:
			return i, ErrClosed
		}
	}
	return len(p), nil
}

// Close marks the end of the stream. It is idempotent and never fails.
// Buffered bytes remain readable; once they are drained, Read returns
// io.EOF.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// Read blocks until at least one byte is available or the stream is closed
// and fully drained, in which case it returns io.EOF. It never returns
// zero bytes alongside a nil error for non-empty p.
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	select {
	case b := <-s.ch:
		p[0] = b
	case <-s.closed:
		// The close raced with buffered data; prefer data.
		select {
		case b := <-s.ch:
			p[0] = b
		default:
			return 0, io.EOF
		}
	}

	// Opportunistically drain whatever else is already buffered.
	n := 1
	for n < len(p) {
		select {
		case b := <-s.ch:
			p[n] = b
			n++
		default:
			return n, nil
		}
	}
	return n, nil
}
