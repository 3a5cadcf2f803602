package bytestream_test

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/driphttp/drip/bytestream"
)

func TestStreamOrdering(t *testing.T) {
	s := bytestream.New(8)
	payload := []byte("hello, stream")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.Write(payload); err != nil {
			t.Errorf("write: %v", err)
		}
		_ = s.Close()
	}()

	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("bytes reordered or lost: want %q got %q", payload, got)
	}
	<-done
}

func TestStreamBackpressure(t *testing.T) {
	s := bytestream.New(2)

	wrote := make(chan int)
	go func() {
		n, _ := s.Write([]byte("abcd"))
		wrote <- n
	}()

	// With capacity 2 the writer must block before finishing.
	select {
	case n := <-wrote:
		t.Fatalf("write of 4 bytes completed against capacity 2 (n=%d)", n)
	case <-time.After(20 * time.Millisecond):
	}

	buf := make([]byte, 4)
	total := 0
	for total < 4 {
		n, err := s.Read(buf[total:])
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		total += n
	}
	if got := string(buf); got != "abcd" {
		t.Fatalf("unexpected bytes: %q", got)
	}
	if n := <-wrote; n != 4 {
		t.Fatalf("writer reported %d bytes", n)
	}
}

func TestStreamClose(t *testing.T) {
	t.Run("close is idempotent", func(t *testing.T) {
		s := bytestream.New(1)
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("second close: %v", err)
		}
	})

	t.Run("write after close fails", func(t *testing.T) {
		s := bytestream.New(4)
		_ = s.Close()
		if _, err := s.Write([]byte("x")); err != bytestream.ErrClosed {
			t.Fatalf("want ErrClosed, got %v", err)
		}
	})

	t.Run("buffered bytes survive close", func(t *testing.T) {
		s := bytestream.New(8)
		if _, err := s.Write([]byte("tail")); err != nil {
			t.Fatalf("write: %v", err)
		}
		_ = s.Close()

		got, err := io.ReadAll(s)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(got) != "tail" {
			t.Fatalf("lost buffered data: %q", got)
		}
	})

	t.Run("close unblocks a full-buffer writer", func(t *testing.T) {
		s := bytestream.New(1)
		errc := make(chan error)
		go func() {
			_, err := s.Write([]byte("xy"))
			errc <- err
		}()
		time.Sleep(10 * time.Millisecond)
		_ = s.Close()
		select {
		case err := <-errc:
			if err != bytestream.ErrClosed {
				t.Fatalf("want ErrClosed, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatalf("writer still blocked after close")
		}
	})

	t.Run("reader blocked on empty stream sees EOF on close", func(t *testing.T) {
		s := bytestream.New(4)
		errc := make(chan error)
		go func() {
			_, err := s.Read(make([]byte, 1))
			errc <- err
		}()
		time.Sleep(10 * time.Millisecond)
		_ = s.Close()
		select {
		case err := <-errc:
			if err != io.EOF {
				t.Fatalf("want io.EOF, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatalf("reader still blocked after close")
		}
	})
}
