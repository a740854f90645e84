package buffer

import (
	"fmt"
	"io"
	"sync"
)

// Buffer is a thread-safe growable FIFO of T. Reads block while the buffer is
// empty and the write side is still open.
type Buffer[T any] struct {
	writeNotify chan struct{}

	mu         sync.Mutex
	closeWrite bool
	closeErr   error
	buf        []T
}

// N creates a Buffer with an initial capacity of n elements.
func N[T any](n int) *Buffer[T] {
	return &Buffer[T]{
		writeNotify: make(chan struct{}, 1),
		buf:         make([]T, 0, n),
	}
}

// Write appends p to the buffer. It returns io.ErrClosedPipe (wrapped) after
// CloseWrite, or the close error after CloseWithError.
func (b *Buffer[T]) Write(p []T) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closeErr != nil {
		return 0, fmt.Errorf("buffer: write to closed buffer: %w", b.closeErr)
	}
	if b.closeWrite {
		return 0, fmt.Errorf("buffer: write to closed buffer: %w", io.ErrClosedPipe)
	}
	b.buf = append(b.buf, p...)
	select {
	case b.writeNotify <- struct{}{}:
	default:
	}
	return len(p), nil
}

// Read moves up to len(p) elements into p, blocking until at least one is
// available. It returns io.EOF once the write side is closed and the buffer is
// drained.
func (b *Buffer[T]) Read(p []T) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.buf) == 0 {
		if b.closeErr != nil {
			return 0, fmt.Errorf("buffer: read from closed buffer: %w", b.closeErr)
		}
		if b.closeWrite {
			return 0, io.EOF
		}
		b.mu.Unlock()
		<-b.writeNotify
		b.mu.Lock()
	}
	if b.closeErr != nil {
		return 0, fmt.Errorf("buffer: read from closed buffer: %w", b.closeErr)
	}
	n := copy(p, b.buf)
	b.buf = b.buf[n:]
	return n, nil
}

// CloseWrite closes the write side. Pending data can still be read.
func (b *Buffer[T]) CloseWrite() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closeWrite {
		return nil
	}
	b.closeWrite = true
	close(b.writeNotify)
	return nil
}

// CloseWithError closes both sides and drops any unread data. Blocked and
// future reads return err (io.ErrClosedPipe if nil).
func (b *Buffer[T]) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closeErr != nil {
		return nil
	}
	b.closeErr = err
	b.buf = nil
	if !b.closeWrite {
		b.closeWrite = true
		close(b.writeNotify)
	}
	return nil
}
