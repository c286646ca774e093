package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// stdinHost puts a terminal in raw, non-blocking mode and forwards every byte
// read from it to a channel.
type stdinHost struct {
	fd       int
	keys     chan byte
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	oldState    *term.State
	nonblockSet bool
}

func newStdinHost(fd int) *stdinHost {
	return &stdinHost{
		fd:     fd,
		keys:   make(chan byte, 64),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start switches the terminal to raw mode and starts the reader goroutine.
// Stop must be called to restore the terminal.
func (h *stdinHost) Start(errOut io.Writer) error {
	if !term.IsTerminal(h.fd) {
		close(h.done)
		return fmt.Errorf("trapsim: stdin is not a terminal; use --script")
	}

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		close(h.done)
		return fmt.Errorf("trapsim: failed to set raw mode: %w", err)
	}
	h.oldState = oldState

	if err := unix.SetNonblock(h.fd, true); err != nil {
		fmt.Fprintf(errOut, "trapsim: failed to set nonblocking stdin: %v\r\n", err)
	} else {
		h.nonblockSet = true
	}

	go h.readLoop()
	return nil
}

func (h *stdinHost) readLoop() {
	defer close(h.done)
	buf := make([]byte, 1)

	for {
		select {
		case <-h.stopCh:
			return
		default:
		}

		n, err := unix.Read(h.fd, buf)
		if n > 0 {
			select {
			case h.keys <- buf[0]:
			case <-h.stopCh:
				return
			}
		}

		switch {
		case err == unix.EAGAIN || err == unix.EINTR:
			time.Sleep(5 * time.Millisecond)
		case err != nil:
			return
		case n == 0:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// Keys returns the channel that receives the bytes typed by the user.
func (h *stdinHost) Keys() <-chan byte {
	return h.keys
}

// Stop terminates the reader goroutine and restores the terminal state.
func (h *stdinHost) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
	})
	<-h.done

	if h.nonblockSet {
		_ = unix.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldState != nil {
		_ = term.Restore(h.fd, h.oldState)
		h.oldState = nil
	}
}
