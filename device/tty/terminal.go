// Package tty implements the kernel text console on top of a cell-level
// console device.
package tty

import (
	"gopherirq/device/video/console"
	"gopherirq/kernel/cpu"
	"gopherirq/kernel/kfmt"
	"gopherirq/kernel/sync"
	"io"
)

// Terminal tracks the cursor position and the active colors of a console
// device and renders byte streams onto it. A line-feed moves the cursor to
// the start of the next line; every other byte is written as-is into a cell.
// When the cursor moves past the last row the console contents are scrolled
// up by one line and the last line is blanked.
//
// All methods are safe to call from trap handlers. Plain writes only take the
// terminal lock; formatted writes and writes through AtomicWriter additionally
// disable interrupt delivery so that a handler cannot try to re-acquire the
// lock from the same CPU while the write is in progress.
type Terminal struct {
	lock sync.Spinlock
	cons console.Device
	intr cpu.InterruptFlag

	width, height uint32
	row, col      uint32
	fg, bg        uint8

	raw rawWriter
}

// rawWriter feeds bytes into the terminal without locking. It is handed to
// formatters while the terminal lock is already held.
type rawWriter struct {
	t *Terminal
}

func (w rawWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		w.t.writeChar(b)
	}
	return len(p), nil
}

// atomicWriter is the io.Writer returned by Terminal.AtomicWriter.
type atomicWriter Terminal

func (w *atomicWriter) Write(p []byte) (int, error) {
	t := (*Terminal)(w)
	cpu.WithoutInterrupts(t.intr, func() {
		t.lock.Acquire()
		for _, b := range p {
			t.writeChar(b)
		}
		t.lock.Release()
	})
	return len(p), nil
}

// AttachTo points the terminal at cons, resets the colors to the console
// defaults and moves the cursor to the top-left cell. The intr argument
// controls interrupt delivery during formatted writes.
func (t *Terminal) AttachTo(cons console.Device, intr cpu.InterruptFlag) {
	t.lock.Acquire()
	t.cons = cons
	t.intr = intr
	t.width, t.height = cons.Dimensions()
	t.fg, t.bg = cons.DefaultColors()
	t.row, t.col = 0, 0
	t.raw = rawWriter{t}
	t.lock.Release()
}

// AtomicWriter returns an io.Writer whose writes are applied with interrupts
// disabled and the terminal lock held. It is meant to be installed as the
// kfmt output sink: code that is interrupted halfway through a Printf call
// cannot then deadlock against a trap handler writing to the terminal.
func (t *Terminal) AtomicWriter() io.Writer {
	return (*atomicWriter)(t)
}

// WriteByte implements io.ByteWriter. It never fails.
func (t *Terminal) WriteByte(b byte) error {
	t.lock.Acquire()
	t.writeChar(b)
	t.lock.Release()
	return nil
}

// Write implements io.Writer. All bytes in p are always written.
func (t *Terminal) Write(p []byte) (int, error) {
	t.lock.Acquire()
	n, _ := t.raw.Write(p)
	t.lock.Release()
	return n, nil
}

// WriteString implements io.StringWriter. All bytes in s are always written.
func (t *Terminal) WriteString(s string) (int, error) {
	t.lock.Acquire()
	for i := 0; i < len(s); i++ {
		t.writeChar(s[i])
	}
	t.lock.Release()
	return len(s), nil
}

// Printf formats its arguments using kfmt and writes the result to the
// terminal as a single uninterrupted operation.
func (t *Terminal) Printf(format string, args ...interface{}) {
	cpu.WithoutInterrupts(t.intr, func() {
		t.lock.Acquire()
		kfmt.Fprintf(t.raw, format, args...)
		t.lock.Release()
	})
}

// SetColors updates the colors used for subsequent writes.
func (t *Terminal) SetColors(fg, bg uint8) {
	t.lock.Acquire()
	t.fg, t.bg = fg, bg
	t.lock.Release()
}

// Colors returns the active foreground and background colors.
func (t *Terminal) Colors() (fg, bg uint8) {
	t.lock.Acquire()
	defer t.lock.Release()
	return t.fg, t.bg
}

// CursorPosition returns the 0-based row and column of the cursor.
func (t *Terminal) CursorPosition() (row, col uint32) {
	t.lock.Acquire()
	defer t.lock.Release()
	return t.row, t.col
}

// Clear blanks the whole console and moves the cursor to the top-left cell.
func (t *Terminal) Clear() {
	t.lock.Acquire()
	t.cons.Fill(0, 0, t.width, t.height, 0, 0)
	t.row, t.col = 0, 0
	t.lock.Release()
}

// writeChar renders b at the cursor and advances it. The terminal lock must
// be held.
func (t *Terminal) writeChar(b byte) {
	if b == '\n' {
		t.row++
		t.col = 0
	} else {
		t.cons.Write(b, t.fg, t.bg, t.col, t.row)
		if t.col++; t.col >= t.width {
			t.col = 0
			t.row++
		}
	}

	if t.row >= t.height {
		t.scroll()
	}
}

// scroll moves the console contents up by one line, blanks the last line
// and clamps the cursor to it.
func (t *Terminal) scroll() {
	t.cons.Scroll(console.ScrollDirUp, 1)
	t.cons.Fill(0, t.height-1, t.width, 1, 0, 0)
	t.row = t.height - 1
}
