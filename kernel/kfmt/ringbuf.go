package kfmt

import "io"

// ringBufferSize defines the size of the ring buffer that holds Printf output
// produced before the terminal is attached. It is large enough for a full
// 80x25 screen and must always be a power of 2.
const ringBufferSize = 2048

// ringBuffer keeps the most recent ringBufferSize bytes written to it; older
// bytes are overwritten.
type ringBuffer struct {
	buffer         [ringBufferSize]byte
	rIndex, wIndex int
}

// Write writes len(p) bytes from p to the ringBuffer, dropping the oldest
// unread bytes when the buffer wraps.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[rb.wIndex] = b
		rb.wIndex = (rb.wIndex + 1) & (ringBufferSize - 1)
		if rb.rIndex == rb.wIndex {
			rb.rIndex = (rb.rIndex + 1) & (ringBufferSize - 1)
		}
	}

	return len(p), nil
}

// Read reads up to len(p) unread bytes into p. It returns io.EOF once the
// buffer has been drained.
func (rb *ringBuffer) Read(p []byte) (n int, err error) {
	var end int
	switch {
	case rb.rIndex < rb.wIndex:
		end = rb.wIndex
	case rb.rIndex > rb.wIndex:
		end = len(rb.buffer)
	default:
		return 0, io.EOF
	}

	n = copy(p, rb.buffer[rb.rIndex:end])
	rb.rIndex = (rb.rIndex + n) & (ringBufferSize - 1)
	return n, nil
}

// WriteTo drains the unread bytes into w, oldest first, using at most two
// writes. The bytes are handed to w straight out of the buffer so draining
// does not need a scratch buffer.
func (rb *ringBuffer) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for rb.rIndex != rb.wIndex {
		end := rb.wIndex
		if rb.rIndex > rb.wIndex {
			end = len(rb.buffer)
		}

		n, err := w.Write(rb.buffer[rb.rIndex:end])
		written += int64(n)
		rb.rIndex = (rb.rIndex + n) & (ringBufferSize - 1)
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}

	return written, nil
}
