//go:build unix

package buffer

import "golang.org/x/sys/unix"

// ReadFrom reads once from fd into the buffer using a two-segment scatter
// read: the buffer's own writable region first, then a 64 KiB stack
// buffer. If the stack buffer also fills, only the part that fit is
// appended — the same readv(2) semantics muduo relies on, and good enough
// since a second readiness event will follow for level-triggered I/O.
// Returns the number of bytes read (0 means the peer closed, <0 with a
// non-nil error means a read error).
func (b *Buffer) ReadFrom(fd int) (int, error) {
	var extra [extraBufSize]byte

	writable := b.buf[b.writer:]
	iov := []unix.Iovec{
		unixIovec(writable),
		unixIovec(extra[:]),
	}

	n, err := unix.Readv(fd, iov)
	if err != nil {
		return -1, err
	}
	if n <= 0 {
		return n, nil
	}

	if n <= len(writable) {
		b.writer += n
	} else {
		b.writer = len(b.buf)
		b.Append(extra[:n-len(writable)])
	}

	return n, nil
}

func unixIovec(p []byte) unix.Iovec {
	var iov unix.Iovec
	if len(p) > 0 {
		iov.Base = &p[0]
	}
	iov.SetLen(len(p))
	return iov
}
