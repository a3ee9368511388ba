//go:build unix && !linux

package loop

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// newWakeDescriptor falls back to the classic self-pipe trick on
// non-Linux unixes, which have no eventfd: a pipe whose read end is
// armed for reading, woken by a single byte write to the write end.
// The write end's fd is stashed via the package-level pipeWriteFD map
// keyed by the read end, since Loop only stores one fd.
var pipeWriteFD = make(map[int]int)

func newWakeDescriptor() (int, error) {
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return -1, fmt.Errorf("loop: pipe2: %w", err)
	}
	pipeWriteFD[fds[0]] = fds[1]
	return fds[0], nil
}

func (l *Loop) wake() {
	_, _ = unix.Write(pipeWriteFD[l.wakeFD], []byte{1})
}

func (l *Loop) handleWakeRead() {
	var buf [64]byte
	for {
		n, err := unix.Read(l.wakeFD, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}
