//go:build linux

package loop

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// newWakeDescriptor creates the eventfd muduo's EventLoop uses as its
// wakeupFd_, non-blocking and close-on-exec.
func newWakeDescriptor() (int, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return -1, fmt.Errorf("loop: eventfd: %w", err)
	}
	return fd, nil
}

func (l *Loop) wake() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(l.wakeFD, buf[:])
}

func (l *Loop) handleWakeRead() {
	var buf [8]byte
	_, _ = unix.Read(l.wakeFD, buf[:])
}
