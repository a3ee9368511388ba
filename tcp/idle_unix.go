//go:build unix

package tcp

import "golang.org/x/sys/unix"

// openIdleDescriptor opens /dev/null read-only, close-on-exec: the
// "reserve a slot" descriptor Acceptor keeps on hand so an EMFILE can
// be recovered without a level-triggered busy loop (spec §4.7).
func openIdleDescriptor() (int, error) {
	return unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
}
