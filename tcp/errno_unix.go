//go:build unix

package tcp

import "golang.org/x/sys/unix"

func isWouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}

// isBrokenPipe reports the two errno values TcpConnection::sendInLoop
// treats as a fatal write fault (spec §4.9: "transient error
// (would-block), spool all. On fatal error (broken pipe, connection
// reset), mark fault.").
func isBrokenPipe(err error) bool {
	return err == unix.EPIPE || err == unix.ECONNRESET
}
