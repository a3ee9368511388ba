package loop

import (
	"bytes"
	"runtime"
	"strconv"
)

// currentGoroutineID extracts the calling goroutine's id from its own
// stack trace header ("goroutine 123 [running]:..."). Go has no public
// equivalent of gettid(2), so this is the same trick the teacher's own
// logger package uses to tag log lines with a goroutine id.
func currentGoroutineID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	b = b[:bytes.IndexByte(b, ' ')]

	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}
