//go:build !unix

package loop

import "errors"

// ErrUnsupportedPlatform mirrors poller.ErrUnsupportedPlatform and
// timer.ErrUnsupportedPlatform: this reactor is unix-only (spec §6).
var ErrUnsupportedPlatform = errors.New("loop: no wake descriptor on this platform")

func newWakeDescriptor() (int, error) {
	return -1, ErrUnsupportedPlatform
}

func (l *Loop) wake()            {}
func (l *Loop) handleWakeRead()  {}
