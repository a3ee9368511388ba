//go:build !unix

package timer

import (
	"errors"
	"time"

	"github.com/nabbar/reactor/channel"
)

// ErrUnsupportedPlatform mirrors poller.ErrUnsupportedPlatform: the timer
// queue needs a kernel timer descriptor (timerfd on unix), which this
// platform does not provide.
var ErrUnsupportedPlatform = errors.New("timer: no timerfd on this platform")

type Queue struct{}

func New(update func(*channel.Channel)) (*Queue, error) {
	return nil, ErrUnsupportedPlatform
}

func (q *Queue) Channel() *channel.Channel                                     { return nil }
func (q *Queue) Insert(callback func(), when time.Time, interval time.Duration) uint64 { return 0 }
func (q *Queue) Cancel(id uint64)                                              {}
func (q *Queue) Close() error                                                  { return nil }
