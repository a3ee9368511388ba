//go:build unix

package timer

import (
	"container/heap"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nabbar/reactor/channel"
)

// Queue owns one timerfd armed to the earliest pending expiration. All
// methods except Close must only be called on the owning loop's
// goroutine (Insert/Cancel are wrapped in loop.RunInLoop by the caller,
// same as muduo's TimerQueue::addTimer/cancel forward through runInLoop).
type Queue struct {
	fd int
	ch *channel.Channel

	heap   entryHeap
	active map[uint64]*entry

	dispatching bool
	cancelling  map[uint64]bool
}

// New creates a timerfd-backed Queue and wires its channel through
// update, exactly like any other channel owner (see channel.New).
func New(update func(*channel.Channel)) (*Queue, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("timer: timerfd_create: %w", err)
	}

	q := &Queue{
		fd:         fd,
		active:     make(map[uint64]*entry),
		cancelling: make(map[uint64]bool),
	}
	q.ch = channel.New(fd, update)
	q.ch.SetReadFunc(func(time.Time) { q.handleRead() })
	q.ch.EnableReading()

	return q, nil
}

// Channel returns the channel the loop registers with its Poller.
func (q *Queue) Channel() *channel.Channel { return q.ch }

// Insert schedules callback to fire at when, repeating every interval if
// interval > 0 (one-shot otherwise), and returns its id.
func (q *Queue) Insert(callback func(), when time.Time, interval time.Duration) uint64 {
	seq := nextSeq()
	e := &entry{expiration: when, interval: interval, seq: seq, callback: callback}

	earliestChanged := len(q.heap) == 0 || when.Before(q.heap[0].expiration)
	heap.Push(&q.heap, e)
	q.active[seq] = e

	if earliestChanged {
		q.rearm()
	}
	return seq
}

// Cancel cancels the timer with the given id. Safe to call at any time,
// including from inside that timer's own callback or another timer's
// callback during the same dispatch round (spec §4.4/§8.6).
func (q *Queue) Cancel(id uint64) {
	if e, ok := q.active[id]; ok {
		e.canceled = true
		delete(q.active, id)
		return
	}
	if q.dispatching {
		q.cancelling[id] = true
	}
}

func (q *Queue) handleRead() {
	q.drain()

	now := time.Now()
	expired := q.getExpired(now)

	q.dispatching = true
	q.cancelling = make(map[uint64]bool)
	for _, e := range expired {
		e.callback()
	}
	q.dispatching = false

	for _, e := range expired {
		if e.interval > 0 && !q.cancelling[e.seq] {
			e.expiration = now.Add(e.interval)
			e.canceled = false
			heap.Push(&q.heap, e)
			q.active[e.seq] = e
		}
	}

	q.rearm()
}

// getExpired extracts every timer whose expiration has passed, in
// (expiration, seq) order, skipping entries cancelled before they fired.
func (q *Queue) getExpired(now time.Time) []*entry {
	var expired []*entry
	for len(q.heap) > 0 && !q.heap[0].expiration.After(now) {
		e := heap.Pop(&q.heap).(*entry)
		if e.canceled {
			continue
		}
		delete(q.active, e.seq)
		expired = append(expired, e)
	}
	return expired
}

func (q *Queue) drain() {
	var buf [8]byte
	_, _ = unix.Read(q.fd, buf[:])
}

// rearm sets the kernel timer to the new earliest expiration, or disarms
// it if the queue is empty. The absolute expiration is computed against
// the kernel's own CLOCK_MONOTONIC reading with correct carry arithmetic
// (sec = base.sec + Δ.sec + carry, nsec = (base.nsec + Δ.nsec) % 1e9),
// not by summing the two components of one timespec as if they shared a
// base.
func (q *Queue) rearm() error {
	var spec unix.ItimerSpec

	if len(q.heap) > 0 {
		var now unix.Timespec
		if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &now); err != nil {
			return fmt.Errorf("timer: clock_gettime: %w", err)
		}
		spec.Value = addDuration(now, time.Until(q.heap[0].expiration))
	}

	flags := 0
	if len(q.heap) > 0 {
		flags = unix.TFD_TIMER_ABSTIME
	}

	if err := unix.TimerfdSettime(q.fd, flags, &spec, nil); err != nil {
		return fmt.Errorf("timer: timerfd_settime: %w", err)
	}
	return nil
}

func addDuration(base unix.Timespec, d time.Duration) unix.Timespec {
	if d < 0 {
		d = 0
	}
	deltaSec := int64(d / time.Second)
	deltaNsec := int64(d % time.Second)

	nsec := int64(base.Nsec) + deltaNsec
	carry := nsec / int64(time.Second)
	nsec %= int64(time.Second)

	return unix.Timespec{
		Sec:  base.Sec + deltaSec + carry,
		Nsec: nsec,
	}
}

// Close releases the timerfd.
func (q *Queue) Close() error {
	return unix.Close(q.fd)
}
