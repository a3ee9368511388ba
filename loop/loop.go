// Package loop implements the reactor's per-goroutine event loop: the
// demultiplexer wrapper, the wake-up mechanism, the timer queue, and the
// cross-goroutine functor hand-off.
//
// Grounded on original_source/net/EventLoop.h / EventLoop.cpp: the main
// loop body (poll, dispatch, drain pending functors), the
// runInLoop/queueInLoop wake conditions, and the one-loop-per-thread
// (here: per-goroutine) affinity assertion are all ported directly, with
// "thread" renamed to "goroutine" throughout to match Go's scheduling
// unit without changing the affinity contract.
package loop

import (
	"fmt"
	"sync"
	"time"

	"github.com/nabbar/reactor/atomic"
	"github.com/nabbar/reactor/channel"
	"github.com/nabbar/reactor/logger"
	"github.com/nabbar/reactor/poller"
	"github.com/nabbar/reactor/rerrors"
	"github.com/nabbar/reactor/timer"
)

// pollTimeout is the fixed demultiplexer wait, matching muduo's
// kPollTimeMs: long enough that idle loops don't spin, short enough
// that the loop notices a stalled wake-up promptly during debugging.
const pollTimeout = 10 * time.Second

// Loop is bound to exactly one goroutine: the one that calls Run. Every
// mutating operation (channel registration, timer scheduling) must
// either happen on that goroutine or be routed through RunInLoop /
// QueueInLoop.
type Loop struct {
	goroutineID uint64

	poller poller.Poller
	timer  *timer.Queue

	wakeFD int
	wakeCh *channel.Channel

	quit atomic.Value[bool] // written off-goroutine by Quit; no mutex needed

	mu               sync.Mutex
	pendingFunctors  []func()
	callingPending   bool
	looping          bool
	iteration        uint64
	lastPollReturn   time.Time
	active           []*channel.Channel
}

// New creates a Loop bound to the calling goroutine. Run must be called
// from that same goroutine.
func New() (*Loop, error) {
	p, err := poller.New()
	if err != nil {
		return nil, rerrors.New(rerrors.Configuration, "loop: create poller", err)
	}

	l := &Loop{
		goroutineID: currentGoroutineID(),
		poller:      p,
		quit:        atomic.NewValue[bool](),
	}

	l.wakeFD, err = newWakeDescriptor()
	if err != nil {
		return nil, rerrors.New(rerrors.Configuration, "loop: create wake descriptor", err)
	}
	l.wakeCh = channel.New(l.wakeFD, func(c *channel.Channel) {
		if err := l.poller.UpdateChannel(c); err != nil {
			logger.Default.Errorf("loop: update wake channel: %v", err)
		}
	})
	l.wakeCh.SetReadFunc(func(time.Time) { l.handleWakeRead() })
	l.wakeCh.EnableReading()

	tq, err := timer.New(func(c *channel.Channel) {
		if err := l.poller.UpdateChannel(c); err != nil {
			logger.Default.Errorf("loop: update timer channel: %v", err)
		}
	})
	if err != nil {
		return nil, rerrors.New(rerrors.Configuration, "loop: create timer queue", err)
	}
	l.timer = tq

	return l, nil
}

// Run drives the main loop body (spec §4.5 steps 1-7) until Quit is
// called. It must be invoked on the goroutine that called New.
func (l *Loop) Run() {
	l.assertInLoopGoroutine("Run")
	l.looping = true

	for {
		if l.quit.Load() {
			break
		}

		l.active = l.active[:0]
		now, err := l.poller.Poll(pollTimeout, &l.active)
		if err != nil {
			logger.Default.Errorf("loop: poll: %v", err)
			continue
		}
		l.iteration++
		l.lastPollReturn = now

		for _, ch := range l.active {
			ch.HandleEvent(now)
		}

		l.doPendingFunctors()
	}

	l.looping = false
	l.wakeCh.DisableAll()
	_ = l.poller.RemoveChannel(l.wakeCh)
}

// Quit requests loop termination. Safe to call from any goroutine.
func (l *Loop) Quit() {
	l.quit.Store(true)
	if !l.inLoopGoroutine() {
		l.wake()
	}
}

// RunInLoop runs f immediately if called from the loop goroutine,
// otherwise enqueues it for the next drain and wakes the loop.
func (l *Loop) RunInLoop(f func()) {
	if l.inLoopGoroutine() {
		f()
		return
	}
	l.QueueInLoop(f)
}

// QueueInLoop always enqueues f, waking the loop if the caller is
// off-goroutine or the loop is currently draining pending functors (so
// a functor enqueued mid-drain is not delayed a full poll timeout).
func (l *Loop) QueueInLoop(f func()) {
	l.mu.Lock()
	l.pendingFunctors = append(l.pendingFunctors, f)
	calling := l.callingPending
	l.mu.Unlock()

	if !l.inLoopGoroutine() || calling {
		l.wake()
	}
}

// RunAt schedules f to run once at when, on the loop goroutine.
func (l *Loop) RunAt(when time.Time, f func()) uint64 {
	var id uint64
	l.RunInLoop(func() { id = l.timer.Insert(f, when, 0) })
	return id
}

// RunAfter schedules f to run once after delay elapses.
func (l *Loop) RunAfter(delay time.Duration, f func()) uint64 {
	return l.RunAt(time.Now().Add(delay), f)
}

// RunEvery schedules f to run every interval, starting one interval
// from now.
func (l *Loop) RunEvery(interval time.Duration, f func()) uint64 {
	var id uint64
	when := time.Now().Add(interval)
	l.RunInLoop(func() { id = l.timer.Insert(f, when, interval) })
	return id
}

// CancelTimer cancels a timer previously scheduled via RunAt/RunAfter/
// RunEvery. Safe to call from any goroutine or from inside a firing
// timer's own callback.
func (l *Loop) CancelTimer(id uint64) {
	l.RunInLoop(func() { l.timer.Cancel(id) })
}

// UpdateChannel registers or updates ch's interest set with the
// demultiplexer. Must be called on the loop goroutine.
func (l *Loop) UpdateChannel(ch *channel.Channel) error {
	l.assertInLoopGoroutine("UpdateChannel")
	return l.poller.UpdateChannel(ch)
}

// RemoveChannel deregisters ch. Must be called on the loop goroutine.
func (l *Loop) RemoveChannel(ch *channel.Channel) error {
	l.assertInLoopGoroutine("RemoveChannel")
	return l.poller.RemoveChannel(ch)
}

// AssertInLoopGoroutine logs a rerrors.Programmer-coded message through
// logger.Default.Fatalf, which terminates the process, if the calling
// goroutine is not the one that owns this Loop.
func (l *Loop) AssertInLoopGoroutine() {
	l.assertInLoopGoroutine("AssertInLoopGoroutine")
}

// InLoopGoroutine reports whether the calling goroutine is the one that
// owns this Loop, letting callers like Connection.Send choose between
// an inline call and RunInLoop without tripping the fatal assertion.
func (l *Loop) InLoopGoroutine() bool {
	return l.inLoopGoroutine()
}

func (l *Loop) assertInLoopGoroutine(op string) {
	if !l.inLoopGoroutine() {
		err := rerrors.New(rerrors.Programmer,
			fmt.Sprintf("loop: %s called from goroutine %d, loop owned by %d", op, currentGoroutineID(), l.goroutineID))
		logger.Default.Fatalf("%v", err)
	}
}

func (l *Loop) inLoopGoroutine() bool {
	return currentGoroutineID() == l.goroutineID
}

func (l *Loop) doPendingFunctors() {
	l.mu.Lock()
	l.callingPending = true
	functors := l.pendingFunctors
	l.pendingFunctors = nil
	l.mu.Unlock()

	for _, f := range functors {
		f()
	}

	l.mu.Lock()
	l.callingPending = false
	l.mu.Unlock()
}
