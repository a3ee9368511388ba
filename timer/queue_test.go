//go:build unix

package timer_test

import (
	"testing"
	"time"

	"github.com/nabbar/reactor/channel"
	"github.com/nabbar/reactor/timer"
)

func newTestQueue(t *testing.T) *timer.Queue {
	t.Helper()
	q, err := timer.New(func(*channel.Channel) {})
	if err != nil {
		t.Fatalf("timer.New: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func waitForFire(t *testing.T, ch *channel.Channel, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var buf [1]byte
		// the channel's read callback drains and dispatches; invoking it
		// directly is how this test drives the queue without a full loop.
		ch.HandleEvent(time.Now())
		_ = buf
		time.Sleep(5 * time.Millisecond)
	}
}

func TestQueue_OrdersEarlierTimerFirst(t *testing.T) {
	q := newTestQueue(t)
	var order []string

	now := time.Now()
	q.Insert(func() { order = append(order, "second") }, now.Add(40*time.Millisecond), 0)
	q.Insert(func() { order = append(order, "first") }, now.Add(10*time.Millisecond), 0)

	q.Channel().SetRevents(channel.EventRead)
	waitForFire(t, q.Channel(), 200*time.Millisecond)

	if len(order) < 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected [first second], got %v", order)
	}
}

func TestQueue_CancelDuringFirePreventsReinsertion(t *testing.T) {
	q := newTestQueue(t)
	var fires int
	var id uint64

	id = q.Insert(func() {
		fires++
		if fires == 1 {
			q.Cancel(id)
		}
	}, time.Now().Add(5*time.Millisecond), 20*time.Millisecond)

	q.Channel().SetRevents(channel.EventRead)
	waitForFire(t, q.Channel(), 150*time.Millisecond)

	if fires != 1 {
		t.Fatalf("expected exactly one fire after self-cancel, got %d", fires)
	}
}

func TestQueue_CancelPendingTimerBeforeFire(t *testing.T) {
	q := newTestQueue(t)
	var fired bool

	id := q.Insert(func() { fired = true }, time.Now().Add(30*time.Millisecond), 0)
	q.Cancel(id)

	q.Channel().SetRevents(channel.EventRead)
	waitForFire(t, q.Channel(), 100*time.Millisecond)

	if fired {
		t.Fatalf("expected cancelled pending timer to never fire")
	}
}
