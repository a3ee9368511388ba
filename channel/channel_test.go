package channel_test

import (
	"testing"
	"time"

	"github.com/nabbar/reactor/channel"
)

func newTestChannel(t *testing.T) (*channel.Channel, *int) {
	t.Helper()
	updates := 0
	ch := channel.New(7, func(*channel.Channel) { updates++ })
	return ch, &updates
}

func TestEnableDisable_DrivesUpdate(t *testing.T) {
	ch, updates := newTestChannel(t)

	ch.EnableReading()
	if !ch.IsReading() {
		t.Fatalf("expected reading armed")
	}
	ch.EnableWriting()
	if !ch.IsWriting() {
		t.Fatalf("expected writing armed")
	}
	ch.DisableWriting()
	if ch.IsWriting() {
		t.Fatalf("expected writing disarmed")
	}
	ch.DisableAll()
	if !ch.IsNoneEvent() {
		t.Fatalf("expected no interest after DisableAll")
	}
	if *updates != 4 {
		t.Fatalf("expected 4 update callbacks, got %d", *updates)
	}
}

func TestHandleEvent_HangUpWithoutInputClosesOnly(t *testing.T) {
	ch, _ := newTestChannel(t)
	var closed, errored, read bool
	ch.SetCloseFunc(func() { closed = true })
	ch.SetErrorFunc(func() { errored = true })
	ch.SetReadFunc(func(time.Time) { read = true })

	ch.SetRevents(channel.EventHangUp)
	ch.HandleEvent(time.Now())

	if !closed || errored || read {
		t.Fatalf("expected only close callback, got closed=%v errored=%v read=%v", closed, errored, read)
	}
}

func TestHandleEvent_ErrorCallback(t *testing.T) {
	ch, _ := newTestChannel(t)
	var errored bool
	ch.SetErrorFunc(func() { errored = true })

	ch.SetRevents(channel.EventError)
	ch.HandleEvent(time.Now())

	if !errored {
		t.Fatalf("expected error callback to run")
	}
}

func TestHandleEvent_ReadThenWrite(t *testing.T) {
	ch, _ := newTestChannel(t)
	var order []string
	ch.SetReadFunc(func(time.Time) { order = append(order, "read") })
	ch.SetWriteFunc(func() { order = append(order, "write") })

	ch.SetRevents(channel.EventRead | channel.EventWrite)
	ch.HandleEvent(time.Now())

	if len(order) != 2 || order[0] != "read" || order[1] != "write" {
		t.Fatalf("expected [read write], got %v", order)
	}
}

func TestTie_SkipsDispatchWhenOwnerGone(t *testing.T) {
	ch, _ := newTestChannel(t)
	alive := false
	var read bool
	ch.SetReadFunc(func(time.Time) { read = true })
	ch.Tie(func() (any, bool) { return nil, alive })

	ch.SetRevents(channel.EventRead)
	ch.HandleEvent(time.Now())
	if read {
		t.Fatalf("expected dispatch to be skipped while owner not alive")
	}

	alive = true
	ch.HandleEvent(time.Now())
	if !read {
		t.Fatalf("expected dispatch to run once owner is alive")
	}
}

func TestIsHandlingEvent_FalseOutsideDispatch(t *testing.T) {
	ch, _ := newTestChannel(t)
	if ch.IsHandlingEvent() {
		t.Fatalf("expected not handling before any dispatch")
	}
	ch.SetReadFunc(func(time.Time) {
		if !ch.IsHandlingEvent() {
			t.Fatalf("expected IsHandlingEvent true during dispatch")
		}
	})
	ch.SetRevents(channel.EventRead)
	ch.HandleEvent(time.Now())
	if ch.IsHandlingEvent() {
		t.Fatalf("expected not handling after dispatch returns")
	}
}
