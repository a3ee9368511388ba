// Package timer implements the reactor's timer queue: an ordered set of
// one-shot and repeating timers surfaced through a single kernel timer
// descriptor (a timerfd on unix), registered with the loop as an ordinary
// channel.
//
// Grounded on original_source/net/TimerQueue.h / TimerQueue.cpp: the
// insert/getExpired/reset algorithm and the cancelling-side-table trick
// for safe cancel-during-fire are ported from there.
package timer

import (
	"sync/atomic"
	"time"
)

// entry is one scheduled timer. seq is assigned from a process-wide
// monotonic counter and doubles as the tie-breaker the spec calls "pointer
// identity" for timers sharing the same expiration.
type entry struct {
	expiration time.Time
	interval   time.Duration
	seq        uint64
	canceled   bool
	callback   func()
}

var seqCounter uint64

func nextSeq() uint64 {
	return atomic.AddUint64(&seqCounter, 1)
}

// entryHeap is a min-heap of *entry ordered by (expiration, seq), giving
// the ordered set named in spec §3 ("Timer queue... ordered set keyed by
// (expiration, pointer)").
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].expiration.Equal(h[j].expiration) {
		return h[i].seq < h[j].seq
	}
	return h[i].expiration.Before(h[j].expiration)
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(*entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
