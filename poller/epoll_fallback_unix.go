//go:build unix && !linux

package poller

// epoll is Linux-specific; every other unix the reactor targets (the BSDs,
// Darwin) falls back to poll(2) transparently when asked for the default
// scalable poller. USE_POLL is then a no-op there, not an error.
func newEPollPoller() (Poller, error) {
	return newPollPoller(), nil
}
