package telnet

import (
	"context"
	"time"
)

// rollingDivisor shrinks the nominal timeout into the quiet-period grace
// window: each re-arm grants timeout/100 of additional waiting.
const rollingDivisor = 100

// pauseUnit is the anti-spin suspension taken inside each incremental
// check of the poll loop.
const pauseUnit = time.Millisecond

// Strategy is the suspension primitive used while polling for bytes.
// The decision and parsing logic is identical for every strategy; only
// how the wait is expressed differs.
type Strategy interface {
	// Pause suspends the caller for roughly d.
	Pause(ctx context.Context, d time.Duration)
}

// SleepStrategy blocks the calling goroutine unconditionally.
type SleepStrategy struct{}

func (SleepStrategy) Pause(_ context.Context, d time.Duration) {
	time.Sleep(d)
}

// YieldStrategy waits on a timer but returns early if the context is
// cancelled, so a cancelled read session stops pausing immediately.
type YieldStrategy struct{}

func (YieldStrategy) Pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Window is the dual-timeout state for one read session. The initial
// deadline is fixed when the session starts; the rolling deadline is
// re-armed to now + timeout/100 every time a byte arrives, so a quiet
// connection is given a short decaying grace period before the session
// ends. The caller owns the Window; the handler holds no state between
// parse calls.
type Window struct {
	Initial time.Time
	Rolling time.Time
	Seen    bool
	Timeout time.Duration
}

// NewWindow opens a read window at now with the given nominal timeout.
func NewWindow(now time.Time, timeout time.Duration) Window {
	return Window{
		Initial: now.Add(timeout),
		Rolling: RollingDeadline(now, timeout),
		Timeout: timeout,
	}
}

// RollingDeadline computes the re-armed incremental deadline.
func RollingDeadline(now time.Time, timeout time.Duration) time.Time {
	return now.Add(timeout / rollingDivisor)
}

// MarkSeen records that a response byte arrived and re-arms the rolling
// deadline from now.
func (w *Window) MarkSeen(now time.Time) {
	w.Seen = true
	w.Rolling = RollingDeadline(now, w.Timeout)
}

// ResponsePending reports whether the transport has bytes ready.
func ResponsePending(available int) bool {
	return available > 0
}

// WaitingForInitial reports whether the session is still inside the
// initial-response window: nothing has been seen yet and the absolute
// deadline has not passed.
func (w *Window) WaitingForInitial(now time.Time) bool {
	return !w.Seen && now.Before(w.Initial)
}

// WaitingForIncremental reports whether the rolling window is still open.
// It pauses briefly through the strategy to keep the poll loop from
// spinning, then compares against the time sampled before the pause so a
// slow pause cannot stretch the window.
func (w *Window) WaitingForIncremental(ctx context.Context, s Strategy) bool {
	now := time.Now()
	s.Pause(ctx, pauseUnit)
	return now.Before(w.Rolling)
}
