package engine

import (
	"fmt"
)

// The rest timer has no paused state: rest periods are short, they run to
// their deadline or get cancelled. Deadlines are absolute wall-clock
// timestamps so a page refresh mid-rest resumes the countdown exactly.

// OpenRestTimer marks the rest selector open without arming a countdown.
func (e *Engine) OpenRestTimer() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.timer.Active = true
	return e.store.SaveTimer(e.timer)
}

// ArmRestTimer starts a countdown of the given duration.
func (e *Engine) ArmRestTimer(durationSec int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if durationSec < 1 {
		return fmt.Errorf("rest duration must be at least 1s, got %d", durationSec)
	}
	e.timer.Active = true
	e.timer.EndsAtMs = e.now().UnixMilli() + int64(durationSec)*1000
	e.timer.InitialSec = durationSec
	return e.store.SaveTimer(e.timer)
}

// AdjustRestTimer shifts the armed deadline by deltaSec. The deadline is
// clamped at "now": a negative delta can force immediate expiry but never
// pretend the timer finished in the past. InitialSec tracks the same delta
// with a floor of 1, purely so the displayed total stays coherent.
func (e *Engine) AdjustRestTimer(deltaSec int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.timer.Active || e.timer.EndsAtMs == 0 {
		return fmt.Errorf("no armed rest timer to adjust")
	}

	nowMs := e.now().UnixMilli()
	endsAt := e.timer.EndsAtMs + int64(deltaSec)*1000
	if endsAt < nowMs {
		endsAt = nowMs
	}
	e.timer.EndsAtMs = endsAt

	initial := e.timer.InitialSec + deltaSec
	if initial < 1 {
		initial = 1
	}
	e.timer.InitialSec = initial

	return e.store.SaveTimer(e.timer)
}

// ResetRestTimer clears the countdown but keeps the selector open, so the
// user lands back on duration selection instead of having the surface
// close under them.
func (e *Engine) ResetRestTimer() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.timer.EndsAtMs = 0
	e.timer.InitialSec = 0
	return e.store.SaveTimer(e.timer)
}

// StopRestTimer fully clears the timer, removing its durable entries.
func (e *Engine) StopRestTimer() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.timer.Active = false
	e.timer.EndsAtMs = 0
	e.timer.InitialSec = 0
	return e.store.ClearTimer()
}

// RestRemainingMs returns milliseconds left on the countdown; negative
// values mean overrun, zero means nothing armed.
func (e *Engine) RestRemainingMs() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timer.RemainingMs(e.now().UnixMilli())
}
