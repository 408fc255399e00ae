package engine

import "time"

// timeManager tracks the wall-clock side of a Budget.
type timeManager struct {
	start    time.Time
	deadline time.Time // zero when the search is not timed
}

func newTimeManager(maxTime time.Duration) timeManager {
	tm := timeManager{start: time.Now()}
	if maxTime > 0 {
		tm.deadline = tm.start.Add(maxTime)
	}
	return tm
}

func (tm timeManager) elapsed() time.Duration {
	return time.Since(tm.start)
}

func (tm timeManager) expired() bool {
	return !tm.deadline.IsZero() && !time.Now().Before(tm.deadline)
}

// startNext reports whether another iteration is worth starting. The next
// iteration usually costs more than all previous ones together, so it is
// skipped once less time remains than has already been used.
func (tm timeManager) startNext() bool {
	if tm.deadline.IsZero() {
		return true
	}
	now := time.Now()
	return tm.deadline.Sub(now) > now.Sub(tm.start)
}
