package worker

import "time"

// SetClock replaces the worker clock for testing
func (w *SessionPurgeWorker) SetClock(now func() time.Time) {
	w.now = now
}
