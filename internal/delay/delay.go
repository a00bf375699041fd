// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package delay implements the `delay` action's scheduling primitive
// (§4.7): a unit of work runs once, after delay_seconds, independently
// of every other in-flight delay.
package delay

import "time"

// Scheduler defers arbitrary work. Each scheduled item runs on its own
// timer goroutine, so one delayed packet never blocks another.
type Scheduler struct{}

// NewScheduler builds a Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule runs fire once, delaySeconds from now, on its own goroutine.
// The returned timer can be stopped by callers that need to cancel
// (e.g. on shutdown) without affecting any other scheduled work.
func (s *Scheduler) Schedule(delaySeconds float64, fire func()) *time.Timer {
	d := time.Duration(delaySeconds * float64(time.Second))
	return time.AfterFunc(d, fire)
}
