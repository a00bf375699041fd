// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package trigger implements dynamic rule (de)activation on rule match
// (§4.5): immediate deactivation, immediate-or-timed activation, and a
// background reaper that expires timed activations.
package trigger

import (
	"context"
	"log"
	"sync"
	"time"

	"grimm.is/mavproxy/internal/rules"
)

// reapInterval is how often the reaper scans for expired activations.
// §4.5 requires at least once per second.
const reapInterval = 250 * time.Millisecond

// Engine tracks which rules were activated by a trigger and, for
// duration-bound activations, when they should automatically expire.
type Engine struct {
	store *rules.Store
	now   func() time.Time

	mu     sync.Mutex
	expiry map[string]time.Time // rule name -> auto-disable time; absent = permanent
}

// NewEngine builds a trigger Engine bound to store.
func NewEngine(store *rules.Store) *Engine {
	return &Engine{
		store:  store,
		now:    time.Now,
		expiry: make(map[string]time.Time),
	}
}

// Fire applies rule's trigger spec after rule has matched: rules named
// in deactivate_rules are disabled immediately; rules named in
// activate_rules are enabled immediately, with their expiry reset if
// duration_seconds is set (reactivation restarts the window) or cleared
// to permanent if not.
func (e *Engine) Fire(rule *rules.Rule) {
	if rule.Trigger == nil || !rule.Trigger.OnMatch {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, name := range rule.Trigger.DeactivateRules {
		e.store.Disable(name)
		delete(e.expiry, name)
	}
	for _, name := range rule.Trigger.ActivateRules {
		e.store.Enable(name)
		if rule.Trigger.DurationSeconds != nil {
			e.expiry[name] = e.now().Add(time.Duration(*rule.Trigger.DurationSeconds * float64(time.Second)))
		} else {
			delete(e.expiry, name)
		}
	}

	if rule.Trigger.OnComplete != "" && rule.Trigger.OnComplete != "ignore" {
		log.Printf("trigger: rule %q sets on_complete=%q, which is a no-op; only on_match triggers fire", rule.Name, rule.Trigger.OnComplete)
	}
}

// reap disables any activation whose expiry has passed as of at, and
// returns the names it disabled. Tests call it directly with a fixed time.
func (e *Engine) reap(at time.Time) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var expired []string
	for name, when := range e.expiry {
		if !at.Before(when) {
			expired = append(expired, name)
		}
	}
	for _, name := range expired {
		e.store.Disable(name)
		delete(e.expiry, name)
	}
	return expired
}

// Activations returns a snapshot of every rule name with a pending
// duration-bound expiry, for control-plane introspection (§6 expansion).
// Permanently-activated rules (no duration_seconds) never appear here.
func (e *Engine) Activations() map[string]time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]time.Time, len(e.expiry))
	for name, when := range e.expiry {
		out[name] = when
	}
	return out
}

// Run drives the reaper until ctx is cancelled, at reapInterval cadence.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.reap(e.now())
		}
	}
}
