// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package batch implements the `batch` action's quorum and timeout
// semantics (§4.6): packets are queued per rule-scoped batch_key until a
// threshold count of distinct members is seen, or a timeout elapses.
package batch

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"grimm.is/mavproxy/internal/message"
	"grimm.is/mavproxy/internal/rules"
)

// reapInterval bounds how stale a timed-out batch group can get before
// it is released.
const reapInterval = 250 * time.Millisecond

// ReleaseReason identifies why a batch group released.
type ReleaseReason string

const (
	// ReleaseThreshold fires once len(unique members) reaches the
	// configured count; every queued packet resumes its action chain.
	ReleaseThreshold ReleaseReason = "threshold"
	// ReleaseTimeoutForward fires when a group's deadline passes before
	// quorum and the rule has timeout_forward=true: every queued packet
	// is forwarded once, verbatim, bypassing its remaining actions.
	ReleaseTimeoutForward ReleaseReason = "timeout_forward"
	// ReleaseTimeoutDropped fires when a group's deadline passes before
	// quorum and timeout_forward=false: the queue is discarded.
	ReleaseTimeoutDropped ReleaseReason = "timeout_dropped"
)

// Item is one queued packet awaiting batch release.
type Item struct {
	MemberID      string
	CorrelationID uuid.UUID
	Dir           rules.Direction
	Remaining     []rules.Action
	Raw           []byte
}

type group struct {
	rule     *rules.Rule
	seen     map[string]bool
	items    []Item
	deadline time.Time
}

// Manager tracks in-flight batch groups. onRelease is invoked exactly
// once per group release (threshold or timeout), never concurrently for
// the same group, so callers may safely continue/forward/drop without
// their own locking.
type Manager struct {
	mu        sync.Mutex
	groups    map[string]*group
	now       func() time.Time
	onRelease func(rule *rules.Rule, items []Item, reason ReleaseReason)
}

// NewManager builds a Manager that invokes onRelease on every group
// release.
func NewManager(onRelease func(rule *rules.Rule, items []Item, reason ReleaseReason)) *Manager {
	return &Manager{
		groups:    make(map[string]*group),
		now:       time.Now,
		onRelease: onRelease,
	}
}

func groupKey(ruleName, batchKey string) string {
	return ruleName + "\x00" + batchKey
}

// MemberID extracts the batch member identifier from msg, using
// spec.SystemIDField if set, else header.system_id (§4.6).
func MemberID(spec *rules.BatchSpec, msg *message.Message) (string, bool) {
	path := spec.SystemIDField
	if path == "" {
		path = "header.system_id"
	}
	v, ok := msg.Lookup(path)
	if !ok {
		return "", false
	}
	switch v.Kind {
	case message.KindInt:
		return strconv.FormatInt(v.Int, 10), true
	case message.KindString:
		return v.Str, true
	default:
		return v.String(), true
	}
}

// Add queues a packet into rule's batch group, keyed by memberID. If
// this packet brings the group's distinct-member count to the
// configured threshold, the group releases immediately (synchronously,
// within this call) via onRelease with ReleaseThreshold, including every
// packet queued so far. Returns the packet's correlation id.
func (m *Manager) Add(rule *rules.Rule, memberID string, dir rules.Direction, remaining []rules.Action, raw []byte) uuid.UUID {
	m.mu.Lock()
	key := groupKey(rule.Name, rule.Batch.Key)
	g, exists := m.groups[key]
	if !exists {
		g = &group{
			rule:     rule,
			seen:     make(map[string]bool),
			deadline: m.now().Add(time.Duration(rule.Batch.TimeoutSeconds * float64(time.Second))),
		}
		m.groups[key] = g
	}

	id := uuid.New()
	g.seen[memberID] = true
	g.items = append(g.items, Item{MemberID: memberID, CorrelationID: id, Dir: dir, Remaining: remaining, Raw: raw})

	thresholdHit := len(g.seen) >= rule.Batch.Count
	var released []Item
	if thresholdHit {
		released = g.items
		delete(m.groups, key)
	}
	m.mu.Unlock()

	if thresholdHit {
		m.onRelease(rule, released, ReleaseThreshold)
	}
	return id
}

// GroupSnapshot summarizes one in-flight batch group for control-plane
// introspection (§6 expansion).
type GroupSnapshot struct {
	RuleName string
	Key      string
	Members  int
	Queued   int
	Deadline time.Time
}

// Groups returns a snapshot of every in-flight batch group.
func (m *Manager) Groups() []GroupSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GroupSnapshot, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, GroupSnapshot{
			RuleName: g.rule.Name,
			Key:      g.rule.Batch.Key,
			Members:  len(g.seen),
			Queued:   len(g.items),
			Deadline: g.deadline,
		})
	}
	return out
}

// Reap releases every group whose deadline has passed as of now,
// forwarding (timeout_forward=true) or dropping (false) its queue.
func (m *Manager) Reap(now time.Time) {
	type expired struct {
		rule    *rules.Rule
		items   []Item
		members int
	}

	m.mu.Lock()
	var due []expired
	for key, g := range m.groups {
		if !now.Before(g.deadline) {
			due = append(due, expired{g.rule, g.items, len(g.seen)})
			delete(m.groups, key)
		}
	}
	m.mu.Unlock()

	for _, e := range due {
		if e.rule.Batch.TimeoutForward {
			log.Printf("batch: rule %q group %q timed out with %d/%d members; forwarding (timeout_forward=true)",
				e.rule.Name, e.rule.Batch.Key, e.members, e.rule.Batch.Count)
			m.onRelease(e.rule, e.items, ReleaseTimeoutForward)
			continue
		}
		log.Printf("batch: rule %q group %q timed out with %d/%d members; dropping (timeout_forward=false)",
			e.rule.Name, e.rule.Batch.Key, e.members, e.rule.Batch.Count)
		m.onRelease(e.rule, nil, ReleaseTimeoutDropped)
	}
}

// Run drives the timeout reaper until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Reap(m.now())
		}
	}
}
