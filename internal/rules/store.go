// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package rules

import (
	"fmt"
	"sort"

	"grimm.is/mavproxy/internal/merrors"
	"grimm.is/mavproxy/internal/message"
)

// Store holds the configured rule set, ordered by descending priority
// (ties broken by original configuration order), and provides the
// enable/disable surface the trigger engine and control plane use
// (§4.3).
type Store struct {
	rules  []*Rule
	byName map[string]*Rule
}

// NewStore validates rules and builds a Store ordered by descending
// priority. A stable sort preserves configuration order among equal
// priorities (invariant: deterministic match order).
func NewStore(ruleset []*Rule) (*Store, error) {
	if err := validate(ruleset); err != nil {
		return nil, err
	}

	ordered := append([]*Rule(nil), ruleset...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	byName := make(map[string]*Rule, len(ordered))
	for _, r := range ordered {
		byName[r.Name] = r
	}
	return &Store{rules: ordered, byName: byName}, nil
}

func validate(ruleset []*Rule) error {
	byName := make(map[string]*Rule, len(ruleset))
	for _, r := range ruleset {
		if r.Name == "" {
			return merrors.New(merrors.KindConfig, "rule has empty name")
		}
		if _, dup := byName[r.Name]; dup {
			return merrors.New(merrors.KindConfig, fmt.Sprintf("duplicate rule name %q", r.Name))
		}
		byName[r.Name] = r

		if r.HasAction(ActionModify) && r.ModifierRef == "" {
			return merrors.New(merrors.KindConfig, fmt.Sprintf("rule %q: modify action requires modifier_ref", r.Name))
		}
		if r.HasAction(ActionDelay) && r.DelaySeconds == nil {
			return merrors.New(merrors.KindConfig, fmt.Sprintf("rule %q: delay action requires delay_seconds", r.Name))
		}
		if r.HasAction(ActionBatch) && r.Batch == nil {
			return merrors.New(merrors.KindConfig, fmt.Sprintf("rule %q: batch action requires a batch spec", r.Name))
		}
		if r.Batch != nil && r.Batch.Count < 2 {
			return merrors.New(merrors.KindConfig, fmt.Sprintf("rule %q: batch count must be >= 2", r.Name))
		}
	}

	for _, r := range ruleset {
		if r.Trigger == nil {
			continue
		}
		for _, name := range append(append([]string{}, r.Trigger.ActivateRules...), r.Trigger.DeactivateRules...) {
			if _, ok := byName[name]; !ok {
				return merrors.New(merrors.KindConfig, fmt.Sprintf("rule %q: trigger references unknown rule %q", r.Name, name))
			}
		}
	}
	return nil
}

// Rules returns the full ordered rule list. Callers must not mutate the
// returned slice.
func (s *Store) Rules() []*Rule { return s.rules }

// Lookup returns the rule with the given name.
func (s *Store) Lookup(name string) (*Rule, bool) {
	r, ok := s.byName[name]
	return r, ok
}

// Enable turns on the named rule. Returns false if the name is unknown.
func (s *Store) Enable(name string) bool {
	r, ok := s.byName[name]
	if !ok {
		return false
	}
	r.Enable()
	return true
}

// Disable turns off the named rule. Returns false if the name is unknown.
func (s *Store) Disable(name string) bool {
	r, ok := s.byName[name]
	if !ok {
		return false
	}
	r.Disable()
	return true
}

// Match returns the highest-priority enabled rule whose direction,
// message type, and conditions all match msg traveling in dir. At most
// one rule is returned: the first hit in priority order (invariant 1).
func (s *Store) Match(dir Direction, msg *message.Message) (*Rule, bool) {
	for _, r := range s.rules {
		if !r.Enabled() {
			continue
		}
		if !r.Direction.Matches(dir) {
			continue
		}
		if r.MessageType != "" && r.MessageType != msg.Type {
			continue
		}
		if !r.Conditions.Matches(msg) {
			continue
		}
		return r, true
	}
	return nil, false
}
