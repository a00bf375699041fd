// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package rules holds the rule data model, the ordered rule store
// (§4.3), and the condition matcher (§4.4).
package rules

import (
	"sync/atomic"

	"grimm.is/mavproxy/internal/message"
)

// Direction is one of gcs_to_router, router_to_gcs, or both (§3).
type Direction string

const (
	DirGCSToRouter Direction = "gcs_to_router"
	DirRouterToGCS Direction = "router_to_gcs"
	DirBoth        Direction = "both"
)

// Matches reports whether a rule configured with direction d applies to
// traffic actually moving in direction actual.
func (d Direction) Matches(actual Direction) bool {
	return d == DirBoth || d == actual
}

// Action is one step in a rule's action chain (§3, §4.10).
type Action string

const (
	ActionForward Action = "forward"
	ActionBlock   Action = "block"
	ActionModify  Action = "modify"
	ActionDelay   Action = "delay"
	ActionBatch   Action = "batch"
)

// Condition is a field-path -> expected-value map; all entries must hold
// (logical AND) for a rule to match (§4.4).
type Condition map[string]message.Value

// BatchSpec configures the `batch` action (§4.6).
type BatchSpec struct {
	Key                string
	Count              int
	SystemIDField      string // optional; default header.system_id
	TimeoutSeconds     float64
	TimeoutForward     bool
}

// AckSpec configures synthetic ACK construction (§4.8).
type AckSpec struct {
	MessageType          string
	SourceSystemField    string
	SourceComponentField string
	Fields               map[string]message.Value
	CopyFields           map[string]string // target path -> source path
}

// TriggerSpec configures dynamic rule (de)activation on match (§4.5).
type TriggerSpec struct {
	OnMatch         bool // default true
	OnComplete      string
	ActivateRules   []string
	DeactivateRules []string
	DurationSeconds *float64 // nil = activation never expires
}

// Rule is one (match, actions) tuple (§3).
type Rule struct {
	Name        string
	MessageType string // empty matches any type
	Priority    int
	Direction   Direction
	Actions     []Action
	Conditions  Condition

	ModifierRef string
	PluginRefs  []string

	DelaySeconds *float64
	Batch        *BatchSpec
	Ack          *AckSpec
	Trigger      *TriggerSpec

	enabledByDefault bool
	enabled          atomic.Bool
}

// NewRule constructs a Rule with its enabled state initialized from
// enabledByDefault.
func NewRule(name, messageType string, priority int, dir Direction, actions []Action, enabledByDefault bool) *Rule {
	r := &Rule{
		Name:             name,
		MessageType:      messageType,
		Priority:         priority,
		Direction:        dir,
		Actions:          actions,
		enabledByDefault: enabledByDefault,
	}
	r.enabled.Store(enabledByDefault)
	return r
}

// Enabled reports the rule's current enable state. Safe for concurrent
// use without synchronizing with Enable/Disable.
func (r *Rule) Enabled() bool { return r.enabled.Load() }

// Enable turns the rule on. Observable atomically (§4.3).
func (r *Rule) Enable() { r.enabled.Store(true) }

// Disable turns the rule off.
func (r *Rule) Disable() { r.enabled.Store(false) }

// HasAction reports whether a is present anywhere in the rule's chain.
func (r *Rule) HasAction(a Action) bool {
	for _, x := range r.Actions {
		if x == a {
			return true
		}
	}
	return false
}
