// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"encoding/json"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/mavproxy/internal/rules"
)

// DumpRuleset renders a rule set as indented JSON for comparison and
// debug output. Unexported fields (enabledByDefault, the atomic enabled
// flag) are not part of the dump; callers comparing dumps are comparing
// configuration, not runtime enable state.
func DumpRuleset(ruleset []*rules.Rule) (string, error) {
	type dumped struct {
		Name        string          `json:"name"`
		MessageType string          `json:"message_type,omitempty"`
		Priority    int             `json:"priority"`
		Direction   rules.Direction `json:"direction"`
		Actions     []rules.Action  `json:"actions"`
		ModifierRef string          `json:"modifier_ref,omitempty"`
		PluginRefs  []string        `json:"plugin_refs,omitempty"`
	}
	out := make([]dumped, 0, len(ruleset))
	for _, r := range ruleset {
		out = append(out, dumped{
			Name:        r.Name,
			MessageType: r.MessageType,
			Priority:    r.Priority,
			Direction:   r.Direction,
			Actions:     r.Actions,
			ModifierRef: r.ModifierRef,
			PluginRefs:  r.PluginRefs,
		})
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DiffRulesets returns a unified diff between two rule sets' JSON dumps,
// empty if they're identical. Used by config reload tooling to show an
// operator exactly what a new document would change before it's applied.
func DiffRulesets(from, to []*rules.Rule, fromLabel, toLabel string) (string, error) {
	fromText, err := DumpRuleset(from)
	if err != nil {
		return "", err
	}
	toText, err := DumpRuleset(to)
	if err != nil {
		return "", err
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(fromText),
		B:        difflib.SplitLines(toText),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}
