// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"grimm.is/mavproxy/internal/merrors"
	"grimm.is/mavproxy/internal/message"
	"grimm.is/mavproxy/internal/rules"
)

// isUnset reports whether an optional cty.Value-typed attribute was left
// out of the source document entirely.
func isUnset(v cty.Value) bool {
	return v == cty.NilVal || v.Type() == cty.NilType
}

// fieldsToRecord converts an HCL object literal (as decoded into a raw
// cty.Value by a `fields` attribute) into the field-path -> message.Value
// map used by conditions and ack specs (§4.4, §4.8). An absent or null
// attribute yields an empty map, not an error.
func fieldsToRecord(v cty.Value) (map[string]message.Value, error) {
	out := map[string]message.Value{}
	if isUnset(v) || v.IsNull() {
		return out, nil
	}
	t := v.Type()
	if !t.IsObjectType() && !t.IsMapType() {
		return nil, fmt.Errorf("fields must be an object literal, got %s", t.FriendlyName())
	}
	for k, ev := range v.AsValueMap() {
		mv, err := ctyToValue(ev)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = mv
	}
	return out, nil
}

// ctyToValue converts one HCL literal into the generic message.Value
// shape (§4.2): scalars map directly; an object with a string "type" key
// is an enum record, one with a numeric "bits" key is a flags record.
func ctyToValue(v cty.Value) (message.Value, error) {
	if v.IsNull() {
		return message.Value{}, fmt.Errorf("null literal not allowed")
	}
	t := v.Type()
	switch {
	case t == cty.String:
		return message.Str(v.AsString()), nil
	case t == cty.Bool:
		return message.Bool(v.True()), nil
	case t == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			return message.Int(i), nil
		}
		f, _ := bf.Float64()
		return message.Float(f), nil
	case t.IsObjectType() || t.IsMapType():
		m := v.AsValueMap()
		if tv, ok := m["type"]; ok && !tv.IsNull() && tv.Type() == cty.String {
			return message.Enum(tv.AsString()), nil
		}
		if bv, ok := m["bits"]; ok && !bv.IsNull() && bv.Type() == cty.Number {
			bf := bv.AsBigFloat()
			bi, _ := bf.Int64()
			return message.Flags(uint64(bi)), nil
		}
		return message.Value{}, fmt.Errorf("object literal must be {type=...} or {bits=...}")
	default:
		return message.Value{}, fmt.Errorf("unsupported literal type %s", t.FriendlyName())
	}
}

// direction parses a "gcs_to_router" | "router_to_gcs" | "both" string,
// defaulting to "both" when empty (§3).
func direction(s string) (rules.Direction, error) {
	switch rules.Direction(s) {
	case "":
		return rules.DirBoth, nil
	case rules.DirGCSToRouter, rules.DirRouterToGCS, rules.DirBoth:
		return rules.Direction(s), nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// toRule converts one parsed RuleBlock into a *rules.Rule. Structural
// validation (unresolved refs, missing action parameters) happens later
// in rules.NewStore; this step only rejects malformed literals.
func toRule(b RuleBlock) (*rules.Rule, error) {
	dir, err := direction(b.Direction)
	if err != nil {
		return nil, merrors.Wrap(err, merrors.KindConfig, fmt.Sprintf("rule %q: direction", b.Name))
	}

	actions := make([]rules.Action, 0, len(b.Actions))
	for _, a := range b.Actions {
		actions = append(actions, rules.Action(a))
	}

	enabled := true
	if b.EnabledByDefault != nil {
		enabled = *b.EnabledByDefault
	}

	r := rules.NewRule(b.Name, b.MessageType, b.Priority, dir, actions, enabled)
	r.ModifierRef = b.ModifierRef
	r.PluginRefs = b.PluginRefs
	r.DelaySeconds = b.DelaySeconds

	if b.Condition != nil {
		fields, err := fieldsToRecord(b.Condition.Fields)
		if err != nil {
			return nil, merrors.Wrap(err, merrors.KindConfig, fmt.Sprintf("rule %q: condition", b.Name))
		}
		cond := make(rules.Condition, len(fields))
		for k, v := range fields {
			cond[k] = v
		}
		r.Conditions = cond
	}

	if b.Batch != nil {
		r.Batch = &rules.BatchSpec{
			Key:            b.Batch.Key,
			Count:          b.Batch.Count,
			SystemIDField:  b.Batch.SystemIDField,
			TimeoutSeconds: b.Batch.TimeoutSeconds,
			TimeoutForward: b.Batch.TimeoutForward,
		}
	}

	if b.Ack != nil {
		fields, err := fieldsToRecord(b.Ack.Fields)
		if err != nil {
			return nil, merrors.Wrap(err, merrors.KindConfig, fmt.Sprintf("rule %q: ack fields", b.Name))
		}
		r.Ack = &rules.AckSpec{
			MessageType:          b.Ack.MessageType,
			SourceSystemField:    b.Ack.SourceSystemField,
			SourceComponentField: b.Ack.SourceComponentField,
			Fields:               fields,
			CopyFields:           b.Ack.CopyFields,
		}
	}

	if b.Trigger != nil {
		onMatch := true
		if b.Trigger.OnMatch != nil {
			onMatch = *b.Trigger.OnMatch
		}
		r.Trigger = &rules.TriggerSpec{
			OnMatch:         onMatch,
			OnComplete:      b.Trigger.OnComplete,
			ActivateRules:   b.Trigger.ActivateRules,
			DeactivateRules: b.Trigger.DeactivateRules,
			DurationSeconds: b.Trigger.DurationSeconds,
		}
	}

	return r, nil
}

// ToRuleset converts every rule block in doc into *rules.Rule values, in
// document order. It does not build the Store (and so does not run
// cross-rule validation) — callers pass the result to rules.NewStore.
func ToRuleset(doc *Document) ([]*rules.Rule, error) {
	out := make([]*rules.Rule, 0, len(doc.Rules))
	for _, b := range doc.Rules {
		r, err := toRule(b)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
