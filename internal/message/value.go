// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package message provides the two message surfaces used across the
// pipeline (§4.2): a generic, self-describing value tree for schema-less
// field addressing, and the Message envelope that pairs a generic view
// with the frame header it was decoded from.
package message

import "strconv"

// Kind identifies which shape a Value holds.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindString
	KindList
	KindRecord
)

// Value is the generic, recursive representation used by the condition
// matcher, ACK synthesizer, and batch extractor to address message fields
// by string path without knowing the message type at build time.
//
// Enum fields are represented as a Record with a "type" key naming the
// variant; bitflag fields as a Record with a "bits" key holding the
// underlying integer. There is no separate Enum/Flags Kind: both are
// just records with a conventional shape, per §4.2.
type Value struct {
	Kind Kind

	Int    int64
	Float  float64
	Bool   bool
	Str    string
	List   []Value
	Record map[string]Value
}

func Int(v int64) Value          { return Value{Kind: KindInt, Int: v} }
func Float(v float64) Value      { return Value{Kind: KindFloat, Float: v} }
func Bool(v bool) Value          { return Value{Kind: KindBool, Bool: v} }
func Str(v string) Value         { return Value{Kind: KindString, Str: v} }
func List(items ...Value) Value  { return Value{Kind: KindList, List: items} }
func Rec(fields map[string]Value) Value {
	return Value{Kind: KindRecord, Record: fields}
}

// Enum builds the conventional enum shape: {"type": name}.
func Enum(name string) Value {
	return Rec(map[string]Value{"type": Str(name)})
}

// Flags builds the conventional bitflag shape: {"bits": bits}.
func Flags(bits uint64) Value {
	return Rec(map[string]Value{"bits": Int(int64(bits))})
}

// EnumType returns the variant name for a value shaped like an enum,
// and whether v was in fact such a record.
func (v Value) EnumType() (string, bool) {
	if v.Kind != KindRecord {
		return "", false
	}
	t, ok := v.Record["type"]
	if !ok || t.Kind != KindString {
		return "", false
	}
	return t.Str, true
}

// Bits returns the underlying integer for a value shaped like a bitflag
// record, and whether v was in fact such a record.
func (v Value) Bits() (uint64, bool) {
	if v.Kind != KindRecord {
		return 0, false
	}
	b, ok := v.Record["bits"]
	if !ok || b.Kind != KindInt {
		return 0, false
	}
	return uint64(b.Int), true
}

// Path resolves a dotted field path ("target_system", "base_mode.bits",
// "header.system_id") against root, descending through records. It
// returns false if any path segment is missing or root is not a record
// at that point.
func Path(root Value, path string) (Value, bool) {
	cur := root
	start := 0
	for i := 0; i <= len(path); i++ {
		if i < len(path) && path[i] != '.' {
			continue
		}
		seg := path[start:i]
		if seg == "" {
			return Value{}, false
		}
		if cur.Kind != KindRecord {
			return Value{}, false
		}
		next, ok := cur.Record[seg]
		if !ok {
			return Value{}, false
		}
		cur = next
		start = i + 1
	}
	return cur, true
}

// String renders a Value for logging/debugging purposes.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindString:
		return v.Str
	case KindList:
		return "[list]"
	default:
		return "{record}"
	}
}
