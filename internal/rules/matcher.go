// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package rules

import (
	"math"

	"grimm.is/mavproxy/internal/message"
)

// floatEpsilon is the tolerance for float condition comparisons (§4.4,
// invariant 4).
const floatEpsilon = 1e-6

// Matches reports whether msg satisfies every entry in cond. A path that
// does not resolve against msg's view fails the whole condition (§4.4).
func (cond Condition) Matches(msg *message.Message) bool {
	if len(cond) == 0 {
		return true
	}
	view := msg.View()
	for path, expected := range cond {
		actual, ok := message.Path(view, path)
		if !ok {
			return false
		}
		if !valuesMatch(expected, actual) {
			return false
		}
	}
	return true
}

func valuesMatch(expected, actual message.Value) bool {
	switch expected.Kind {
	case message.KindInt:
		if actual.Kind == message.KindInt {
			return actual.Int == expected.Int
		}
		if bits, ok := actual.Bits(); ok {
			return bits == uint64(expected.Int)
		}
		return false
	case message.KindFloat:
		return actual.Kind == message.KindFloat && math.Abs(actual.Float-expected.Float) <= floatEpsilon
	case message.KindBool:
		return actual.Kind == message.KindBool && actual.Bool == expected.Bool
	case message.KindString:
		return actual.Kind == message.KindString && actual.Str == expected.Str
	case message.KindRecord:
		if name, ok := expected.EnumType(); ok {
			aname, ok2 := actual.EnumType()
			return ok2 && aname == name
		}
		if bits, ok := expected.Bits(); ok {
			if abits, ok2 := actual.Bits(); ok2 {
				return abits == bits
			}
			return false
		}
		return false
	default:
		return false
	}
}
