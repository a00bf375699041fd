// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dialect

import (
	"reflect"

	"grimm.is/mavproxy/internal/message"
)

// toView builds the generic payload-field record for structVal, per
// §4.2: enum fields become {"type": name} records, bitflag fields
// become {"bits": n} records, everything else is a plain scalar/list.
func toView(structVal reflect.Value) message.Value {
	fields := map[string]message.Value{}
	for _, spec := range fieldSpecsOf(structVal.Type()) {
		fields[spec.name] = fieldToValue(structVal.Field(spec.index), spec)
	}
	return message.Rec(fields)
}

func fieldToValue(v reflect.Value, spec fieldSpec) message.Value {
	if v.Kind() == reflect.Array {
		items := make([]message.Value, v.Len())
		for i := 0; i < v.Len(); i++ {
			items[i] = scalarToValue(v.Index(i), spec)
		}
		return message.List(items...)
	}
	return scalarToValue(v, spec)
}

func scalarToValue(v reflect.Value, spec fieldSpec) message.Value {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return message.Float(v.Float())
	case reflect.String:
		return message.Str(v.String())
	default:
		var iv int64
		if v.CanInt() {
			iv = v.Int()
		} else {
			iv = int64(v.Uint())
		}
		if spec.isBits {
			return message.Flags(uint64(iv))
		}
		if spec.isEnum {
			if name, ok := enumName(v.Type().Name(), iv); ok {
				return message.Enum(name)
			}
		}
		return message.Int(iv)
	}
}

// applyView writes a (possibly modifier-edited) generic field record
// back onto structVal's fields, for re-encoding after a `modify` step.
// Fields absent from the record, or whose shape doesn't match, are left
// at their current (pre-modification) value — a modifier is only
// expected to touch the fields it cares about.
func applyView(structVal reflect.Value, fields message.Value) {
	if fields.Kind != message.KindRecord {
		return
	}
	for _, spec := range fieldSpecsOf(structVal.Type()) {
		val, ok := fields.Record[spec.name]
		if !ok {
			continue
		}
		applyFieldValue(structVal.Field(spec.index), spec, val)
	}
}

func applyFieldValue(v reflect.Value, spec fieldSpec, val message.Value) {
	if v.Kind() == reflect.Array {
		if val.Kind != message.KindList {
			return
		}
		n := v.Len()
		if len(val.List) < n {
			n = len(val.List)
		}
		for i := 0; i < n; i++ {
			applyScalarValue(v.Index(i), spec, val.List[i])
		}
		return
	}
	applyScalarValue(v, spec, val)
}

func applyScalarValue(v reflect.Value, spec fieldSpec, val message.Value) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		if val.Kind == message.KindFloat {
			v.SetFloat(val.Float)
		} else if val.Kind == message.KindInt {
			v.SetFloat(float64(val.Int))
		}
	case reflect.String:
		if val.Kind == message.KindString {
			v.SetString(val.Str)
		}
	default:
		iv, ok := resolveIntValue(v, spec, val)
		if !ok {
			return
		}
		if v.CanInt() {
			v.SetInt(iv)
		} else {
			v.SetUint(uint64(iv))
		}
	}
}

func resolveIntValue(v reflect.Value, spec fieldSpec, val message.Value) (int64, bool) {
	if spec.isBits {
		if bits, ok := val.Bits(); ok {
			return int64(bits), true
		}
	}
	if spec.isEnum {
		if name, ok := val.EnumType(); ok {
			if iv, ok := enumValue(v.Type().Name(), name); ok {
				return iv, true
			}
			return 0, false
		}
	}
	if val.Kind == message.KindInt {
		return val.Int, true
	}
	return 0, false
}
