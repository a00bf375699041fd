// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dialect

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// fieldSpec describes one struct field's wire layout, derived from its
// Go type and struct tags.
type fieldSpec struct {
	index     int
	name      string // wire/json field name (snake_case of the struct field name)
	isEnum    bool
	isBits    bool
	isExt     bool
	strLen    int // 0 unless this is a fixed-length string field
	sortWidth int // scalar element width used only to order the base fields
}

// fieldSpecsOf returns structVal's fields in MAVLink wire order: base
// (non-extension) fields sorted by descending sortWidth, ties broken by
// declaration order, followed by extension fields in declaration order.
// A dialect's Go struct is declared in XML/field-definition order, but
// MAVLink packs the base payload by descending type size so that no
// alignment padding is needed on the wire; extension fields are always
// appended after the base set regardless of size.
func fieldSpecsOf(t reflect.Type) []fieldSpec {
	var base, ext []fieldSpec
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		spec := fieldSpec{index: i, name: wireName(f.Name)}
		if _, ok := f.Tag.Lookup("mavenum"); ok {
			spec.isEnum = true
		}
		if _, ok := f.Tag.Lookup("mavbits"); ok {
			spec.isBits = true
		}
		if _, ok := f.Tag.Lookup("mavext"); ok {
			spec.isExt = true
		}
		if l, ok := f.Tag.Lookup("mavlen"); ok {
			n, err := strconv.Atoi(l)
			if err == nil {
				spec.strLen = n
			}
		}
		spec.sortWidth = fieldSortWidth(f.Type)
		if spec.isExt {
			ext = append(ext, spec)
		} else {
			base = append(base, spec)
		}
	}
	sort.SliceStable(base, func(i, j int) bool { return base[i].sortWidth > base[j].sortWidth })
	return append(base, ext...)
}

// fieldSortWidth returns the byte width MAVLink uses to order a field
// within a message's base payload: the width of its scalar element
// type, not the field's total encoded size. A char[25] string sorts as
// a 1-byte field (char is 1 byte) and a [9]float32 array sorts as a
// 4-byte field, regardless of how many bytes either actually occupies
// on the wire — confirmed against the reference dialect's
// MessageChangeOperatorControl test vector, where a 25-byte Passkey
// string is emitted last, after three plain uint8 fields, not pulled to
// the front the way a naive total-size sort would place it.
func fieldSortWidth(t reflect.Type) int {
	switch t.Kind() {
	case reflect.String:
		return 1
	case reflect.Array:
		return widthOf(t.Elem().Kind())
	default:
		return widthOf(t.Kind())
	}
}

func wireName(goName string) string {
	out := make([]byte, 0, len(goName)+4)
	for i, r := range goName {
		if i > 0 && r >= 'A' && r <= 'Z' {
			out = append(out, '_')
		}
		if r >= 'A' && r <= 'Z' {
			out = append(out, byte(r-'A'+'a'))
		} else {
			out = append(out, byte(r))
		}
	}
	return string(out)
}

func widthOf(k reflect.Kind) int {
	switch k {
	case reflect.Uint8, reflect.Int8:
		return 1
	case reflect.Uint16, reflect.Int16:
		return 2
	case reflect.Uint32, reflect.Int32, reflect.Float32:
		return 4
	case reflect.Uint64, reflect.Int64, reflect.Float64:
		return 8
	default:
		return 0
	}
}

// byteWidth returns the on-wire width of a single field (scalar, string,
// or array), per its fieldSpec and reflect.Value.
func byteWidth(v reflect.Value, spec fieldSpec) int {
	switch v.Kind() {
	case reflect.String:
		return spec.strLen
	case reflect.Array:
		return v.Len() * widthOf(v.Type().Elem().Kind())
	default:
		return widthOf(v.Kind())
	}
}

// decodeField reads one field's bytes out of payload starting at cursor,
// zero-filling any bytes beyond the end of payload (MAVLink v2 trailing
// zero-byte truncation, §4.1/§9). It returns the new cursor position.
func decodeField(v reflect.Value, spec fieldSpec, payload []byte, cursor int) int {
	width := byteWidth(v, spec)
	buf := make([]byte, width)
	if cursor < len(payload) {
		copy(buf, payload[cursor:])
	}

	switch v.Kind() {
	case reflect.String:
		end := len(buf)
		for end > 0 && buf[end-1] == 0 {
			end--
		}
		v.SetString(string(buf[:end]))
	case reflect.Array:
		elemWidth := widthOf(v.Type().Elem().Kind())
		for i := 0; i < v.Len(); i++ {
			decodeScalar(v.Index(i), buf[i*elemWidth:(i+1)*elemWidth])
		}
	default:
		decodeScalar(v, buf)
	}
	return cursor + width
}

func decodeScalar(v reflect.Value, buf []byte) {
	switch v.Kind() {
	case reflect.Uint8:
		v.SetUint(uint64(buf[0]))
	case reflect.Int8:
		v.SetInt(int64(int8(buf[0])))
	case reflect.Uint16:
		v.SetUint(uint64(le16(buf)))
	case reflect.Int16:
		v.SetInt(int64(int16(le16(buf))))
	case reflect.Uint32:
		v.SetUint(uint64(le32(buf)))
	case reflect.Int32:
		v.SetInt(int64(int32(le32(buf))))
	case reflect.Uint64:
		v.SetUint(le64(buf))
	case reflect.Int64:
		v.SetInt(int64(le64(buf)))
	case reflect.Float32:
		v.SetFloat(float64(math.Float32frombits(le32(buf))))
	case reflect.Float64:
		v.SetFloat(math.Float64frombits(le64(buf)))
	}
}

func encodeField(v reflect.Value, spec fieldSpec) []byte {
	switch v.Kind() {
	case reflect.String:
		buf := make([]byte, spec.strLen)
		copy(buf, v.String())
		return buf
	case reflect.Array:
		elemWidth := widthOf(v.Type().Elem().Kind())
		buf := make([]byte, v.Len()*elemWidth)
		for i := 0; i < v.Len(); i++ {
			copy(buf[i*elemWidth:(i+1)*elemWidth], encodeScalar(v.Index(i)))
		}
		return buf
	default:
		return encodeScalar(v)
	}
}

func encodeScalar(v reflect.Value) []byte {
	switch v.Kind() {
	case reflect.Uint8:
		return []byte{byte(v.Uint())}
	case reflect.Int8:
		return []byte{byte(int8(v.Int()))}
	case reflect.Uint16:
		return putLE16(uint16(v.Uint()))
	case reflect.Int16:
		return putLE16(uint16(int16(v.Int())))
	case reflect.Uint32:
		return putLE32(uint32(v.Uint()))
	case reflect.Int32:
		return putLE32(uint32(int32(v.Int())))
	case reflect.Uint64:
		return putLE64(v.Uint())
	case reflect.Int64:
		return putLE64(uint64(v.Int()))
	case reflect.Float32:
		return putLE32(math.Float32bits(float32(v.Float())))
	case reflect.Float64:
		return putLE64(math.Float64bits(v.Float()))
	default:
		return nil
	}
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
func putLE16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func putLE32(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }
func putLE64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

// decodeInto fills structVal's fields (base fields always, extension
// fields only when isV2) from payload, in MAVLink wire order (see
// fieldSpecsOf), not struct declaration order.
func decodeInto(structVal reflect.Value, payload []byte, isV2 bool) error {
	if structVal.Kind() != reflect.Struct {
		return fmt.Errorf("dialect: decode target must be a struct, got %s", structVal.Kind())
	}
	cursor := 0
	for _, spec := range fieldSpecsOf(structVal.Type()) {
		if spec.isExt && !isV2 {
			continue
		}
		cursor = decodeField(structVal.Field(spec.index), spec, payload, cursor)
	}
	return nil
}

// encodeFrom serializes structVal's fields (base fields always, extension
// fields only when isV2) into wire bytes, in MAVLink wire order (see
// fieldSpecsOf), applying MAVLink 2's trailing zero-byte truncation when
// isV2.
func encodeFrom(structVal reflect.Value, isV2 bool) ([]byte, error) {
	if structVal.Kind() != reflect.Struct {
		return nil, fmt.Errorf("dialect: encode source must be a struct, got %s", structVal.Kind())
	}
	var out []byte
	for _, spec := range fieldSpecsOf(structVal.Type()) {
		if spec.isExt && !isV2 {
			continue
		}
		out = append(out, encodeField(structVal.Field(spec.index), spec)...)
	}
	if isV2 {
		out = trimTrailingZerosV2(out)
	}
	return out, nil
}

func trimTrailingZerosV2(buf []byte) []byte {
	i := len(buf)
	for i > 1 && buf[i-1] == 0 {
		i--
	}
	return buf[:i]
}
