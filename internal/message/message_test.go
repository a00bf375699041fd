// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathResolvesNestedAndHeaderFields(t *testing.T) {
	h := Header{Version: 2, Seq: 7, SystemID: 101, ComponentID: 1, MessageID: 76}
	fields := Rec(map[string]Value{
		"target_system": Int(101),
		"base_mode":     Flags(0b1001),
		"orientation":   Enum("MAV_SENSOR_ROTATION_NONE"),
	})
	m := NewMessage(h, "COMMAND_LONG", nil, fields)

	v, ok := m.Lookup("target_system")
	require.True(t, ok)
	assert.Equal(t, int64(101), v.Int)

	v, ok = m.Lookup("base_mode.bits")
	require.True(t, ok)
	assert.Equal(t, int64(9), v.Int)

	v, ok = m.Lookup("header.system_id")
	require.True(t, ok)
	assert.Equal(t, int64(101), v.Int)

	v, ok = m.Lookup("orientation.type")
	require.True(t, ok)
	assert.Equal(t, "MAV_SENSOR_ROTATION_NONE", v.Str)
}

func TestPathMissingReturnsFalse(t *testing.T) {
	m := NewMessage(Header{}, "HEARTBEAT", nil, Rec(map[string]Value{"a": Int(1)}))
	_, ok := m.Lookup("nonexistent")
	assert.False(t, ok)
	_, ok = m.Lookup("a.too_deep")
	assert.False(t, ok)
}

func TestSetFieldDoesNotTouchHeader(t *testing.T) {
	m := NewMessage(Header{SystemID: 1}, "HEARTBEAT", nil, Rec(map[string]Value{}))
	m.SetField("header", Int(5))
	m.SetField("type", Str("x")) // a payload field literally named "type" is allowed
	m.SetField("custom_mode", Int(42))

	v, ok := m.Lookup("custom_mode")
	require.True(t, ok)
	assert.Equal(t, int64(42), v.Int)

	v, ok = m.Lookup("type")
	require.True(t, ok)
	assert.Equal(t, "x", v.Str)

	v, ok = m.Lookup("header.system_id")
	require.True(t, ok)
	assert.Equal(t, int64(1), v.Int, "header must remain frame-derived, not overwritable via SetField")
}

func TestBitsAndEnumTypeHelpers(t *testing.T) {
	f := Flags(128)
	bits, ok := f.Bits()
	require.True(t, ok)
	assert.Equal(t, uint64(128), bits)

	e := Enum("ARMED")
	name, ok := e.EnumType()
	require.True(t, ok)
	assert.Equal(t, "ARMED", name)

	_, ok = Int(1).Bits()
	assert.False(t, ok)
}
