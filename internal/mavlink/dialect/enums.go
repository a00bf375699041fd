// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package dialect implements a representative slice of the MAVLink
// message catalog: typed message structs plus the reflection-driven
// encoder/decoder that maps them to and from the wire and to and from
// the generic field view (§3, §4.2, §9 "dynamically-typed message
// access"). It is not the full 300+ message dialect; it covers enough
// variety (scalars, enums, bitflags, strings, arrays, extension fields)
// to exercise every path the rule engine, ACK synthesizer, and batch
// extractor can address.
package dialect

import "sync"

var (
	enumMu       sync.RWMutex
	enumNames    = map[string]map[int64]string{} // enum type name -> value -> variant name
	enumValues   = map[string]map[string]int64{}  // enum type name -> variant name -> value
)

// RegisterEnum records the variant names for an enum type, keyed by the
// Go type's reflect name (e.g. "MAVType"). Mirrors how a generated
// MAVLink dialect would emit one such table per enum.
func RegisterEnum(typeName string, variants map[int64]string) {
	enumMu.Lock()
	defer enumMu.Unlock()
	names := make(map[int64]string, len(variants))
	values := make(map[string]int64, len(variants))
	for v, n := range variants {
		names[v] = n
		values[n] = v
	}
	enumNames[typeName] = names
	enumValues[typeName] = values
}

// enumName returns the variant name for a value of the named enum type.
func enumName(typeName string, value int64) (string, bool) {
	enumMu.RLock()
	defer enumMu.RUnlock()
	names, ok := enumNames[typeName]
	if !ok {
		return "", false
	}
	n, ok := names[value]
	return n, ok
}

// enumValue returns the integer value for a variant name of the named
// enum type.
func enumValue(typeName, variant string) (int64, bool) {
	enumMu.RLock()
	defer enumMu.RUnlock()
	values, ok := enumValues[typeName]
	if !ok {
		return 0, false
	}
	v, ok := values[variant]
	return v, ok
}

// MAVType is the MAV_TYPE enum (vehicle/component type).
type MAVType uint8

// MAVAutopilot is the MAV_AUTOPILOT enum (autopilot class).
type MAVAutopilot uint8

// MAVState is the MAV_STATE enum (system state).
type MAVState uint8

// MAVResult is the MAV_RESULT enum (command ack result).
type MAVResult uint8

// MAVCmd is the MAV_CMD enum (command identifiers for COMMAND_LONG).
type MAVCmd uint16

func init() {
	RegisterEnum("MAVType", map[int64]string{
		0:  "MAV_TYPE_GENERIC",
		1:  "MAV_TYPE_FIXED_WING",
		2:  "MAV_TYPE_QUADROTOR",
		13: "MAV_TYPE_HEXAROTOR",
	})
	RegisterEnum("MAVAutopilot", map[int64]string{
		0:  "MAV_AUTOPILOT_GENERIC",
		3:  "MAV_AUTOPILOT_ARDUPILOTMEGA",
		12: "MAV_AUTOPILOT_PX4",
	})
	RegisterEnum("MAVState", map[int64]string{
		0: "MAV_STATE_UNINIT",
		3: "MAV_STATE_STANDBY",
		4: "MAV_STATE_ACTIVE",
		5: "MAV_STATE_CRITICAL",
	})
	RegisterEnum("MAVResult", map[int64]string{
		0: "MAV_RESULT_ACCEPTED",
		1: "MAV_RESULT_TEMPORARILY_REJECTED",
		2: "MAV_RESULT_DENIED",
		3: "MAV_RESULT_UNSUPPORTED",
		4: "MAV_RESULT_FAILED",
		5: "MAV_RESULT_IN_PROGRESS",
	})
	RegisterEnum("MAVCmd", map[int64]string{
		400: "MAV_CMD_COMPONENT_ARM_DISARM",
		176: "MAV_CMD_DO_SET_MODE",
		20:  "MAV_CMD_NAV_RETURN_TO_LAUNCH",
	})
}

// Bitflag markers: MAV_MODE_FLAG bits used by the "always armed" style
// heartbeat modifiers in scenario S5.
const (
	MAVModeFlagSafetyArmed uint32 = 1 << 7 // bit 128: MAV_MODE_FLAG_SAFETY_ARMED
)
