// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dialect

// Heartbeat (id 0) announces presence, vehicle type, and armed state.
// Field order and crc-extra match the reference dialect's test vectors.
type Heartbeat struct {
	Type           MAVType      `mavenum:"uint8"`
	Autopilot      MAVAutopilot `mavenum:"uint8"`
	BaseMode       uint8        `mavbits:"true"`
	CustomMode     uint32
	SystemStatus   MAVState `mavenum:"uint8"`
	MavlinkVersion uint8
}

// CommandLong (id 76) requests the target execute a MAV_CMD.
type CommandLong struct {
	TargetSystem    uint8
	TargetComponent uint8
	Command         MAVCmd `mavenum:"uint16"`
	Confirmation    uint8
	Param1          float32
	Param2          float32
	Param3          float32
	Param4          float32
	Param5          float32
	Param6          float32
	Param7          float32
}

// CommandAck (id 77) reports the outcome of a CommandLong.
type CommandAck struct {
	Command         MAVCmd    `mavenum:"uint16"`
	Result          MAVResult `mavenum:"uint8"`
	Progress        uint8     `mavext:"true"`
	ResultParam2    int32     `mavext:"true"`
	TargetSystem    uint8     `mavext:"true"`
	TargetComponent uint8     `mavext:"true"`
}

// SysStatus (id 1) reports onboard sensor and power health.
type SysStatus struct {
	OnboardControlSensorsPresent uint32 `mavbits:"true"`
	OnboardControlSensorsEnabled uint32 `mavbits:"true"`
	OnboardControlSensorsHealth  uint32 `mavbits:"true"`
	Load                         uint16
	VoltageBattery               uint16
	CurrentBattery               int16
	BatteryRemaining             int8
}

// GPSRawInt (id 24) is raw fixed-point GPS data.
type GPSRawInt struct {
	TimeUsec          uint64
	Lat               int32
	Lon               int32
	Alt               int32
	Eph               uint16
	Epv               uint16
	Vel               uint16
	Cog               uint16
	FixType           uint8 `mavenum:"uint8"`
	SatellitesVisible uint8
}

// Attitude (id 30) reports vehicle orientation.
type Attitude struct {
	TimeBootMs uint32
	Roll       float32
	Pitch      float32
	Yaw        float32
	Rollspeed  float32
	Pitchspeed float32
	Yawspeed   float32
}

// ParamSet (id 23) requests a parameter be changed.
type ParamSet struct {
	TargetSystem    uint8
	TargetComponent uint8
	ParamId         string `mavlen:"16"`
	ParamValue      float32
	ParamType       uint8 `mavenum:"uint8"`
}

// ParamValue (id 22) reports the current value of a parameter.
type ParamValue struct {
	ParamId    string `mavlen:"16"`
	ParamValue float32
	ParamType  uint8 `mavenum:"uint8"`
	ParamCount uint16
	ParamIndex uint16
}

func init() {
	Register(0, "HEARTBEAT", 50, Heartbeat{})
	Register(76, "COMMAND_LONG", 152, CommandLong{})
	Register(77, "COMMAND_ACK", 143, CommandAck{})
	Register(1, "SYS_STATUS", 124, SysStatus{})
	Register(24, "GPS_RAW_INT", 24, GPSRawInt{})
	Register(30, "ATTITUDE", 39, Attitude{})
	Register(23, "PARAM_SET", 168, ParamSet{})
	Register(22, "PARAM_VALUE", 220, ParamValue{})
}
