// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/mavproxy/internal/message"
	"grimm.is/mavproxy/internal/rules"
)

func commandLongMessage() *message.Message {
	h := message.Header{Version: 2, SystemID: 5, ComponentID: 1}
	fields := message.Rec(map[string]message.Value{
		"target_system":    message.Int(5),
		"target_component": message.Int(1),
		"command":          message.Enum("MAV_CMD_COMPONENT_ARM_DISARM"),
	})
	return message.NewMessage(h, "COMMAND_LONG", nil, fields)
}

func TestSynthesizeBuildsAckWithLiteralAndCopiedFields(t *testing.T) {
	spec := &rules.AckSpec{
		MessageType: "COMMAND_ACK",
		Fields: map[string]message.Value{
			"result": message.Enum("MAV_RESULT_ACCEPTED"),
		},
		CopyFields: map[string]string{
			"target_system": "target_system",
		},
	}
	original := commandLongMessage()

	ackMsg, payload, err := Synthesize(spec, original, 3, true)
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
	assert.Equal(t, "COMMAND_ACK", ackMsg.Type)
	assert.Equal(t, uint8(5), ackMsg.Header.SystemID, "defaults to header.system_id of original")
	assert.Equal(t, uint8(3), ackMsg.Header.Seq)

	v, ok := ackMsg.Lookup("result.type")
	require.True(t, ok)
	assert.Equal(t, "MAV_RESULT_ACCEPTED", v.Str)

	v, ok = ackMsg.Lookup("target_system")
	require.True(t, ok)
	assert.Equal(t, int64(5), v.Int)
}

func TestSynthesizeUsesConfiguredSourceFields(t *testing.T) {
	spec := &rules.AckSpec{
		MessageType:          "COMMAND_ACK",
		SourceSystemField:    "target_system",
		SourceComponentField: "target_component",
	}
	original := commandLongMessage()

	ackMsg, _, err := Synthesize(spec, original, 0, true)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), ackMsg.Header.SystemID)
	assert.Equal(t, uint8(1), ackMsg.Header.ComponentID)
}

func TestSynthesizeErrorsOnMissingCopySource(t *testing.T) {
	spec := &rules.AckSpec{
		MessageType: "COMMAND_ACK",
		CopyFields:  map[string]string{"result": "does_not_exist"},
	}
	_, _, err := Synthesize(spec, commandLongMessage(), 0, true)
	assert.Error(t, err)
}

func TestSynthesizeErrorsOnUnknownMessageType(t *testing.T) {
	spec := &rules.AckSpec{MessageType: "NOT_A_REAL_TYPE"}
	_, _, err := Synthesize(spec, commandLongMessage(), 0, true)
	assert.Error(t, err)
}
