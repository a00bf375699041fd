// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/mavproxy/internal/frame"
	"grimm.is/mavproxy/internal/mavlink/dialect"
	"grimm.is/mavproxy/internal/message"
	"grimm.is/mavproxy/internal/modhost"
	"grimm.is/mavproxy/internal/rules"
)

type sent struct {
	dir rules.Direction
	raw []byte
}

type recordingSender struct {
	mu  sync.Mutex
	out []sent
}

func (s *recordingSender) Send(dir rules.Direction, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = append(s.out, sent{dir, append([]byte(nil), raw...)})
	return nil
}

func (s *recordingSender) all() []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sent(nil), s.out...)
}

func heartbeatFrame(t *testing.T, systemID uint8, customMode uint32) []byte {
	t.Helper()
	hb := &dialect.Heartbeat{Type: 2, Autopilot: 3, BaseMode: 1, CustomMode: customMode, SystemStatus: 4, MavlinkVersion: 3}
	payload, err := dialect.EncodePayload(hb, false)
	require.NoError(t, err)
	f := &frame.Frame{Version: 1, Seq: 1, SystemID: systemID, ComponentID: 1, MessageID: 0, Payload: payload}
	raw, err := frame.Serialize(f)
	require.NoError(t, err)
	return raw
}

func TestProcessForwardsUnmodifiedWhenNoRuleMatches(t *testing.T) {
	store, err := rules.NewStore(nil)
	require.NoError(t, err)
	sender := &recordingSender{}
	p := New(store, modhost.NewHost(), sender)

	raw := heartbeatFrame(t, 1, 5)
	p.Process(rules.DirGCSToRouter, raw)

	got := sender.all()
	require.Len(t, got, 1)
	assert.Equal(t, rules.DirGCSToRouter, got[0].dir)
	assert.Equal(t, raw, got[0].raw)
}

func TestProcessBlockActionDropsPacket(t *testing.T) {
	r := rules.NewRule("block-it", "HEARTBEAT", 1, rules.DirBoth, []rules.Action{rules.ActionBlock}, true)
	store, err := rules.NewStore([]*rules.Rule{r})
	require.NoError(t, err)
	sender := &recordingSender{}
	p := New(store, modhost.NewHost(), sender)

	p.Process(rules.DirGCSToRouter, heartbeatFrame(t, 1, 0))
	assert.Empty(t, sender.all())
}

func TestProcessModifyThenForwardAppliesEdit(t *testing.T) {
	r := rules.NewRule("bump", "HEARTBEAT", 1, rules.DirBoth, []rules.Action{rules.ActionModify, rules.ActionForward}, true)
	r.ModifierRef = "bump-mode"
	store, err := rules.NewStore([]*rules.Rule{r})
	require.NoError(t, err)

	host := modhost.NewHost()
	host.Register("bump-mode", modhost.ModifierFunc(func(ctx modhost.Context) (modhost.Result, error) {
		edited := message.Rec(map[string]message.Value{"custom_mode": message.Int(77)})
		return modhost.Result{Fields: edited}, nil
	}))

	sender := &recordingSender{}
	p := New(store, host, sender)
	p.Process(rules.DirGCSToRouter, heartbeatFrame(t, 1, 1))

	got := sender.all()
	require.Len(t, got, 1)
	fr, _, err := frame.Parse(got[0].raw)
	require.NoError(t, err)
	_, typed, _, err := dialect.DecodePayload(fr.MessageID, fr.Payload, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(77), typed.(*dialect.Heartbeat).CustomMode)
}

func TestProcessDelayResumesAfterWait(t *testing.T) {
	delaySeconds := 0.01
	r := rules.NewRule("slow", "HEARTBEAT", 1, rules.DirBoth, []rules.Action{rules.ActionDelay, rules.ActionForward}, true)
	r.DelaySeconds = &delaySeconds
	store, err := rules.NewStore([]*rules.Rule{r})
	require.NoError(t, err)

	sender := &recordingSender{}
	p := New(store, modhost.NewHost(), sender)
	p.Process(rules.DirGCSToRouter, heartbeatFrame(t, 1, 0))

	assert.Empty(t, sender.all(), "forward must not happen before the delay elapses")
	require.Eventually(t, func() bool { return len(sender.all()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestProcessBatchReleasesOnThreshold(t *testing.T) {
	r := rules.NewRule("grp", "HEARTBEAT", 1, rules.DirBoth, []rules.Action{rules.ActionBatch, rules.ActionForward}, true)
	r.Batch = &rules.BatchSpec{Key: "k", Count: 2, TimeoutSeconds: 5}
	store, err := rules.NewStore([]*rules.Rule{r})
	require.NoError(t, err)

	sender := &recordingSender{}
	p := New(store, modhost.NewHost(), sender)

	p.Process(rules.DirGCSToRouter, heartbeatFrame(t, 1, 0))
	assert.Empty(t, sender.all(), "below quorum")

	p.Process(rules.DirGCSToRouter, heartbeatFrame(t, 2, 0))
	got := sender.all()
	assert.Len(t, got, 2, "quorum reached releases every queued packet")
}

func TestProcessDisabledRuleIsSkipped(t *testing.T) {
	r := rules.NewRule("off", "HEARTBEAT", 1, rules.DirBoth, []rules.Action{rules.ActionBlock}, false)
	store, err := rules.NewStore([]*rules.Rule{r})
	require.NoError(t, err)

	sender := &recordingSender{}
	p := New(store, modhost.NewHost(), sender)
	raw := heartbeatFrame(t, 1, 0)
	p.Process(rules.DirGCSToRouter, raw)

	got := sender.all()
	require.Len(t, got, 1, "disabled rule must not match; packet forwards unmodified")
	assert.Equal(t, raw, got[0].raw)
}

func TestProcessParseFailureForwardsRawOnSameDirection(t *testing.T) {
	store, err := rules.NewStore(nil)
	require.NoError(t, err)
	sender := &recordingSender{}
	p := New(store, modhost.NewHost(), sender)

	garbage := []byte{0x00, 0x01, 0x02}
	p.Process(rules.DirRouterToGCS, garbage)

	got := sender.all()
	require.Len(t, got, 1)
	assert.Equal(t, rules.DirRouterToGCS, got[0].dir)
	assert.Equal(t, garbage, got[0].raw)
}

func TestProcessAckEmitsOnOppositeDirectionBeforeForward(t *testing.T) {
	r := rules.NewRule("armer", "COMMAND_LONG", 1, rules.DirBoth, []rules.Action{rules.ActionForward}, true)
	r.Ack = &rules.AckSpec{
		MessageType:       "COMMAND_ACK",
		SourceSystemField: "target_system",
		Fields: map[string]message.Value{
			"command": message.Enum("MAV_CMD_COMPONENT_ARM_DISARM"),
			"result":  message.Enum("MAV_RESULT_ACCEPTED"),
		},
	}
	store, err := rules.NewStore([]*rules.Rule{r})
	require.NoError(t, err)

	sender := &recordingSender{}
	p := New(store, modhost.NewHost(), sender)

	cmd := &dialect.CommandLong{TargetSystem: 9, TargetComponent: 1, Command: 400, Param1: 1}
	payload, err := dialect.EncodePayload(cmd, true)
	require.NoError(t, err)
	f := &frame.Frame{Version: 2, Seq: 1, SystemID: 1, ComponentID: 1, MessageID: 76, Payload: payload}
	raw, err := frame.Serialize(f)
	require.NoError(t, err)

	p.Process(rules.DirGCSToRouter, raw)

	got := sender.all()
	require.Len(t, got, 2, "ack then forward")
	assert.Equal(t, rules.DirRouterToGCS, got[0].dir, "ack goes back toward the sender")
	assert.Equal(t, rules.DirGCSToRouter, got[1].dir, "forward continues toward the destination")

	ackFrame, _, err := frame.Parse(got[0].raw)
	require.NoError(t, err)
	assert.Equal(t, uint32(77), ackFrame.MessageID)
}
