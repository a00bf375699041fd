// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"testing"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"grimm.is/mavproxy/internal/message"
	"grimm.is/mavproxy/internal/rules"
)

const sampleHCL = `
network {
  gcs_listen_addr = "127.0.0.1:14550"
  router_addr     = "127.0.0.1:14551"
}

logging {
  level = "info"
}

plugins {
  dir = "./plugins"
  load = {
    logger = "logger.lua"
  }
}

modifiers {
  dir = "./modifiers"
  load = {
    always_armed = "always_armed.lua"
  }
}

rule "arm_delay" {
  message_type = "COMMAND_LONG"
  priority     = 10
  direction    = "gcs_to_router"
  actions      = ["delay", "forward"]
  delay_seconds = 2.0

  condition {
    fields = {
      param1 = 1.5
    }
  }

  ack {
    message_type = "COMMAND_ACK"
    fields = {
      result = { type = "MAV_RESULT_ACCEPTED" }
    }
    copy_fields = {
      command = "command"
    }
  }

  trigger {
    activate_rules   = ["always_armed"]
    duration_seconds = 60
  }
}

rule "always_armed" {
  message_type       = "HEARTBEAT"
  priority            = 5
  direction           = "router_to_gcs"
  actions             = ["modify", "forward"]
  modifier_ref        = "always_armed"
  enabled_by_default  = false
}
`

func decodeSample(t *testing.T) *Document {
	t.Helper()
	var doc Document
	require.NoError(t, hclsimple.Decode("sample.hcl", []byte(sampleHCL), nil, &doc))
	return &doc
}

func TestDecodeNetworkAndAssets(t *testing.T) {
	doc := decodeSample(t)
	require.Equal(t, "127.0.0.1:14550", doc.Network.GCSListenAddr)
	require.Equal(t, "127.0.0.1:14551", doc.Network.RouterAddr)
	require.Equal(t, "info", doc.Logging.Level)
	require.Equal(t, "logger.lua", doc.Plugins.Load["logger"])
	require.Equal(t, "always_armed.lua", doc.Modifiers.Load["always_armed"])
}

func TestToRulesetBuildsConditionAndAck(t *testing.T) {
	doc := decodeSample(t)
	ruleset, err := ToRuleset(doc)
	require.NoError(t, err)
	require.Len(t, ruleset, 2)

	armDelay := ruleset[0]
	require.Equal(t, "arm_delay", armDelay.Name)
	require.Equal(t, rules.DirGCSToRouter, armDelay.Direction)
	require.Equal(t, []rules.Action{rules.ActionDelay, rules.ActionForward}, armDelay.Actions)
	require.NotNil(t, armDelay.DelaySeconds)
	require.InDelta(t, 2.0, *armDelay.DelaySeconds, 1e-9)

	require.Equal(t, message.Float(1.5), armDelay.Conditions["param1"])

	require.NotNil(t, armDelay.Ack)
	require.Equal(t, "COMMAND_ACK", armDelay.Ack.MessageType)
	require.Equal(t, message.Enum("MAV_RESULT_ACCEPTED"), armDelay.Ack.Fields["result"])
	require.Equal(t, "command", armDelay.Ack.CopyFields["command"])

	require.NotNil(t, armDelay.Trigger)
	require.True(t, armDelay.Trigger.OnMatch)
	require.Equal(t, []string{"always_armed"}, armDelay.Trigger.ActivateRules)
	require.NotNil(t, armDelay.Trigger.DurationSeconds)
	require.InDelta(t, 60.0, *armDelay.Trigger.DurationSeconds, 1e-9)

	alwaysArmed := ruleset[1]
	require.False(t, alwaysArmed.Enabled())
}

func TestToRulesetBuildsValidStore(t *testing.T) {
	doc := decodeSample(t)
	ruleset, err := ToRuleset(doc)
	require.NoError(t, err)

	store, err := rules.NewStore(ruleset)
	require.NoError(t, err)
	require.Len(t, store.Rules(), 2)
	// Higher priority (10) sorts first.
	require.Equal(t, "arm_delay", store.Rules()[0].Name)
}

func TestFieldsToRecordRejectsNonObject(t *testing.T) {
	_, err := fieldsToRecord(cty.StringVal("nope"))
	require.Error(t, err)
}
