// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package modhost

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/mavproxy/internal/message"
)

func TestInvokeAppliesModifierEdits(t *testing.T) {
	h := NewHost()
	h.Register("bump-mode", ModifierFunc(func(ctx Context) (Result, error) {
		edited := message.Rec(map[string]message.Value{
			"custom_mode": message.Int(99),
		})
		return Result{Fields: edited}, nil
	}))

	m := message.NewMessage(message.Header{SystemID: 1}, "HEARTBEAT", nil, message.Rec(map[string]message.Value{
		"custom_mode": message.Int(1),
	}))

	h.Invoke("bump-mode", m)

	v, ok := m.Lookup("custom_mode")
	require.True(t, ok)
	assert.Equal(t, int64(99), v.Int)
}

func TestInvokeFailsOpenOnModifierError(t *testing.T) {
	h := NewHost()
	h.Register("broken", ModifierFunc(func(ctx Context) (Result, error) {
		return Result{}, errors.New("boom")
	}))

	m := message.NewMessage(message.Header{}, "HEARTBEAT", nil, message.Rec(map[string]message.Value{
		"custom_mode": message.Int(7),
	}))
	h.Invoke("broken", m)

	v, ok := m.Lookup("custom_mode")
	require.True(t, ok)
	assert.Equal(t, int64(7), v.Int, "message must be unchanged when the modifier errors")
}

func TestInvokeFailsOpenOnMalformedResult(t *testing.T) {
	h := NewHost()
	h.Register("malformed", ModifierFunc(func(ctx Context) (Result, error) {
		return Result{Fields: message.Int(5)}, nil
	}))

	m := message.NewMessage(message.Header{}, "HEARTBEAT", nil, message.Rec(map[string]message.Value{
		"custom_mode": message.Int(7),
	}))
	h.Invoke("malformed", m)

	v, ok := m.Lookup("custom_mode")
	require.True(t, ok)
	assert.Equal(t, int64(7), v.Int)
}

func TestInvokePluginIsObserveOnly(t *testing.T) {
	h := NewHost()
	seen := make(chan string, 1)
	h.RegisterPlugin("logger", PluginFunc(func(ctx Context) {
		seen <- ctx.MessageType
	}))

	m := message.NewMessage(message.Header{}, "HEARTBEAT", nil, message.Rec(nil))
	h.InvokePlugin("logger", m)

	select {
	case typ := <-seen:
		assert.Equal(t, "HEARTBEAT", typ)
	default:
		t.Fatal("plugin was not invoked")
	}
}

func TestInvokePluginPanicDoesNotPropagate(t *testing.T) {
	h := NewHost()
	h.RegisterPlugin("bad", PluginFunc(func(ctx Context) {
		panic("boom")
	}))
	m := message.NewMessage(message.Header{}, "HEARTBEAT", nil, message.Rec(nil))
	assert.NotPanics(t, func() { h.InvokePlugin("bad", m) })
}

func TestInvokeUnknownModifierLeavesMessageUnchanged(t *testing.T) {
	h := NewHost()
	m := message.NewMessage(message.Header{}, "HEARTBEAT", nil, message.Rec(map[string]message.Value{
		"custom_mode": message.Int(7),
	}))
	result := h.Invoke("does-not-exist", m)
	assert.Equal(t, message.KindRecord, result.Fields.Kind)

	v, ok := m.Lookup("custom_mode")
	require.True(t, ok)
	assert.Equal(t, int64(7), v.Int)
}
