// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package modhost hosts the modifier and plugin contract a `modify`
// action or plugin_ref invokes (§4.9): given a packet's header metadata
// and generic field view, return a (possibly edited) view to apply back
// before re-encoding. The real scripting runtime is out of scope here;
// Host is the Go-native contract every such runtime (or a compiled-in
// modifier) implements against.
package modhost

import (
	"log"

	"grimm.is/mavproxy/internal/message"
)

// Context is what a modifier or plugin receives: the message's header
// metadata and its current generic field view.
type Context struct {
	SystemID    uint8
	ComponentID uint8
	Sequence    uint8
	MessageType string
	Fields      message.Value
}

// Result is what a modifier or plugin returns. Block, if true, stops
// the packet's action chain outright (the host's equivalent of a
// `block` action triggered from inside a modifier).
type Result struct {
	Fields message.Value
	Block  bool
}

// Modifier is the contract a named modifier_ref resolves to.
type Modifier interface {
	Modify(ctx Context) (Result, error)
}

// ModifierFunc adapts a plain function to Modifier.
type ModifierFunc func(ctx Context) (Result, error)

// Modify implements Modifier.
func (f ModifierFunc) Modify(ctx Context) (Result, error) { return f(ctx) }

// Plugin is the contract a named plugin_ref resolves to: an observer
// invoked on every rule match, whose return value is discarded (§6).
type Plugin interface {
	OnMatch(ctx Context)
}

// PluginFunc adapts a plain function to Plugin.
type PluginFunc func(ctx Context)

// OnMatch implements Plugin.
func (f PluginFunc) OnMatch(ctx Context) { f(ctx) }

// Host resolves modifier_ref and plugin_ref names to Modifiers/Plugins
// and invokes them, failing open on error (§4.9, §7): a modifier error
// or a malformed result leaves the original message untouched and the
// chain continues; a plugin panic or error never aborts the chain.
type Host struct {
	modifiers map[string]Modifier
	plugins   map[string]Plugin
}

// NewHost builds an empty Host; register collaborators with Register
// and RegisterPlugin.
func NewHost() *Host {
	return &Host{modifiers: make(map[string]Modifier), plugins: make(map[string]Plugin)}
}

// Register binds name (a modifier_ref value) to m.
func (h *Host) Register(name string, m Modifier) {
	h.modifiers[name] = m
}

// RegisterPlugin binds name (a plugin_ref value) to p.
func (h *Host) RegisterPlugin(name string, p Plugin) {
	h.plugins[name] = p
}

// InvokePlugin runs the named plugin against msg's current view. Unknown
// names are logged and skipped; plugins never influence msg.
func (h *Host) InvokePlugin(name string, msg *message.Message) {
	p, ok := h.plugins[name]
	if !ok {
		log.Printf("modhost: no plugin registered for %q", name)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("modhost: plugin %q panicked: %v", name, r)
		}
	}()
	p.OnMatch(Context{
		SystemID:    msg.Header.SystemID,
		ComponentID: msg.Header.ComponentID,
		Sequence:    msg.Header.Seq,
		MessageType: msg.Type,
		Fields:      msg.View(),
	})
}

// Invoke runs the named modifier against msg's current view, applying
// the returned fields back onto msg. On any error, or if name does not
// resolve, it logs and returns the original view unchanged with
// Block=false — the pipeline proceeds with the message exactly as it
// arrived.
func (h *Host) Invoke(name string, msg *message.Message) Result {
	original := msg.View()

	m, ok := h.modifiers[name]
	if !ok {
		log.Printf("modhost: no modifier registered for %q; leaving message unmodified", name)
		return Result{Fields: original}
	}

	ctx := Context{
		SystemID:    msg.Header.SystemID,
		ComponentID: msg.Header.ComponentID,
		Sequence:    msg.Header.Seq,
		MessageType: msg.Type,
		Fields:      original,
	}

	result, err := m.Modify(ctx)
	if err != nil {
		log.Printf("modhost: modifier %q failed: %v; leaving message unmodified", name, err)
		return Result{Fields: original}
	}
	if result.Fields.Kind != message.KindRecord {
		log.Printf("modhost: modifier %q returned a malformed view; leaving message unmodified", name)
		return Result{Fields: original}
	}

	for k, v := range result.Fields.Record {
		if k == "header" {
			continue
		}
		msg.SetField(k, v)
	}
	return result
}
