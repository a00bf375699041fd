// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package message

// Header carries the frame metadata a decoded Message was built from.
type Header struct {
	Version     uint8
	Seq         uint8
	SystemID    uint8
	ComponentID uint8
	MessageID   uint32
}

// headerRecord builds the "header" sub-record exposed at View().Record["header"],
// per §4.2's header.* path extension.
func (h Header) headerRecord() Value {
	return Rec(map[string]Value{
		"version":      Int(int64(h.Version)),
		"sequence":     Int(int64(h.Seq)),
		"system_id":    Int(int64(h.SystemID)),
		"component_id": Int(int64(h.ComponentID)),
		"message_id":   Int(int64(h.MessageID)),
	})
}

// Message is a decoded frame: a typed variant (opaque here; owned by the
// dialect package) plus the generic field view used for condition
// matching, ACK synthesis, and batch extraction.
type Message struct {
	Header Header
	Type   string // dialect message type name, e.g. "HEARTBEAT"

	// Typed holds the concrete per-message-type struct. The pipeline uses
	// it for re-encoding after a modifier edits the generic view; the
	// condition matcher and ACK synthesizer never touch it directly.
	Typed any

	// fields holds the payload-only field tree, as produced by the
	// dialect's decoder.
	fields Value
}

// NewMessage builds a Message from a decoded header, type name, typed
// struct, and its generic payload fields.
func NewMessage(h Header, typeName string, typed any, fields Value) *Message {
	if fields.Kind != KindRecord {
		fields = Rec(map[string]Value{})
	}
	return &Message{Header: h, Type: typeName, Typed: typed, fields: fields}
}

// View returns the full generic view: payload fields at the top level,
// plus a "header" sub-record, so condition/ACK/extractor configs can
// address frame metadata and payload fields uniformly. The message's
// type name is a property of the Message itself (m.Type), not a
// synthetic view field — a payload field legitimately named "type"
// (e.g. HEARTBEAT's MAV_TYPE field) must resolve to its own value.
func (m *Message) View() Value {
	fields := make(map[string]Value, len(m.fields.Record)+1)
	for k, v := range m.fields.Record {
		fields[k] = v
	}
	fields["header"] = m.Header.headerRecord()
	return Rec(fields)
}

// Lookup resolves a dotted path against m's generic view.
func (m *Message) Lookup(path string) (Value, bool) {
	return Path(m.View(), path)
}

// SetField replaces a top-level payload field in m's generic view. Used
// by the modifier host to apply a mutated view back before re-encoding.
// It does not allow mutating "header" through this path; that is
// frame-level, not payload-level.
func (m *Message) SetField(name string, v Value) {
	if name == "header" {
		return
	}
	if m.fields.Record == nil {
		m.fields.Record = map[string]Value{}
		m.fields.Kind = KindRecord
	}
	m.fields.Record[name] = v
}

// Fields returns the raw payload-only field record (no header/type
// injected), for dialect re-encoders.
func (m *Message) Fields() Value {
	return m.fields
}
