// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ack synthesizes acknowledgement messages on a rule's behalf
// (§4.8): a literal-and-copied field set applied to a fresh typed
// message, addressed back at the matched message's sender.
package ack

import (
	"grimm.is/mavproxy/internal/mavlink/dialect"
	"grimm.is/mavproxy/internal/merrors"
	"grimm.is/mavproxy/internal/message"
	"grimm.is/mavproxy/internal/rules"
)

// Synthesize builds the acknowledgement message.Ack.message_type
// describes, with literal ack.fields applied first and copy_fields
// (target path <- source path, read from original's generic view)
// applied after, addressed at the system/component identified by
// source_system_field/source_component_field (default
// header.system_id/header.component_id). Returns the synthesized
// message and its encoded payload. Callers must build the ACK before
// running original's action chain (§4.8) and, on error, log and skip it
// without aborting that chain.
func Synthesize(spec *rules.AckSpec, original *message.Message, seq uint8, isV2 bool) (*message.Message, []byte, error) {
	if spec == nil {
		return nil, nil, merrors.New(merrors.KindAck, "rule has no ack spec")
	}

	typed, ok := dialect.NewTyped(spec.MessageType)
	if !ok {
		return nil, nil, merrors.New(merrors.KindAck, "ack: unknown message type "+spec.MessageType)
	}
	messageID, ok := dialect.MessageIDFor(spec.MessageType)
	if !ok {
		return nil, nil, merrors.New(merrors.KindAck, "ack: no message id registered for "+spec.MessageType)
	}

	fields := make(map[string]message.Value, len(spec.Fields)+len(spec.CopyFields))
	for k, v := range spec.Fields {
		fields[k] = v
	}
	for target, sourcePath := range spec.CopyFields {
		v, ok := original.Lookup(sourcePath)
		if !ok {
			return nil, nil, merrors.New(merrors.KindAck, "ack: copy_fields source not found: "+sourcePath)
		}
		fields[target] = v
	}

	payload, err := dialect.ApplyView(typed, message.Rec(fields), isV2)
	if err != nil {
		return nil, nil, merrors.Wrap(err, merrors.KindAck, "ack: applying fields")
	}

	sysID, err := resolveU8(original, spec.SourceSystemField, "header.system_id")
	if err != nil {
		return nil, nil, err
	}
	compID, err := resolveU8(original, spec.SourceComponentField, "header.component_id")
	if err != nil {
		return nil, nil, err
	}

	header := message.Header{
		Version:     original.Header.Version,
		Seq:         seq,
		SystemID:    sysID,
		ComponentID: compID,
		MessageID:   messageID,
	}

	return message.NewMessage(header, spec.MessageType, typed, dialect.View(typed)), payload, nil
}

func resolveU8(msg *message.Message, field, defaultPath string) (uint8, error) {
	path := field
	if path == "" {
		path = defaultPath
	}
	v, ok := msg.Lookup(path)
	if !ok {
		return 0, merrors.New(merrors.KindAck, "ack: field not found: "+path)
	}
	if v.Kind != message.KindInt {
		return 0, merrors.New(merrors.KindAck, "ack: field is not an integer: "+path)
	}
	return uint8(v.Int), nil
}
