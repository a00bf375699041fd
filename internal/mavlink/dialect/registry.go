// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dialect

import (
	"fmt"
	"reflect"
	"sync"

	"grimm.is/mavproxy/internal/frame"
	"grimm.is/mavproxy/internal/message"
)

// UnknownType is the message type name assigned to unregistered message
// ids: still routable, but not field-addressable (§4.1).
const UnknownType = "UNKNOWN"

type definition struct {
	id       uint32
	name     string
	crcExtra byte
	goType   reflect.Type
}

var (
	registryMu sync.RWMutex
	byID       = map[uint32]*definition{}
	byName     = map[string]*definition{}
)

// Register adds a message type to the catalog. sample must be a
// (non-pointer) zero value of the message's struct type; its fields and
// tags drive both the wire codec and the generic view.
func Register(id uint32, name string, crcExtra byte, sample any) {
	def := &definition{id: id, name: name, crcExtra: crcExtra, goType: reflect.TypeOf(sample)}

	registryMu.Lock()
	byID[id] = def
	byName[name] = def
	registryMu.Unlock()

	frame.RegisterCRCExtra(id, crcExtra)
}

// MessageIDFor returns the numeric message id for a registered type name.
func MessageIDFor(name string) (uint32, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	def, ok := byName[name]
	if !ok {
		return 0, false
	}
	return def.id, true
}

// TypeNameFor returns the registered type name for a message id.
func TypeNameFor(id uint32) (string, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	def, ok := byID[id]
	if !ok {
		return "", false
	}
	return def.name, true
}

func lookupByID(id uint32) (*definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	def, ok := byID[id]
	return def, ok
}

func lookupByName(name string) (*definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	def, ok := byName[name]
	return def, ok
}

// DecodePayload decodes a message payload into its typed struct and
// generic field view. Unregistered ids decode to UnknownType with an
// empty (non-matchable) field view and the raw payload as Typed.
func DecodePayload(messageID uint32, payload []byte, isV2 bool) (typeName string, typed any, fields message.Value, err error) {
	def, ok := lookupByID(messageID)
	if !ok {
		raw := append([]byte(nil), payload...)
		return UnknownType, raw, message.Rec(map[string]message.Value{}), nil
	}

	ptr := reflect.New(def.goType)
	if err := decodeInto(ptr.Elem(), payload, isV2); err != nil {
		return "", nil, message.Value{}, fmt.Errorf("dialect: decode %s: %w", def.name, err)
	}
	return def.name, ptr.Interface(), toView(ptr.Elem()), nil
}

// EncodePayload serializes typed (a pointer to a registered message
// struct, as returned by DecodePayload or NewTyped) back to wire bytes.
func EncodePayload(typed any, isV2 bool) ([]byte, error) {
	v := reflect.ValueOf(typed)
	if v.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("dialect: EncodePayload requires a pointer, got %s", v.Kind())
	}
	return encodeFrom(v.Elem(), isV2)
}

// ApplyView writes a generic field record (as mutated by a modifier)
// back onto typed's fields, then re-encodes it to wire bytes in one
// step — the pipeline's "re-serialize from the typed message" path
// (§4.2, §4.9).
func ApplyView(typed any, fields message.Value, isV2 bool) ([]byte, error) {
	v := reflect.ValueOf(typed)
	if v.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("dialect: ApplyView requires a pointer, got %s", v.Kind())
	}
	applyView(v.Elem(), fields)
	return encodeFrom(v.Elem(), isV2)
}

// NewTyped allocates a zero-valued pointer to the registered type named
// typeName, for building synthetic (e.g. ACK) messages.
func NewTyped(typeName string) (any, bool) {
	def, ok := lookupByName(typeName)
	if !ok {
		return nil, false
	}
	return reflect.New(def.goType).Interface(), true
}

// View returns the generic field view for an already-decoded typed
// message pointer, without touching the wire bytes.
func View(typed any) message.Value {
	v := reflect.ValueOf(typed)
	if v.Kind() != reflect.Ptr {
		return message.Rec(map[string]message.Value{})
	}
	return toView(v.Elem())
}
