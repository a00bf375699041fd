// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package frame implements the MAVLink v1/v2 wire codec: parsing a byte
// stream into Frame values and serializing Frame values back to bytes,
// preserving every header field exactly (§4.1 of the design).
package frame

import "fmt"

const (
	MagicV1 byte = 0xFE
	MagicV2 byte = 0xFD

	headerLenV1 = 6  // magic, len, seq, sysid, compid, msgid
	headerLenV2 = 10 // magic, len, incompat, compat, seq, sysid, compid, msgid(3)

	signatureLen = 13

	// IncompatFlagSigned marks a v2 frame as carrying a trailing signature block.
	IncompatFlagSigned byte = 0x01
)

// Frame is the wire unit: a parsed MAVLink packet with its header fields,
// raw payload bytes, and checksum preserved exactly as received.
type Frame struct {
	Version uint8 // 1 or 2

	Seq           uint8
	SystemID      uint8
	ComponentID   uint8
	MessageID     uint32 // fits in 1 byte for v1, up to 3 bytes for v2
	IncompatFlags uint8  // v2 only
	CompatFlags   uint8  // v2 only

	Payload []byte

	Checksum uint16

	// Signature is the 13-byte v2 trailer, present iff IncompatFlags has
	// IncompatFlagSigned set. Preserved verbatim; this proxy does not
	// verify or re-sign it (§1 Non-goals: authenticated channels).
	Signature []byte
}

// ParseError describes why a byte slice failed to decode as a frame.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "frame: " + e.Reason }

func parseErr(format string, args ...any) error {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}

// Parse decodes the first complete frame found at the start of b. It
// returns the parsed Frame and the number of bytes consumed, or an error
// if b does not begin with a recognized, complete frame.
//
// Parse never reads past a full frame; callers feeding a stream should
// retry once more bytes have arrived after a "short buffer" error.
func Parse(b []byte) (*Frame, int, error) {
	if len(b) == 0 {
		return nil, 0, parseErr("empty buffer")
	}

	switch b[0] {
	case MagicV1:
		return parseV1(b)
	case MagicV2:
		return parseV2(b)
	default:
		return nil, 0, parseErr("bad magic byte 0x%02x", b[0])
	}
}

func parseV1(b []byte) (*Frame, int, error) {
	if len(b) < headerLenV1+2 {
		return nil, 0, parseErr("short buffer for v1 header")
	}
	payloadLen := int(b[1])
	total := headerLenV1 + payloadLen + 2
	if len(b) < total {
		return nil, 0, parseErr("short buffer: need %d bytes, have %d", total, len(b))
	}

	f := &Frame{
		Version:     1,
		Seq:         b[2],
		SystemID:    b[3],
		ComponentID: b[4],
		MessageID:   uint32(b[5]),
		Payload:     append([]byte(nil), b[6:6+payloadLen]...),
		Checksum:    uint16(b[6+payloadLen]) | uint16(b[6+payloadLen+1])<<8,
	}

	crcExtra, ok := CRCExtraFor(f.MessageID)
	if !ok {
		// Unknown message id: still routable, just not field-addressable.
		// We don't fail the parse over an unresolvable crc-extra; the
		// checksum as received is trusted for forwarding purposes.
		return f, total, nil
	}
	want := computeChecksum(b[1:6+payloadLen], crcExtra)
	if want != f.Checksum {
		return nil, 0, parseErr("crc mismatch: got 0x%04x want 0x%04x", f.Checksum, want)
	}
	return f, total, nil
}

func parseV2(b []byte) (*Frame, int, error) {
	if len(b) < headerLenV2+2 {
		return nil, 0, parseErr("short buffer for v2 header")
	}
	payloadLen := int(b[1])
	incompat := b[2]
	compat := b[3]
	msgID := uint32(b[7]) | uint32(b[8])<<8 | uint32(b[9])<<16

	total := headerLenV2 + payloadLen + 2
	hasSig := incompat&IncompatFlagSigned != 0
	if hasSig {
		total += signatureLen
	}
	if len(b) < total {
		return nil, 0, parseErr("short buffer: need %d bytes, have %d", total, len(b))
	}

	f := &Frame{
		Version:       2,
		Seq:           b[4],
		SystemID:      b[5],
		ComponentID:   b[6],
		MessageID:     msgID,
		IncompatFlags: incompat,
		CompatFlags:   compat,
		Payload:       append([]byte(nil), b[10:10+payloadLen]...),
		Checksum:      uint16(b[10+payloadLen]) | uint16(b[10+payloadLen+1])<<8,
	}
	if hasSig {
		sigStart := 10 + payloadLen + 2
		f.Signature = append([]byte(nil), b[sigStart:sigStart+signatureLen]...)
	}

	crcExtra, ok := CRCExtraFor(f.MessageID)
	if !ok {
		return f, total, nil
	}
	want := computeChecksum(b[1:10+payloadLen], crcExtra)
	if want != f.Checksum {
		return nil, 0, parseErr("crc mismatch: got 0x%04x want 0x%04x", f.Checksum, want)
	}
	return f, total, nil
}

// Serialize re-encodes f to wire bytes, recomputing the checksum from
// f.Payload and the message's crc-extra. Header fields (version, seq,
// system/component id, signature presence) are preserved exactly. For a
// message id this dialect doesn't know the crc-extra for, f.Checksum is
// re-emitted verbatim instead of recomputed against a wrong (zero)
// crc-extra, which would otherwise corrupt every unknown-id frame this
// proxy forwards unmodified.
func Serialize(f *Frame) ([]byte, error) {
	if f.Version == 1 {
		return serializeV1(f)
	}
	if f.Version == 2 {
		return serializeV2(f)
	}
	return nil, fmt.Errorf("frame: unsupported version %d", f.Version)
}

func serializeV1(f *Frame) ([]byte, error) {
	if len(f.Payload) > 255 {
		return nil, fmt.Errorf("frame: v1 payload too large (%d bytes)", len(f.Payload))
	}
	out := make([]byte, 0, headerLenV1+len(f.Payload)+2)
	out = append(out, MagicV1, byte(len(f.Payload)), f.Seq, f.SystemID, f.ComponentID, byte(f.MessageID))
	out = append(out, f.Payload...)

	crc := f.Checksum
	if crcExtra, ok := CRCExtraFor(f.MessageID); ok {
		crc = computeChecksum(out[1:], crcExtra)
	}
	out = append(out, byte(crc), byte(crc>>8))
	return out, nil
}

func serializeV2(f *Frame) ([]byte, error) {
	if len(f.Payload) > 255 {
		return nil, fmt.Errorf("frame: v2 payload too large (%d bytes)", len(f.Payload))
	}
	incompat := f.IncompatFlags
	hasSig := incompat&IncompatFlagSigned != 0
	if hasSig && len(f.Signature) != signatureLen {
		return nil, fmt.Errorf("frame: signature flag set but signature is %d bytes", len(f.Signature))
	}

	out := make([]byte, 0, headerLenV2+len(f.Payload)+2+signatureLen)
	out = append(out, MagicV2, byte(len(f.Payload)), incompat, f.CompatFlags, f.Seq, f.SystemID, f.ComponentID,
		byte(f.MessageID), byte(f.MessageID>>8), byte(f.MessageID>>16))
	out = append(out, f.Payload...)

	crc := f.Checksum
	if crcExtra, ok := CRCExtraFor(f.MessageID); ok {
		crc = computeChecksum(out[1:], crcExtra)
	}
	out = append(out, byte(crc), byte(crc>>8))
	if hasSig {
		out = append(out, f.Signature...)
	}
	return out, nil
}
