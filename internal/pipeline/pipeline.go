// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package pipeline orchestrates a single inbound frame through the
// seven-step sequence of §4.10: parse, direction, match, trigger,
// plugins, ack, action chain.
package pipeline

import (
	"log"
	"sync/atomic"

	"grimm.is/mavproxy/internal/ack"
	"grimm.is/mavproxy/internal/batch"
	"grimm.is/mavproxy/internal/delay"
	"grimm.is/mavproxy/internal/frame"
	"grimm.is/mavproxy/internal/mavlink/dialect"
	"grimm.is/mavproxy/internal/message"
	"grimm.is/mavproxy/internal/metrics"
	"grimm.is/mavproxy/internal/modhost"
	"grimm.is/mavproxy/internal/rules"
	"grimm.is/mavproxy/internal/trigger"
)

// Sender emits wire bytes on one leg of the proxy. dir names the
// direction of travel the emitted bytes continue in (DirGCSToRouter to
// continue toward the vehicle, DirRouterToGCS to continue toward the
// ground station).
type Sender interface {
	Send(dir rules.Direction, raw []byte) error
}

func opposite(d rules.Direction) rules.Direction {
	switch d {
	case rules.DirGCSToRouter:
		return rules.DirRouterToGCS
	case rules.DirRouterToGCS:
		return rules.DirGCSToRouter
	default:
		return d
	}
}

// Pipeline wires together the rule store and every per-rule collaborator
// named in §4, and drives a single packet through them.
type Pipeline struct {
	Rules     *rules.Store
	Triggers  *trigger.Engine
	Batches   *batch.Manager
	Delays    *delay.Scheduler
	Modifiers *modhost.Host
	Sender    Sender

	ackSeq atomic.Uint32
}

// New builds a Pipeline. Batches and Delays are constructed internally
// so their release/fire callbacks can close over the Pipeline itself.
func New(store *rules.Store, modifiers *modhost.Host, sender Sender) *Pipeline {
	p := &Pipeline{
		Rules:     store,
		Triggers:  trigger.NewEngine(store),
		Delays:    delay.NewScheduler(),
		Modifiers: modifiers,
		Sender:    sender,
	}
	p.Batches = batch.NewManager(p.handleBatchRelease)
	return p
}

func (p *Pipeline) nextAckSeq() uint8 {
	return uint8(p.ackSeq.Add(1))
}

// Process runs one inbound frame through the full pipeline. raw is the
// exact bytes read off the wire for this frame (no more, no less).
func (p *Pipeline) Process(dir rules.Direction, raw []byte) {
	fr, _, err := frame.Parse(raw)
	if err != nil {
		metrics.ParseErrors.Inc()
		log.Printf("pipeline: parse failed, forwarding raw: %v", err)
		p.send(dir, raw)
		return
	}

	isV2 := fr.Version == 2
	typeName, typed, fields, err := dialect.DecodePayload(fr.MessageID, fr.Payload, isV2)
	if err != nil {
		log.Printf("pipeline: payload decode failed for message id %d, forwarding raw: %v", fr.MessageID, err)
		p.send(dir, raw)
		return
	}

	header := message.Header{
		Version:     fr.Version,
		Seq:         fr.Seq,
		SystemID:    fr.SystemID,
		ComponentID: fr.ComponentID,
		MessageID:   fr.MessageID,
	}
	msg := message.NewMessage(header, typeName, typed, fields)

	rule, ok := p.Rules.Match(dir, msg)
	if !ok {
		p.send(dir, raw)
		return
	}
	metrics.RuleMatches.WithLabelValues(rule.Name).Inc()

	p.Triggers.Fire(rule)

	for _, name := range rule.PluginRefs {
		p.Modifiers.InvokePlugin(name, msg)
	}

	if rule.Ack != nil {
		p.emitAck(rule, dir, msg, isV2)
	}

	p.runChain(rule, dir, msg, fr, isV2, rule.Actions)
}

func (p *Pipeline) emitAck(rule *rules.Rule, dir rules.Direction, msg *message.Message, isV2 bool) {
	ackMsg, payload, err := ack.Synthesize(rule.Ack, msg, p.nextAckSeq(), isV2)
	if err != nil {
		log.Printf("pipeline: rule %q ack synthesis failed, skipping: %v", rule.Name, err)
		return
	}
	ackFrame := &frame.Frame{
		Version:     ackMsg.Header.Version,
		Seq:         ackMsg.Header.Seq,
		SystemID:    ackMsg.Header.SystemID,
		ComponentID: ackMsg.Header.ComponentID,
		MessageID:   ackMsg.Header.MessageID,
		Payload:     payload,
	}
	out, err := frame.Serialize(ackFrame)
	if err != nil {
		log.Printf("pipeline: rule %q ack serialization failed, skipping: %v", rule.Name, err)
		return
	}
	metrics.Acks.Inc()
	p.send(opposite(dir), out)
}

// runChain executes actions in order against msg, starting fresh
// (index 0) or resuming after a delay/batch suspension (a sub-slice of
// the rule's original chain). fr supplies the frame metadata to
// re-serialize with once msg's typed struct has been mutated by modify.
func (p *Pipeline) runChain(rule *rules.Rule, dir rules.Direction, msg *message.Message, fr *frame.Frame, isV2 bool, actions []rules.Action) {
	for i, act := range actions {
		metrics.Actions.WithLabelValues(string(act)).Inc()
		switch act {
		case rules.ActionForward:
			p.send(dir, p.reencode(msg, fr, isV2))
			return

		case rules.ActionBlock:
			return

		case rules.ActionModify:
			if res := p.Modifiers.Invoke(rule.ModifierRef, msg); res.Block {
				return
			}

		case rules.ActionDelay:
			remaining := actions[i+1:]
			raw := p.reencode(msg, fr, isV2)
			p.Delays.Schedule(*rule.DelaySeconds, func() {
				p.resumeRaw(rule, dir, raw, remaining)
			})
			return

		case rules.ActionBatch:
			memberID, ok := batch.MemberID(rule.Batch, msg)
			if !ok {
				log.Printf("pipeline: rule %q batch member id not found, dropping packet", rule.Name)
				return
			}
			raw := p.reencode(msg, fr, isV2)
			p.Batches.Add(rule, memberID, dir, actions[i+1:], raw)
			return

		default:
			log.Printf("pipeline: rule %q has unknown action %q, dropping packet", rule.Name, act)
			return
		}
	}
	// Chain exhausted without forward or block: implicit drop (§4.10).
}

func (p *Pipeline) handleBatchRelease(rule *rules.Rule, items []batch.Item, reason batch.ReleaseReason) {
	metrics.BatchReleases.WithLabelValues(rule.Batch.Key, string(reason)).Inc()
	for _, item := range items {
		switch reason {
		case batch.ReleaseThreshold:
			p.resumeRaw(rule, item.Dir, item.Raw, item.Remaining)
		case batch.ReleaseTimeoutForward:
			p.send(item.Dir, item.Raw)
		case batch.ReleaseTimeoutDropped:
			// already logged by the batch manager; nothing to emit.
		}
	}
}

// resumeRaw re-parses a queued batch packet's raw bytes back into a
// Message and continues its action chain from remaining. Batched
// packets are decoupled from the original in-memory Message since they
// may outlive the read loop that enqueued them.
func (p *Pipeline) resumeRaw(rule *rules.Rule, dir rules.Direction, raw []byte, remaining []rules.Action) {
	fr, _, err := frame.Parse(raw)
	if err != nil {
		log.Printf("pipeline: rule %q could not re-parse released batch packet: %v", rule.Name, err)
		return
	}
	isV2 := fr.Version == 2
	typeName, typed, fields, err := dialect.DecodePayload(fr.MessageID, fr.Payload, isV2)
	if err != nil {
		log.Printf("pipeline: rule %q could not re-decode released batch packet: %v", rule.Name, err)
		return
	}
	header := message.Header{
		Version:     fr.Version,
		Seq:         fr.Seq,
		SystemID:    fr.SystemID,
		ComponentID: fr.ComponentID,
		MessageID:   fr.MessageID,
	}
	msg := message.NewMessage(header, typeName, typed, fields)
	p.runChain(rule, dir, msg, fr, isV2, remaining)
}

// reencode re-serializes msg's current (possibly modifier-edited) typed
// struct back onto fr's header fields. If msg carries no typed struct,
// or is an UNKNOWN message (whose Typed is only its raw payload bytes),
// fr's original payload is used unchanged.
func (p *Pipeline) reencode(msg *message.Message, fr *frame.Frame, isV2 bool) []byte {
	payload := fr.Payload
	if typed := msg.Typed; typed != nil && msg.Type != dialect.UnknownType {
		if encoded, err := dialect.ApplyView(typed, msg.View(), isV2); err == nil {
			payload = encoded
		} else {
			log.Printf("pipeline: re-encode failed for %s, forwarding original payload: %v", msg.Type, err)
		}
	}
	out := &frame.Frame{
		Version:       fr.Version,
		Seq:           fr.Seq,
		SystemID:      fr.SystemID,
		ComponentID:   fr.ComponentID,
		MessageID:     fr.MessageID,
		IncompatFlags: fr.IncompatFlags,
		CompatFlags:   fr.CompatFlags,
		Checksum:      fr.Checksum,
		Payload:       payload,
		Signature:     fr.Signature,
	}
	bytes, err := frame.Serialize(out)
	if err != nil {
		log.Printf("pipeline: re-serialize failed, forwarding original frame bytes: %v", err)
		raw, _ := frame.Serialize(fr)
		return raw
	}
	return bytes
}

func (p *Pipeline) send(dir rules.Direction, raw []byte) {
	if err := p.Sender.Send(dir, raw); err != nil {
		log.Printf("pipeline: send failed on %s: %v", dir, err)
	}
}
