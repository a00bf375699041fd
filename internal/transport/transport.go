// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package transport is the proxy's UDP listener pair: one socket facing
// the GCS, one facing the downstream router. It is the out-of-scope
// "physical transport listener" of §1 given a thin, concrete stand-in so
// the pipeline has a real process to run inside (§6 of the expanded
// spec). Framing, rules, and every other decision stay in
// internal/pipeline; this package only moves bytes.
package transport

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"grimm.is/mavproxy/internal/rules"
)

// readBufSize comfortably covers the largest v1/v2 MAVLink frame
// (255-byte payload plus header/signature).
const readBufSize = 4096

// readTimeout bounds each ReadFromUDP call so the read loop can notice
// context cancellation promptly instead of blocking forever.
const readTimeout = 500 * time.Millisecond

// Config names the two UDP endpoints the proxy binds and talks to.
type Config struct {
	// GCSListenAddr is where the proxy listens for packets from the
	// Ground Control Station (e.g. "127.0.0.1:14550"). Replies toward
	// the GCS go back to whichever address last sent from here.
	GCSListenAddr string
	// RouterAddr is the downstream MAVLink router's address. The proxy
	// both sends to it and listens on the same local socket for its
	// replies.
	RouterAddr string
}

// FrameHandler is invoked once per datagram read off either socket.
// raw is the exact bytes received; implementations must not retain it
// past the call without copying.
type FrameHandler func(dir rules.Direction, raw []byte)

// UDPProxy is the default Sender (see internal/pipeline.Sender):
// a pair of UDP sockets with one independent read loop each (§5).
type UDPProxy struct {
	gcsConn    *net.UDPConn
	routerConn *net.UDPConn

	mu      sync.RWMutex
	lastGCS *net.UDPAddr

	onFrame FrameHandler
}

// New binds both UDP sockets. onFrame is called from each read loop's
// own goroutine once Run starts; it must not block for long since it
// runs the full pipeline synchronously (§5: "the pipeline itself does
// not block on I/O except at emission").
func New(cfg Config, onFrame FrameHandler) (*UDPProxy, error) {
	gcsAddr, err := net.ResolveUDPAddr("udp", cfg.GCSListenAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve gcs listen addr: %w", err)
	}
	gcsConn, err := net.ListenUDP("udp", gcsAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen for gcs: %w", err)
	}

	routerAddr, err := net.ResolveUDPAddr("udp", cfg.RouterAddr)
	if err != nil {
		gcsConn.Close()
		return nil, fmt.Errorf("transport: resolve router addr: %w", err)
	}
	routerConn, err := net.DialUDP("udp", nil, routerAddr)
	if err != nil {
		gcsConn.Close()
		return nil, fmt.Errorf("transport: dial router: %w", err)
	}

	return &UDPProxy{gcsConn: gcsConn, routerConn: routerConn, onFrame: onFrame}, nil
}

// GCSAddr returns the bound local address of the GCS-facing socket,
// useful when GCSListenAddr used an ephemeral port (":0") in tests.
func (p *UDPProxy) GCSAddr() *net.UDPAddr {
	return p.gcsConn.LocalAddr().(*net.UDPAddr)
}

// Send implements pipeline.Sender: gcs_to_router writes to the router
// socket, router_to_gcs writes back to the most recent GCS sender.
func (p *UDPProxy) Send(dir rules.Direction, raw []byte) error {
	switch dir {
	case rules.DirGCSToRouter:
		_, err := p.routerConn.Write(raw)
		return err
	case rules.DirRouterToGCS:
		p.mu.RLock()
		addr := p.lastGCS
		p.mu.RUnlock()
		if addr == nil {
			return fmt.Errorf("transport: no gcs peer seen yet, dropping reply")
		}
		_, err := p.gcsConn.WriteToUDP(raw, addr)
		return err
	default:
		return fmt.Errorf("transport: cannot send on direction %q", dir)
	}
}

// Run drives both read loops until ctx is cancelled, closing both
// sockets on return so neither loop can outlive the other.
func (p *UDPProxy) Run(ctx context.Context) error {
	defer p.gcsConn.Close()
	defer p.routerConn.Close()

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		p.gcsConn.Close()
		p.routerConn.Close()
		close(done)
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.readLoop(ctx, p.gcsConn, rules.DirGCSToRouter, p.recordGCSPeer)
	}()
	go func() {
		defer wg.Done()
		p.readLoop(ctx, p.routerConn, rules.DirRouterToGCS, nil)
	}()
	wg.Wait()
	<-done
	return ctx.Err()
}

func (p *UDPProxy) recordGCSPeer(addr *net.UDPAddr) {
	p.mu.Lock()
	p.lastGCS = addr
	p.mu.Unlock()
}

// readLoop reads datagrams off conn until ctx is cancelled, dispatching
// each to p.onFrame. peerSeen, if non-nil, records the sender address
// (used on the GCS socket so replies have somewhere to go).
func (p *UDPProxy) readLoop(ctx context.Context, conn *net.UDPConn, dir rules.Direction, peerSeen func(*net.UDPAddr)) {
	buf := make([]byte, readBufSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return
			default:
				log.Printf("transport: read error on %s: %v", dir, err)
				continue
			}
		}

		if peerSeen != nil {
			peerSeen(addr)
		}

		raw := make([]byte, n)
		copy(raw, buf[:n])
		p.onFrame(dir, raw)
	}
}
