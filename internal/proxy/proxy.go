// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package proxy assembles the loaded config, rule store, pipeline,
// transport, and control plane into one process and runs them under a
// single cancellable errgroup (§5 expansion), grounded on the teacher's
// use of context.Context for coordinated shutdown across long-running
// services.
package proxy

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"grimm.is/mavproxy/internal/config"
	"grimm.is/mavproxy/internal/ctlplane"
	"grimm.is/mavproxy/internal/modhost"
	"grimm.is/mavproxy/internal/pipeline"
	"grimm.is/mavproxy/internal/rules"
	"grimm.is/mavproxy/internal/transport"
)

// Proxy is one fully wired instance of the intermediary: one transport,
// one pipeline, one control-plane listener.
type Proxy struct {
	Store    *rules.Store
	Pipeline *pipeline.Pipeline
	Modhost  *modhost.Host

	transport *transport.UDPProxy
	ctlplane  *ctlplane.Server
}

// New loads cfg, builds the rule store and pipeline, and wires a UDP
// transport feeding it. ctlplaneAddr is the control-plane HTTP listen
// address (e.g. "127.0.0.1:9091"); pass "" to disable it. configPath is
// forwarded to the control plane's /api/v1/config/diff preview.
func New(cfg *config.Loaded, ctlplaneAddr, configPath string) (*Proxy, error) {
	store, err := rules.NewStore(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("proxy: invalid rule set: %w", err)
	}

	host := modhost.NewHost()

	p := &Proxy{Store: store, Modhost: host}

	t, err := transport.New(transport.Config{
		GCSListenAddr: cfg.Network.GCSListenAddr,
		RouterAddr:    cfg.Network.RouterAddr,
	}, p.dispatch)
	if err != nil {
		return nil, fmt.Errorf("proxy: transport: %w", err)
	}
	p.transport = t

	p.Pipeline = pipeline.New(store, host, t)

	if ctlplaneAddr != "" {
		p.ctlplane = ctlplane.New(ctlplaneAddr, configPath, store, p.Pipeline.Triggers, p.Pipeline.Batches)
	}

	return p, nil
}

// dispatch is the transport.FrameHandler the UDP sockets feed every
// datagram into.
func (p *Proxy) dispatch(dir rules.Direction, raw []byte) {
	p.Pipeline.Process(dir, raw)
}

// Run starts every owned background task — the two transport read
// loops, the trigger reaper, the batch timeout reaper, and (if
// configured) the control-plane HTTP server — under one errgroup bound
// to ctx, returning when any of them exits or ctx is cancelled.
func (p *Proxy) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.transport.Run(gctx) })
	g.Go(func() error { return p.Pipeline.Triggers.Run(gctx) })
	g.Go(func() error { return p.Pipeline.Batches.Run(gctx) })
	if p.ctlplane != nil {
		g.Go(func() error { return p.ctlplane.Run(gctx) })
	}

	err := g.Wait()
	if err != nil && ctx.Err() != nil {
		return nil // clean shutdown: every task exited because ctx was cancelled
	}
	return err
}
