// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command mavproxy runs the rule-driven MAVLink intermediary: it loads a
// declarative rule set from an HCL config file, binds the GCS/router UDP
// sockets, and drives every inbound frame through the pipeline until
// interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"grimm.is/mavproxy/internal/config"
	"grimm.is/mavproxy/internal/proxy"
)

func main() {
	configPath := flag.String("config", "mavproxy.hcl", "Path to HCL config file")
	ctlplaneAddr := flag.String("ctlplane", "127.0.0.1:9091", "Control-plane HTTP listen address (empty to disable)")
	flag.Parse()

	loaded, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("mavproxy: loading %s: %v", *configPath, err)
	}

	p, err := proxy.New(loaded, *ctlplaneAddr, *configPath)
	if err != nil {
		log.Fatalf("mavproxy: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("mavproxy: listening for GCS on %s, forwarding to router at %s",
		loaded.Network.GCSListenAddr, loaded.Network.RouterAddr)
	if err := p.Run(ctx); err != nil {
		log.Fatalf("mavproxy: %v", err)
	}
}
