// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exposes the proxy's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RuleMatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mavproxy_rule_matches_total",
		Help: "Number of packets matched per rule.",
	}, []string{"rule"})

	Actions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mavproxy_actions_total",
		Help: "Number of action-chain steps executed, by action name.",
	}, []string{"action"})

	BatchReleases = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mavproxy_batch_releases_total",
		Help: "Number of batch group releases, by key and reason.",
	}, []string{"key", "reason"})

	Acks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mavproxy_acks_total",
		Help: "Number of synthesized ACK messages emitted.",
	})

	ParseErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mavproxy_parse_errors_total",
		Help: "Number of inbound frames that failed to parse and were forwarded raw.",
	})
)

// Registry bundles the proxy's collectors for a single Register call.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(RuleMatches, Actions, BatchReleases, Acks, ParseErrors)
}
