// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config loads the proxy's declarative rule set and network
// configuration from an HCL document (§6), grounded on the teacher's
// internal/config package: gohcl block decoding plus go-cty for the
// schema-less literal values a rule's condition and ack fields carry.
package config

import "github.com/zclconf/go-cty/cty"

// Document is the root of a parsed config file.
type Document struct {
	Network   NetworkConfig `hcl:"network,block"`
	Logging   LoggingConfig `hcl:"logging,block"`
	Plugins   *AssetConfig  `hcl:"plugins,block"`
	Modifiers *AssetConfig  `hcl:"modifiers,block"`
	Rules     []RuleBlock   `hcl:"rule,block"`
}

// NetworkConfig names the two UDP endpoints the transport listens/talks
// to (§6 "network" section).
type NetworkConfig struct {
	GCSListenAddr string `hcl:"gcs_listen_addr"`
	RouterAddr    string `hcl:"router_addr"`
}

// LoggingConfig configures the proxy's log verbosity (§6 "logging"
// section, ambient concern per SPEC_FULL.md §1).
type LoggingConfig struct {
	Level string `hcl:"level,optional"`
}

// AssetConfig is the shared shape of the "plugins" and "modifiers"
// sections: a directory of scripts plus a name -> filename load map.
// load_file, if set, points at a YAML document (gopkg.in/yaml.v3) of the
// same shape, merged with the inline load map (inline entries win on key
// collision) — the "alternate load-map format" the teacher's tooling
// supports alongside HCL.
type AssetConfig struct {
	Dir      string            `hcl:"dir,optional"`
	Load     map[string]string `hcl:"load,optional"`
	LoadFile string            `hcl:"load_file,optional"`
}

// RuleBlock is one `rule "name" { ... }` block, pre-conversion to
// rules.Rule (§3, §4.3).
type RuleBlock struct {
	Name               string          `hcl:"name,label"`
	MessageType        string          `hcl:"message_type,optional"`
	Priority           int             `hcl:"priority,optional"`
	Direction          string          `hcl:"direction,optional"`
	Actions            []string        `hcl:"actions"`
	ModifierRef        string          `hcl:"modifier_ref,optional"`
	PluginRefs         []string        `hcl:"plugin_refs,optional"`
	DelaySeconds       *float64        `hcl:"delay_seconds,optional"`
	EnabledByDefault   *bool           `hcl:"enabled_by_default,optional"`
	Condition          *ConditionBlock `hcl:"condition,block"`
	Batch              *BatchBlock     `hcl:"batch,block"`
	Ack                *AckBlock       `hcl:"ack,block"`
	Trigger            *TriggerBlock   `hcl:"trigger,block"`
}

// ConditionBlock wraps the condition's field->expected-value map as a
// raw cty.Value so arbitrary literal shapes (scalars, {type=...} enum
// records, {bits=...} flag records) survive decoding untyped (§4.4).
type ConditionBlock struct {
	Fields cty.Value `hcl:"fields,optional"`
}

// BatchBlock configures the `batch` action (§4.6).
type BatchBlock struct {
	Key            string  `hcl:"key"`
	Count          int     `hcl:"count"`
	SystemIDField  string  `hcl:"system_id_field,optional"`
	TimeoutSeconds float64 `hcl:"timeout_seconds"`
	TimeoutForward bool    `hcl:"timeout_forward,optional"`
}

// AckBlock configures synthetic ACK construction (§4.8).
type AckBlock struct {
	MessageType          string            `hcl:"message_type"`
	SourceSystemField    string            `hcl:"source_system_field,optional"`
	SourceComponentField string            `hcl:"source_component_field,optional"`
	Fields               cty.Value         `hcl:"fields,optional"`
	CopyFields           map[string]string `hcl:"copy_fields,optional"`
}

// TriggerBlock configures dynamic rule (de)activation (§4.5).
type TriggerBlock struct {
	OnMatch         *bool    `hcl:"on_match,optional"`
	OnComplete      string   `hcl:"on_complete,optional"`
	ActivateRules   []string `hcl:"activate_rules,optional"`
	DeactivateRules []string `hcl:"deactivate_rules,optional"`
	DurationSeconds *float64 `hcl:"duration_seconds,optional"`
}
