// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/yaml.v3"

	"grimm.is/mavproxy/internal/merrors"
	"grimm.is/mavproxy/internal/rules"
)

// Loaded is everything a Document resolves to once its rule blocks have
// been converted and its asset load maps merged: the pieces cmd/mavproxy
// wires into a running proxy.
type Loaded struct {
	Network   NetworkConfig
	Logging   LoggingConfig
	Plugins   AssetConfig
	Modifiers AssetConfig
	Rules     []*rules.Rule
}

// Load reads and decodes the HCL document at path, merges any
// load_file-referenced YAML asset maps, and converts every rule block to
// a *rules.Rule. It does not build a rules.Store: callers do that (and
// get cross-rule validation) via rules.NewStore(loaded.Rules).
func Load(path string) (*Loaded, error) {
	var doc Document
	if err := hclsimple.DecodeFile(path, nil, &doc); err != nil {
		return nil, merrors.Wrap(err, merrors.KindConfig, "config: decode "+path)
	}

	ruleset, err := ToRuleset(&doc)
	if err != nil {
		return nil, err
	}

	plugins, err := resolveAssets(path, doc.Plugins)
	if err != nil {
		return nil, merrors.Wrap(err, merrors.KindConfig, "config: plugins")
	}
	modifiers, err := resolveAssets(path, doc.Modifiers)
	if err != nil {
		return nil, merrors.Wrap(err, merrors.KindConfig, "config: modifiers")
	}

	if err := validateRefs(ruleset, plugins, modifiers); err != nil {
		return nil, err
	}

	return &Loaded{
		Network:   doc.Network,
		Logging:   doc.Logging,
		Plugins:   plugins,
		Modifiers: modifiers,
		Rules:     ruleset,
	}, nil
}

// validateRefs fails config loading if any rule names a modifier_ref or
// plugin_ref absent from the resolved load maps. A scripting runtime is
// out of scope, but an unresolvable name is still a configuration
// mistake and must be fatal at startup (§3, §7), not discovered only
// when a packet happens to match the rule at invoke time.
func validateRefs(ruleset []*rules.Rule, plugins, modifiers AssetConfig) error {
	for _, r := range ruleset {
		if r.ModifierRef != "" {
			if _, ok := modifiers.Load[r.ModifierRef]; !ok {
				return merrors.New(merrors.KindConfig,
					fmt.Sprintf("rule %q: modifier_ref %q not found in modifiers.load", r.Name, r.ModifierRef))
			}
		}
		for _, ref := range r.PluginRefs {
			if _, ok := plugins.Load[ref]; !ok {
				return merrors.New(merrors.KindConfig,
					fmt.Sprintf("rule %q: plugin_ref %q not found in plugins.load", r.Name, ref))
			}
		}
	}
	return nil
}

// resolveAssets merges block's inline `load` map with its load_file's
// YAML contents (inline entries win on key collision), resolving
// load_file relative to the config document's own directory.
func resolveAssets(configPath string, block *AssetConfig) (AssetConfig, error) {
	if block == nil {
		return AssetConfig{}, nil
	}
	merged := AssetConfig{Dir: block.Dir, Load: make(map[string]string, len(block.Load))}

	if block.LoadFile != "" {
		loadPath := block.LoadFile
		if !filepath.IsAbs(loadPath) {
			loadPath = filepath.Join(filepath.Dir(configPath), loadPath)
		}
		data, err := os.ReadFile(loadPath)
		if err != nil {
			return AssetConfig{}, fmt.Errorf("load_file %s: %w", loadPath, err)
		}
		var fromYAML map[string]string
		if err := yaml.Unmarshal(data, &fromYAML); err != nil {
			return AssetConfig{}, fmt.Errorf("load_file %s: %w", loadPath, err)
		}
		for k, v := range fromYAML {
			merged.Load[k] = v
		}
	}
	for k, v := range block.Load {
		merged.Load[k] = v
	}
	merged.LoadFile = block.LoadFile
	return merged, nil
}
