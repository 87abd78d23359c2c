// Copyright 2025 CallWeave
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SectorConfigFile is the on-disk sector definition, one YAML file per
// sector under SECTOR_CONFIG_DIR.
type SectorConfigFile struct {
	APIVersion string         `yaml:"apiVersion"`
	Kind       string         `yaml:"kind"`
	Metadata   SectorMetadata `yaml:"metadata"`
	Spec       SectorSpec     `yaml:"spec"`
}

// SectorMetadata identifies and describes a sector
type SectorMetadata struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Labels      map[string]string `yaml:"labels"`
}

// SectorSpec defines the sector's intents, routing, and execution settings
type SectorSpec struct {
	Intents          []IntentSpec  `yaml:"intents"`
	Routing          []RoutingRule `yaml:"routing"`
	Execution        ExecutionSpec `yaml:"execution"`
	CredentialFields []string      `yaml:"credentialFields"`
}

// IntentSpec describes one intent the sector's agent handles
type IntentSpec struct {
	Name             string   `yaml:"name"`
	Description      string   `yaml:"description"`
	RequiredFields   []string `yaml:"requiredFields"`
	Entity           string   `yaml:"entity"`
	ResponseTemplate string   `yaml:"responseTemplate"`
}

// RoutingRule maps utterance keywords to an intent
type RoutingRule struct {
	Intent   string   `yaml:"intent"`
	Keywords []string `yaml:"keywords"`
	Priority int      `yaml:"priority"`
}

// ExecutionSpec holds per-sector execution settings
type ExecutionSpec struct {
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

// CompiledRoutingRule is a routing rule with lower-cased keywords,
// ready for matching against utterances.
type CompiledRoutingRule struct {
	Intent   string
	Keywords []string
	Priority int
}

// Validate checks structural requirements before a config is accepted
func (f *SectorConfigFile) Validate() error {
	if f.APIVersion != "callweave.io/v1" {
		return fmt.Errorf("unsupported apiVersion %q", f.APIVersion)
	}
	if f.Kind != "SectorConfig" {
		return fmt.Errorf("unsupported kind %q", f.Kind)
	}
	if f.Metadata.Name == "" {
		return fmt.Errorf("metadata.name is required")
	}
	if len(f.Spec.Intents) == 0 {
		return fmt.Errorf("sector %s: at least one intent is required", f.Metadata.Name)
	}

	intents := make(map[string]bool, len(f.Spec.Intents))
	for _, intent := range f.Spec.Intents {
		if intent.Name == "" {
			return fmt.Errorf("sector %s: intent with empty name", f.Metadata.Name)
		}
		if intents[intent.Name] {
			return fmt.Errorf("sector %s: duplicate intent %q", f.Metadata.Name, intent.Name)
		}
		intents[intent.Name] = true
	}

	for _, rule := range f.Spec.Routing {
		if !intents[rule.Intent] {
			return fmt.Errorf("sector %s: routing rule targets unknown intent %q",
				f.Metadata.Name, rule.Intent)
		}
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("sector %s: routing rule for %q has no keywords",
				f.Metadata.Name, rule.Intent)
		}
	}
	return nil
}

// Intent returns the named intent spec
func (f *SectorConfigFile) Intent(name string) (*IntentSpec, bool) {
	for i := range f.Spec.Intents {
		if f.Spec.Intents[i].Name == name {
			return &f.Spec.Intents[i], true
		}
	}
	return nil, false
}

// CompileRouting lower-cases keywords and orders rules by descending
// priority so the first match wins.
func (f *SectorConfigFile) CompileRouting() []CompiledRoutingRule {
	compiled := make([]CompiledRoutingRule, 0, len(f.Spec.Routing))
	for _, rule := range f.Spec.Routing {
		keywords := make([]string, len(rule.Keywords))
		for i, kw := range rule.Keywords {
			keywords[i] = strings.ToLower(kw)
		}
		compiled = append(compiled, CompiledRoutingRule{
			Intent:   rule.Intent,
			Keywords: keywords,
			Priority: rule.Priority,
		})
	}
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Priority > compiled[j].Priority
	})
	return compiled
}

// LoadSectorConfig parses and validates a single sector config file
func LoadSectorConfig(path string) (*SectorConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var config SectorConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sector config %s: %w", path, err)
	}
	return &config, nil
}

// LoadSectorConfigs loads every *.yaml file in dir, keyed by sector name
func LoadSectorConfigs(dir string) (map[string]*SectorConfigFile, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list sector configs: %w", err)
	}

	configs := make(map[string]*SectorConfigFile, len(paths))
	for _, path := range paths {
		config, err := LoadSectorConfig(path)
		if err != nil {
			return nil, err
		}
		if _, dup := configs[config.Metadata.Name]; dup {
			return nil, fmt.Errorf("duplicate sector config for %q", config.Metadata.Name)
		}
		configs[config.Metadata.Name] = config
	}
	return configs, nil
}
