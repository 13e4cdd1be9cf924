// Package config loads and validates the pipeline's static phase table and
// gate configuration from .researchctl/config.yaml, in the same explicit
// struct-plus-Validate-pass idiom the rest of this family of tools uses.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GateMode is the operator-facing shorthand for a gate's enabled/on-failure
// pair: "warn" (enabled, downgrade), "block" (enabled, block), or "skip"
// (disabled). Individual gates may still override on_failure explicitly.
type GateMode string

const (
	GateModeWarn  GateMode = "warn"
	GateModeBlock GateMode = "block"
	GateModeSkip  GateMode = "skip"
)

// OnFailure is the action a gate takes when its checks fail.
type OnFailure string

const (
	OnFailureBlock     OnFailure = "block"
	OnFailureDowngrade OnFailure = "downgrade"
)

// GateConfig is the shared shape every gate config embeds, plus its own
// gate-specific thresholds.
type GateConfig struct {
	Enabled   bool      `yaml:"enabled"`
	OnFailure OnFailure `yaml:"on_failure"`

	// Evidence Gate
	MinItemsPerSource int `yaml:"min_items_per_source"`

	// Citation Accuracy Gate
	MinAlignmentScore        float64 `yaml:"min_alignment_score"`
	MinKeywordOverlap        float64 `yaml:"min_keyword_overlap"`
	MinEntityOverlap         float64 `yaml:"min_entity_overlap"`
	EnableEntityOverlap      bool    `yaml:"enable_entity_overlap"`
	EnableNumericConsistency bool    `yaml:"enable_numeric_consistency"`
	MaxEvidenceItemsPerClaim int     `yaml:"max_evidence_items_per_claim"`

	// Literature Gate
	MaxAgeHours float64 `yaml:"max_age_hours"`
}

// clamp coerces non-positive counts and ages, and thresholds outside [0, 1],
// to safe defaults (a threshold of exactly 0 is kept), and coerces an
// unrecognized on_failure value to the safe default (block).
func (g *GateConfig) clamp() {
	if g.OnFailure != OnFailureBlock && g.OnFailure != OnFailureDowngrade {
		g.OnFailure = OnFailureBlock
	}
	if g.MinItemsPerSource <= 0 {
		g.MinItemsPerSource = 1
	}
	if g.MinAlignmentScore < 0 || g.MinAlignmentScore > 1 {
		g.MinAlignmentScore = 0.25
	}
	if g.MinKeywordOverlap < 0 || g.MinKeywordOverlap > 1 {
		g.MinKeywordOverlap = 0.15
	}
	if g.MinEntityOverlap < 0 || g.MinEntityOverlap > 1 {
		g.MinEntityOverlap = 0.10
	}
	if g.MaxEvidenceItemsPerClaim <= 0 {
		g.MaxEvidenceItemsPerClaim = 5
	}
	if g.MaxAgeHours <= 0 {
		g.MaxAgeHours = 24
	}
}

// GateConfigFromMap builds a GateConfig from a loosely-typed map (e.g. parsed
// from nested YAML/JSON context), clamping invalid values to safe defaults.
func GateConfigFromMap(m map[string]any) GateConfig {
	var g GateConfig
	if v, ok := m["enabled"].(bool); ok {
		g.Enabled = v
	}
	if v, ok := m["on_failure"].(string); ok {
		g.OnFailure = OnFailure(v)
	}
	if v, ok := asFloat(m["min_items_per_source"]); ok {
		g.MinItemsPerSource = int(v)
	}
	if v, ok := asFloat(m["min_alignment_score"]); ok {
		g.MinAlignmentScore = v
	}
	if v, ok := asFloat(m["min_keyword_overlap"]); ok {
		g.MinKeywordOverlap = v
	}
	if v, ok := asFloat(m["min_entity_overlap"]); ok {
		g.MinEntityOverlap = v
	}
	if v, ok := m["enable_entity_overlap"].(bool); ok {
		g.EnableEntityOverlap = v
	}
	if v, ok := m["enable_numeric_consistency"].(bool); ok {
		g.EnableNumericConsistency = v
	}
	if v, ok := asFloat(m["max_evidence_items_per_claim"]); ok {
		g.MaxEvidenceItemsPerClaim = int(v)
	}
	if v, ok := asFloat(m["max_age_hours"]); ok {
		g.MaxAgeHours = v
	}
	g.clamp()
	return g
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// GateNames enumerates every gate key in declaration order.
var GateNames = []string{
	"evidence_gate",
	"citation_accuracy_gate",
	"computation_gate",
	"claim_evidence_gate",
	"literature_gate",
	"analysis_gate",
}

// DefaultGateConfig returns default configurations for every gate, derived
// from the requested mode exactly as the system this is descended from does:
// "warn" enables all gates in downgrade mode, "block" enables all gates in
// block mode, "skip" disables all gates.
func DefaultGateConfig(mode GateMode) map[string]GateConfig {
	onFailure := OnFailureDowngrade
	if mode == GateModeBlock {
		onFailure = OnFailureBlock
	}
	enabled := mode != GateModeSkip

	base := GateConfig{
		Enabled:                  enabled,
		OnFailure:                onFailure,
		MinItemsPerSource:        1,
		MinAlignmentScore:        0.25,
		MinKeywordOverlap:        0.15,
		MinEntityOverlap:         0.10,
		EnableEntityOverlap:      true,
		EnableNumericConsistency: true,
		MaxEvidenceItemsPerClaim: 5,
		MaxAgeHours:              24,
	}

	out := make(map[string]GateConfig, len(GateNames))
	for _, name := range GateNames {
		out[name] = base
	}
	return out
}

// Phase is one step of the static phase table.
type Phase struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Script      string `yaml:"script"`
	Critical    bool   `yaml:"critical"`
	TimeoutSecs int    `yaml:"timeout_seconds"`

	// GatesAfter lists the gate keys (from GateNames) whose inputs are
	// expected to exist once this phase has run.
	GatesAfter []string `yaml:"gates_after"`
}

// PipelineConfig is the full .researchctl/config.yaml document.
type PipelineConfig struct {
	Name        string                `yaml:"name"`
	ProjectRoot string                `yaml:"-"`
	Phases      []Phase               `yaml:"phases"`
	Gates       map[string]GateConfig `yaml:"gates"`
}

// PhaseIndex returns the index of the named phase, or -1 if not found.
func (c *PipelineConfig) PhaseIndex(name string) int {
	for i, p := range c.Phases {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Load reads and validates a YAML config file, filling in gate defaults for
// any gate key the file omits.
func Load(path, projectRoot string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.ProjectRoot = projectRoot

	defaults := DefaultGateConfig(GateModeWarn)
	if cfg.Gates == nil {
		cfg.Gates = make(map[string]GateConfig, len(defaults))
	}
	for name, def := range defaults {
		g, ok := cfg.Gates[name]
		if !ok {
			cfg.Gates[name] = def
			continue
		}
		g.clamp()
		cfg.Gates[name] = g
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
