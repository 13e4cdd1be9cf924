package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesGateDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
name: test-pipeline
phases:
  - name: intake
    script: intake.sh
    critical: true
`)
	cfg, err := Load(path, dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Gates) != len(GateNames) {
		t.Fatalf("expected %d gate defaults, got %d", len(GateNames), len(cfg.Gates))
	}
	evidence := cfg.Gates["evidence_gate"]
	if !evidence.Enabled || evidence.OnFailure != OnFailureDowngrade {
		t.Fatalf("expected warn-mode default, got %+v", evidence)
	}
	if cfg.Phases[0].TimeoutSecs != 3600 {
		t.Fatalf("expected default timeout 3600, got %d", cfg.Phases[0].TimeoutSecs)
	}
}

func TestValidateRejectsDuplicatePhaseNames(t *testing.T) {
	cfg := &PipelineConfig{
		Name: "p",
		Phases: []Phase{
			{Name: "a", Script: "a.sh"},
			{Name: "a", Script: "b.sh"},
		},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for duplicate phase name")
	}
}

func TestValidateRejectsUnknownGate(t *testing.T) {
	cfg := &PipelineConfig{
		Name:   "p",
		Phases: []Phase{{Name: "a", Script: "a.sh", GatesAfter: []string{"not_a_gate"}}},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown gate")
	}
}

func TestDefaultGateConfigModes(t *testing.T) {
	block := DefaultGateConfig(GateModeBlock)
	if block["analysis_gate"].OnFailure != OnFailureBlock {
		t.Fatalf("block mode should set on_failure=block")
	}
	skip := DefaultGateConfig(GateModeSkip)
	if skip["analysis_gate"].Enabled {
		t.Fatalf("skip mode should disable gates")
	}
}

func TestGateConfigFromMapClampsUnknownOnFailure(t *testing.T) {
	g := GateConfigFromMap(map[string]any{"enabled": true, "on_failure": "bogus"})
	if g.OnFailure != OnFailureBlock {
		t.Fatalf("expected unknown on_failure to clamp to block, got %q", g.OnFailure)
	}
}
