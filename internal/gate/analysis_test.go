package gate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/store"
)

func writeProject(t *testing.T, dir string, hasData bool) {
	t.Helper()
	meta := store.ProjectMetadata{ID: "proj-1", Title: "t", HasData: hasData}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "project.json"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestAnalysisGateSkipsNonDataProjects(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, false)

	result, err := EvaluateAnalysisGate(dir, testCfg(config.OnFailureBlock))
	if err != nil {
		t.Fatal(err)
	}
	if result.Action != store.ActionPass {
		t.Fatalf("expected pass for non-data project, got %s", result.Action)
	}
}

func TestAnalysisGateFailsWhenDataProjectHasNoMetrics(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, true)

	result, err := EvaluateAnalysisGate(dir, testCfg(config.OnFailureBlock))
	if err != nil {
		t.Fatal(err)
	}
	if result.Action != store.ActionBlock {
		t.Fatalf("expected block, got %s", result.Action)
	}
}

func TestAnalysisGatePassesWhenDataProjectHasMetrics(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, true)
	s := store.New(dir)
	if err := s.AppendMetrics([]store.Metric{{MetricKey: "m1", Name: "f1", Value: 1.0}}); err != nil {
		t.Fatal(err)
	}

	result, err := EvaluateAnalysisGate(dir, testCfg(config.OnFailureBlock))
	if err != nil {
		t.Fatal(err)
	}
	if result.Action != store.ActionPass {
		t.Fatalf("expected pass, got %s", result.Action)
	}
}
