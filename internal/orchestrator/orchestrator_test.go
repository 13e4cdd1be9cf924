package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/store"
)

func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "outputs"), 0755))
	return dir
}

func scriptPhase(t *testing.T, name string, exitCode int, critical bool) config.Phase {
	t.Helper()
	script := filepath.Join(t.TempDir(), name+".sh")
	body := "#!/bin/sh\nexit " + itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return config.Phase{Name: name, Script: script, Critical: critical, TimeoutSecs: 5}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts require a POSIX shell")
	}
}

func TestRunAllPhasesSucceedYieldsSuccessTerminal(t *testing.T) {
	skipOnWindows(t)
	dir := newProject(t)
	cfg := &config.PipelineConfig{
		Name:        "test",
		ProjectRoot: dir,
		Phases: []config.Phase{
			scriptPhase(t, "intake", 0, true),
			scriptPhase(t, "writing", 0, false),
		},
		Gates: config.DefaultGateConfig(config.GateModeSkip),
	}
	o := New(cfg, store.New(dir), nil)

	terminal, result, err := o.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, TerminalSuccess, terminal)
	require.True(t, result.OverallSuccess)
	require.Len(t, result.Phases, 2)
	require.Equal(t, 1.0, result.ReadinessScore)

	var onDisk store.PipelineResult
	data, err := os.ReadFile(filepath.Join(dir, "autonomous_run_result.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Equal(t, result.RunID, onDisk.RunID)
}

func TestRunNonCriticalPhaseFailureDegradesWhenMajorityStillSucceed(t *testing.T) {
	skipOnWindows(t)
	dir := newProject(t)
	cfg := &config.PipelineConfig{
		Name:        "test",
		ProjectRoot: dir,
		Phases: []config.Phase{
			scriptPhase(t, "intake", 0, true),
			scriptPhase(t, "extraction", 0, false),
			scriptPhase(t, "literature", 1, false),
		},
		Gates: config.DefaultGateConfig(config.GateModeSkip),
	}
	o := New(cfg, store.New(dir), nil)

	terminal, result, err := o.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, TerminalDegraded, terminal)
	require.False(t, result.OverallSuccess)
}

func TestRunCriticalPhaseFailureFailsEarlyButStillWritesSummary(t *testing.T) {
	skipOnWindows(t)
	dir := newProject(t)
	cfg := &config.PipelineConfig{
		Name:        "test",
		ProjectRoot: dir,
		Phases: []config.Phase{
			scriptPhase(t, "intake", 1, true),
			scriptPhase(t, "writing", 0, false),
		},
		Gates: config.DefaultGateConfig(config.GateModeSkip),
	}
	o := New(cfg, store.New(dir), nil)

	terminal, result, err := o.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, TerminalFailed, terminal)
	require.Len(t, result.Phases, 1, "the writing phase must never have run after a critical failure")

	data, err := os.ReadFile(filepath.Join(dir, "outputs", "degradation_summary.json"))
	require.NoError(t, err)
	require.JSONEq(t, `{"counts":{"total":0,"by_phase":{}},"degradations":[]}`, string(data))
}

func TestRunCatastrophicFailureStillWritesSchemaValidSummary(t *testing.T) {
	cfg := &config.PipelineConfig{Name: "test", ProjectRoot: "/nonexistent-project-folder-xyz"}
	o := New(cfg, store.New("/nonexistent-project-folder-xyz"), nil)

	terminal, result, err := o.Run(context.Background(), Options{})
	require.Error(t, err)
	require.Equal(t, TerminalFailed, terminal)
	require.False(t, result.OverallSuccess)
	require.NotNil(t, result.DegradationSummary)
	require.Empty(t, result.DegradationSummary)
}

func TestClassifyAppliesIntegerMajorityRule(t *testing.T) {
	phases := func(successCount, total int) []store.PhaseResult {
		var out []store.PhaseResult
		for i := 0; i < total; i++ {
			out = append(out, store.PhaseResult{Success: i < successCount})
		}
		return out
	}

	require.Equal(t, TerminalSuccess, classify(false, phases(3, 3), 3, nil))
	require.Equal(t, TerminalDegraded, classify(false, phases(2, 3), 3, nil))
	require.Equal(t, TerminalFailed, classify(false, phases(1, 3), 3, nil))
	require.Equal(t, TerminalDegraded, classify(false, phases(3, 3), 3, []store.DegradationEntry{{PhaseName: "x", Reason: "y"}}))
	require.Equal(t, TerminalFailed, classify(true, phases(3, 3), 3, nil))
}

func TestPurgeArchivesNonEmptyOutputsAndRecreatesEmptyDir(t *testing.T) {
	dir := newProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "outputs", "stale.json"), []byte("{}"), 0644))

	o := New(&config.PipelineConfig{ProjectRoot: dir}, store.New(dir), nil)
	archivePath, err := o.purge()
	require.NoError(t, err)
	require.NotEmpty(t, archivePath)

	_, err = os.Stat(filepath.Join(archivePath, "stale.json"))
	require.NoError(t, err, "archived file should exist under the archive path")

	entries, err := os.ReadDir(filepath.Join(dir, "outputs"))
	require.NoError(t, err)
	require.Empty(t, entries, "outputs/ must be recreated empty after purge")
}

func TestPurgeNoOutputsIsANoop(t *testing.T) {
	dir := newProject(t)
	o := New(&config.PipelineConfig{ProjectRoot: dir}, store.New(dir), nil)
	archivePath, err := o.purge()
	require.NoError(t, err)
	require.Empty(t, archivePath)
}

func TestDryRunNeverTouchesProjectFolder(t *testing.T) {
	skipOnWindows(t)
	dir := newProject(t)
	cfg := &config.PipelineConfig{
		Name:        "test",
		ProjectRoot: dir,
		Phases:      []config.Phase{scriptPhase(t, "intake", 1, true)},
	}
	o := New(cfg, store.New(dir), nil)

	terminal, result, err := o.Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)
	require.Equal(t, TerminalSuccess, terminal)
	require.Empty(t, result.Phases)

	_, err = os.Stat(filepath.Join(dir, "autonomous_run_result.json"))
	require.True(t, os.IsNotExist(err), "dry run must not write a run result")
}
