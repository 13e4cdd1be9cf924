// Package orchestrator drives the top-level pipeline state machine:
// Initializing -> Purging -> (Running[i] -> Gating[i])* -> Reporting ->
// Terminal{Success|Degraded|Failed}. It is the single place that decides
// whether a phase failure is fatal, and the single writer of the final run
// report.
package orchestrator

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/gate"
	"github.com/mkhale/researchctl/internal/phase"
	"github.com/mkhale/researchctl/internal/store"
	"github.com/mkhale/researchctl/internal/telemetry"
	"github.com/mkhale/researchctl/internal/ux"
)

// Terminal enumerates the three states a run can end in.
type Terminal string

const (
	TerminalSuccess  Terminal = "success"
	TerminalDegraded Terminal = "degraded"
	TerminalFailed   Terminal = "failed"
)

// Options configures one orchestrator run.
type Options struct {
	SkipPurge bool
	DryRun    bool
}

// Orchestrator runs the pipeline described by cfg against a project folder.
type Orchestrator struct {
	Config *config.PipelineConfig
	Store  *store.Store
	Logger *zap.SugaredLogger
}

// New constructs an Orchestrator.
func New(cfg *config.PipelineConfig, s *store.Store, logger *zap.SugaredLogger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Orchestrator{Config: cfg, Store: s, Logger: logger}
}

// readinessReportCandidates are the paths Reporting checks, in order, for
// an optional readiness_report.json produced by the writing/assembly phases.
var readinessReportCandidates = []string{
	filepath.Join("outputs", "readiness_report.json"),
	filepath.Join("paper", "readiness_report.json"),
	"readiness_report.json",
}

// Run executes the full state machine and returns the terminal state plus
// the PipelineResult it wrote.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Terminal, store.PipelineResult, error) {
	runID := uuid.New().String()
	startedAt := time.Now().UTC()

	result := store.PipelineResult{
		RunID:         runID,
		ProjectFolder: o.Store.ProjectFolder,
		StartedAt:     startedAt,
	}

	if _, err := os.Stat(o.Store.ProjectFolder); err != nil {
		o.Logger.Errorw("project folder invalid", "project_folder", o.Store.ProjectFolder, "error", err)
		return o.reportCatastrophic(result, startedAt, fmt.Errorf("project folder: %w", err))
	}

	if opts.DryRun {
		o.printDryRun()
		result.FinishedAt = time.Now().UTC()
		return TerminalSuccess, result, nil
	}

	if !opts.SkipPurge {
		archivePath, err := o.purge()
		if err != nil {
			o.Logger.Errorw("purge failed", "error", err)
			return o.reportCatastrophic(result, startedAt, fmt.Errorf("purge: %w", err))
		}
		ux.PurgeNotice(archivePath)
	}

	var phaseResults []store.PhaseResult
	var degradations []store.DegradationEntry
	failedCritically := false

	for i, p := range o.Config.Phases {
		if ctx.Err() != nil {
			return o.reportCatastrophic(result, startedAt, ctx.Err())
		}

		ux.PhaseHeader(i, len(o.Config.Phases), p)
		start := time.Now()

		phaseCtx, phaseSpan := telemetry.StartSpan(ctx, "phase."+p.Name)
		phaseRes, err := phase.Run(phaseCtx, p, o.Store.ProjectFolder, o.Logger)
		elapsed := time.Since(start).Seconds()
		telemetry.SafeSetAttributes(phaseSpan,
			attribute.String("phase.name", p.Name),
			attribute.Bool("phase.critical", p.Critical),
			attribute.Float64("phase.execution_time", elapsed),
		)
		phaseSpan.End()
		if err != nil {
			o.Logger.Errorw("phase executor error", "phase", p.Name, "error", err)
			pr := store.PhaseResult{PhaseID: p.Name, PhaseName: p.Name, Success: false, ExecutionTime: elapsed}
			phaseResults = append(phaseResults, pr)
			ux.PhaseFail(i, p.Name, err.Error())
			if p.Critical {
				failedCritically = true
				break
			}
			continue
		}

		success := phaseRes.ExitCode == 0
		pr := phaseRes.ToPhaseResult(p.Name, p.Name, success, elapsed)
		phaseResults = append(phaseResults, pr)

		if pr.Degraded {
			for _, reason := range pr.DegradationReasons {
				degradations = append(degradations, store.DegradationEntry{PhaseName: p.Name, Reason: reason})
			}
		}

		if !success {
			ux.PhaseFail(i, p.Name, fmt.Sprintf("exit code %d", phaseRes.ExitCode))
			o.writeRemedy(p.Name, fmt.Sprintf("phase exited %d", phaseRes.ExitCode))
			if p.Critical {
				failedCritically = true
				break
			}
			continue
		}

		ux.PhaseComplete(i, time.Duration(elapsed*float64(time.Second)), pr.Degraded)

		blocked, gateDegradations, err := o.runGates(ctx, p)
		if err != nil {
			o.Logger.Errorw("gate evaluation error", "phase", p.Name, "error", err)
			if p.Critical {
				failedCritically = true
				break
			}
			continue
		}
		degradations = append(degradations, gateDegradations...)
		if blocked {
			o.writeRemedy(p.Name, "gate blocked pipeline")
			failedCritically = true
			break
		}
	}

	result.Phases = phaseResults
	result.FinishedAt = time.Now().UTC()
	result.TotalExecutionTime = result.FinishedAt.Sub(startedAt).Seconds()

	if count, err := o.Store.EvidenceItemsCount(); err == nil {
		result.EvidenceItemsCount = count
	}

	terminal := classify(failedCritically, phaseResults, len(o.Config.Phases), degradations)
	result.OverallSuccess = terminal == TerminalSuccess
	result.ReadinessScore = o.readinessScore(terminal)
	result.DegradationSummary = degradations

	if err := o.Store.WriteRunResult(result); err != nil {
		return terminal, result, fmt.Errorf("writing run result: %w", err)
	}
	if err := o.Store.WriteDegradationSummary(degradations); err != nil {
		return terminal, result, fmt.Errorf("writing degradation summary: %w", err)
	}

	ux.SuccessMatrix(phaseResults)
	ux.RunComplete(result.OverallSuccess, terminal == TerminalDegraded, result.ReadinessScore)
	if terminal == TerminalFailed {
		ux.ResumeHint(o.Store.ProjectFolder)
	}

	return terminal, result, nil
}

// classify applies the partial-failure policy from the state machine's
// Reporting transition.
func classify(failedCritically bool, phases []store.PhaseResult, totalPhases int, degradations []store.DegradationEntry) Terminal {
	if failedCritically {
		return TerminalFailed
	}

	successful := 0
	anyDegraded := len(degradations) > 0
	for _, p := range phases {
		if p.Success {
			successful++
		}
		if p.Degraded {
			anyDegraded = true
		}
	}

	if successful == totalPhases && !anyDegraded {
		return TerminalSuccess
	}
	if successful*2 >= totalPhases {
		return TerminalDegraded
	}
	return TerminalFailed
}

// readinessScore is a simple proxy until a richer readiness_report.json is
// available: 1.0 for a clean success, 0.5 for degraded, 0.0 for failed —
// overridden below if a report exists.
func (o *Orchestrator) readinessScore(terminal Terminal) float64 {
	report, ok, err := o.Store.ReadReadinessReport(readinessReportCandidates...)
	if err == nil && ok {
		if score, ok := report["readiness_score"].(float64); ok {
			return score
		}
	}
	switch terminal {
	case TerminalSuccess:
		return 1.0
	case TerminalDegraded:
		return 0.5
	default:
		return 0.0
	}
}

// runGates runs every gate whose GatesAfter includes phaseName's results
// (declared on the phase itself), returning whether any gate blocked.
func (o *Orchestrator) runGates(ctx context.Context, p config.Phase) (blocked bool, degradations []store.DegradationEntry, err error) {
	for _, gateName := range p.GatesAfter {
		evaluator, ok := gate.Registry[gateName]
		if !ok {
			continue
		}
		_, gateSpan := telemetry.StartSpan(ctx, "gate."+gateName)
		gateCfg := o.Config.Gates[gateName]
		result, err := evaluator(o.Store.ProjectFolder, gateCfg)
		telemetry.SafeSetAttributes(gateSpan,
			attribute.String("gate.name", gateName),
			attribute.String("gate.action", string(result.Action)),
			attribute.Bool("gate.ok", result.OK),
		)
		gateSpan.End()
		if err != nil {
			return false, degradations, fmt.Errorf("gate %s: %w", gateName, err)
		}
		ux.GateResult(result)

		switch result.Action {
		case store.ActionBlock:
			return true, degradations, nil
		case store.ActionDowngrade:
			degradations = append(degradations, store.DegradationEntry{
				PhaseName: p.Name,
				Reason:    fmt.Sprintf("%s downgraded (%d/%d claims failed)", gateName, result.FailedClaimsTotal, result.CheckedClaimsTotal),
			})
		}
	}
	return false, degradations, nil
}

// reportCatastrophic handles a failure so early no phase ever ran: it still
// writes a schema-valid (empty) degradation summary and run result, per the
// spec's requirement that even catastrophic failure leaves a trace behind.
func (o *Orchestrator) reportCatastrophic(result store.PipelineResult, startedAt time.Time, cause error) (Terminal, store.PipelineResult, error) {
	result.FinishedAt = time.Now().UTC()
	result.TotalExecutionTime = result.FinishedAt.Sub(startedAt).Seconds()
	result.OverallSuccess = false
	result.DegradationSummary = []store.DegradationEntry{}

	if writeErr := o.Store.WriteRunResult(result); writeErr != nil {
		return TerminalFailed, result, fmt.Errorf("%v (also failed writing run result: %w)", cause, writeErr)
	}
	if writeErr := o.Store.WriteDegradationSummary(nil); writeErr != nil {
		return TerminalFailed, result, fmt.Errorf("%v (also failed writing degradation summary: %w)", cause, writeErr)
	}
	return TerminalFailed, result, cause
}

func (o *Orchestrator) writeRemedy(phaseID, reason string) {
	if err := o.Store.WriteRemedyLine(time.Now().UTC().Format(time.RFC3339), phaseID, reason); err != nil {
		o.Logger.Warnw("failed to write remedy line", "error", err)
	}
}

func (o *Orchestrator) printDryRun() {
	fmt.Printf("\n%s%sDry run — %d phases:%s\n\n", ux.Bold, ux.Cyan, len(o.Config.Phases), ux.Reset)
	for i, p := range o.Config.Phases {
		fmt.Printf("  %s%d.%s %s%s%s", ux.Cyan, i+1, ux.Reset, ux.Bold, p.Name, ux.Reset)
		if p.Description != "" {
			fmt.Printf(" — %s", p.Description)
		}
		fmt.Println()
		fmt.Printf("     script: %s, critical: %v, timeout: %ds\n", p.Script, p.Critical, p.TimeoutSecs)
		if len(p.GatesAfter) > 0 {
			fmt.Printf("     gates: %v\n", p.GatesAfter)
		}
	}
	fmt.Println()
}

// purge implements the Purging transition: clear temp/, archive non-empty
// outputs/ under archives/outputs_archive_<ts>/, recreate an empty outputs/.
// Returns the archive path, or "" if there was nothing to archive.
func (o *Orchestrator) purge() (string, error) {
	if err := removeBytecodeCaches(o.Store.ProjectFolder); err != nil {
		return "", err
	}

	tempDir := filepath.Join(o.Store.ProjectFolder, "temp")
	if err := os.RemoveAll(tempDir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return "", err
	}

	outputsDir := filepath.Join(o.Store.ProjectFolder, "outputs")
	entries, err := os.ReadDir(outputsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", os.MkdirAll(outputsDir, 0755)
		}
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}

	archiveName := fmt.Sprintf("outputs_archive_%s", time.Now().UTC().Format("20060102T150405Z"))
	archivePath := filepath.Join(o.Store.ProjectFolder, "archives", archiveName)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", err
	}
	if err := os.Rename(outputsDir, archivePath); err != nil {
		return "", err
	}
	if err := os.MkdirAll(outputsDir, 0755); err != nil {
		return "", err
	}
	return archivePath, nil
}

// bytecodeCacheDirs are deleted recursively during purge, mirroring the
// teacher's pre-flight cleanup of stale tool state (its equivalent of
// __pycache__/.pyc trees under the project and repo root).
var bytecodeCacheDirs = []string{"__pycache__", ".pytest_cache"}

func removeBytecodeCaches(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		for _, name := range bytecodeCacheDirs {
			if d.Name() == name {
				if rmErr := os.RemoveAll(path); rmErr != nil {
					return rmErr
				}
				return filepath.SkipDir
			}
		}
		return nil
	})
}
