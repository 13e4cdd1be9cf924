// Package ux prints the terminal-facing, human-readable half of a run: the
// same ANSI-colored progress and summary lines the teacher's own CLI
// printed, retargeted from ticket/phase-loop status to the research
// pipeline's phases, gates, and final success matrix.
package ux

import (
	"fmt"
	"time"

	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/store"
)

const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// PhaseHeader prints a timestamped phase header.
func PhaseHeader(index, total int, phase config.Phase) {
	fmt.Printf("\n%s[%s]%s %s══════════════════════════════════════%s\n",
		Dim, timestamp(), Reset, Cyan, Reset)
	desc := ""
	if phase.Description != "" {
		desc = fmt.Sprintf(" — %s", phase.Description)
	}
	crit := ""
	if phase.Critical {
		crit = " [critical]"
	}
	fmt.Printf("%s[%s]%s  %sPhase %d/%d: %s%s%s%s\n",
		Dim, timestamp(), Reset, Bold, index+1, total, phase.Name, crit, desc, Reset)
	fmt.Printf("%s[%s]%s %s══════════════════════════════════════%s\n",
		Dim, timestamp(), Reset, Cyan, Reset)
}

// PhaseComplete prints a phase completion message, noting degradation if any.
func PhaseComplete(index int, duration time.Duration, degraded bool) {
	m := int(duration.Minutes())
	s := int(duration.Seconds()) % 60
	if degraded {
		fmt.Printf("%s[%s]%s  %s~ Phase %d completed degraded (%dm %02ds)%s\n",
			Dim, timestamp(), Reset, Yellow, index+1, m, s, Reset)
		return
	}
	fmt.Printf("%s[%s]%s  %s✓ Phase %d complete (%dm %02ds)%s\n",
		Dim, timestamp(), Reset, Green, index+1, m, s, Reset)
}

// PhaseFail prints a phase failure message.
func PhaseFail(index int, phaseName, errMsg string) {
	fmt.Printf("%s[%s]%s  %s✗ Phase %d (%s) failed: %s%s\n",
		Dim, timestamp(), Reset, Red, index+1, phaseName, errMsg, Reset)
}

// GateResult prints a gate's outcome.
func GateResult(result store.GateResult) {
	switch result.Action {
	case store.ActionPass:
		fmt.Printf("  %s✓ gate %s: pass%s\n", Green, result.GateName, Reset)
	case store.ActionDowngrade:
		fmt.Printf("  %s~ gate %s: downgrade (%d/%d claims failed)%s\n",
			Yellow, result.GateName, result.FailedClaimsTotal, result.CheckedClaimsTotal, Reset)
	case store.ActionBlock:
		fmt.Printf("  %s✗ gate %s: BLOCK (%d/%d claims failed)%s\n",
			Red, result.GateName, result.FailedClaimsTotal, result.CheckedClaimsTotal, Reset)
	case store.ActionDisabled:
		fmt.Printf("  %s– gate %s: disabled%s\n", Dim, result.GateName, Reset)
	}
}

// SuccessMatrix renders the final per-phase pass/fail/degraded table.
func SuccessMatrix(phases []store.PhaseResult) {
	fmt.Printf("\n%s%sPhase summary%s\n", Bold, Cyan, Reset)
	for _, p := range phases {
		mark, color := "✓", Green
		switch {
		case !p.Success:
			mark, color = "✗", Red
		case p.Degraded:
			mark, color = "~", Yellow
		}
		fmt.Printf("  %s%s %s%s (exit %d, %.1fs)\n", color, mark, Reset, p.PhaseName, p.ExitCode, p.ExecutionTime)
		for _, reason := range p.DegradationReasons {
			fmt.Printf("      %s↳ %s%s\n", Dim, reason, Reset)
		}
	}
}

// RunComplete prints the terminal-state banner.
func RunComplete(overallSuccess bool, degraded bool, readinessScore float64) {
	switch {
	case overallSuccess:
		fmt.Printf("\n%s%s══ Run complete — success (readiness %.2f) ══%s\n\n", Bold, Green, readinessScore, Reset)
	case degraded:
		fmt.Printf("\n%s%s══ Run complete — degraded (readiness %.2f) ══%s\n\n", Bold, Yellow, readinessScore, Reset)
	default:
		fmt.Printf("\n%s%s══ Run failed ══%s\n\n", Bold, Red, Reset)
	}
}

// ResumeHint prints a resume command hint after a failed run.
func ResumeHint(projectFolder string) {
	fmt.Printf("\n%sResume:%s researchctl run %s\n", Yellow, Reset, projectFolder)
}

// PurgeNotice prints what the pre-flight purge archived.
func PurgeNotice(archivePath string) {
	if archivePath == "" {
		fmt.Printf("%s[%s]%s  %s– outputs/ was empty, nothing to archive%s\n", Dim, timestamp(), Reset, Dim, Reset)
		return
	}
	fmt.Printf("%s[%s]%s  %s↳ archived previous outputs/ to %s%s\n", Dim, timestamp(), Reset, Dim, archivePath, Reset)
}
