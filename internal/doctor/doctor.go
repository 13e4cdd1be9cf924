// Package doctor diagnoses a failed or degraded run by handing its recorded
// failure artifacts — the last phase's result, the degradation summary, and
// the remedy log — to an LLM for a concise, actionable read, the same way
// the teacher's doctor command diagnosed a failed workflow phase.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkhale/researchctl/internal/llmclient"
	"github.com/mkhale/researchctl/internal/report"
	"github.com/mkhale/researchctl/internal/store"
	"github.com/mkhale/researchctl/internal/ux"
)

const maxRemedyLines = 200

const diagPrompt = `You are diagnosing a failed or degraded autonomous research-paper pipeline run. Analyze the context below and provide a concise diagnosis.

## Run Summary
%s

## Phase Results
%s

## Degradation Summary
%s

## Remedy Log (last %d lines)
%s

Instructions:
1. Identify what went wrong, citing the specific phase(s) and reason(s).
2. Classify each problem as a PIPELINE issue (gate thresholds, phase ordering, missing inputs) or a CONTENT issue (the paper itself: weak evidence, unverifiable citations).
3. Suggest specific fixes.
4. Recommend whether the next step should be "researchctl run <project_folder>" (re-run clean) or "researchctl gate <name> <project_folder>" (re-check a single gate after a manual fix).

Be direct and concise. Focus on actionable advice.`

// Run gathers failure context from the project folder and sends it to the
// configured LLM for diagnosis. A project with no run result on file, or
// whose last run succeeded cleanly, has nothing to diagnose.
func Run(ctx context.Context, s *store.Store, llm *llmclient.Client) error {
	sum, err := report.Load(s)
	if err != nil {
		return fmt.Errorf("loading run result: %w", err)
	}
	if !sum.HasResult {
		fmt.Println("no run result on file for this project — nothing to diagnose")
		return nil
	}
	if sum.Result.OverallSuccess && len(sum.Degradations) == 0 {
		fmt.Println("the last run succeeded cleanly — nothing to diagnose")
		return nil
	}

	runSummary := gatherRunSummary(sum)
	phaseResults := gatherPhaseResults(sum)
	degradationSummary := gatherDegradations(sum)
	remedy := gatherRemedyLog(s.ProjectFolder)

	prompt := fmt.Sprintf(diagPrompt, runSummary, phaseResults, degradationSummary, maxRemedyLines, remedy)

	fmt.Printf("\n%s%s══ Doctor: diagnosing run %s ══%s\n\n", ux.Bold, ux.Cyan, sum.Result.RunID, ux.Reset)

	if llm == nil {
		return fmt.Errorf("no LLM client configured (set ANTHROPIC_API_KEY)")
	}

	text, _, err := llm.Chat(ctx, []llmclient.Message{{Role: "user", Content: prompt}}, "", llmclient.TaskReview)
	if err != nil {
		return fmt.Errorf("diagnosis call failed: %w", err)
	}
	fmt.Println(text)
	fmt.Println()
	ux.ResumeHint(s.ProjectFolder)
	return nil
}

func gatherRunSummary(sum report.Summary) string {
	return fmt.Sprintf("run_id: %s\noverall_success: %v\nreadiness_score: %.2f\nevidence_items: %d",
		sum.Result.RunID, sum.Result.OverallSuccess, sum.Result.ReadinessScore, sum.Result.EvidenceItemsCount)
}

func gatherPhaseResults(sum report.Summary) string {
	var lines []string
	for _, p := range sum.Result.Phases {
		status := "ok"
		switch {
		case !p.Success:
			status = "FAILED"
		case p.Degraded:
			status = "degraded"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s (exit %d, %d errors, %d warnings)",
			p.PhaseName, status, p.ExitCode, p.ErrorCount, p.WarningCount))
	}
	if len(lines) == 0 {
		return "(no phases ran)"
	}
	return strings.Join(lines, "\n")
}

func gatherDegradations(sum report.Summary) string {
	if len(sum.Degradations) == 0 {
		return "(none recorded)"
	}
	var lines []string
	for _, d := range sum.Degradations {
		lines = append(lines, fmt.Sprintf("- %s: %s", d.PhaseName, d.Reason))
	}
	return strings.Join(lines, "\n")
}

func gatherRemedyLog(projectFolder string) string {
	path := filepath.Join(projectFolder, "logs", "REMEDY_LIST.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "(no remedy log found)"
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > maxRemedyLines {
		lines = lines[len(lines)-maxRemedyLines:]
	}
	return strings.Join(lines, "\n")
}
