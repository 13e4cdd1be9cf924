// Package agent is the generic harness every research-pipeline agent runs
// under: a static spec plus a strategy function, looked up by id from a
// registry — no base-class hierarchy.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/mkhale/researchctl/internal/errs"
	"github.com/mkhale/researchctl/internal/llmclient"
	"github.com/mkhale/researchctl/internal/store"
)

// Spec describes one agent's static shape.
type Spec struct {
	Name                  string
	TaskType              llmclient.TaskType
	SystemPrompt          string
	ModelTier             llmclient.ModelTier
	UsesExtendedThinking  bool
	InputSchema           []string // artifact keys the runtime must gather before invoking
	OutputSchema          []string // artifact keys the strategy is expected to write
	CanCall               []string // other agent ids this agent may invoke
	SupportsRevision      bool
}

// Strategy is the function a Spec is paired with in the Registry: it reads
// whatever it needs from the store directly and returns a result.
type Strategy func(ctx context.Context, s *store.Store, input Input) (store.AgentResult, error)

// Input is the context the runtime builds for a strategy call, gathered per
// the agent's declared InputSchema. LLM is nil-safe: deterministic
// strategies never touch it, and a strategy that needs it must check for
// nil before dialing out (mirrors optional-dependency wiring elsewhere in
// the pipeline rather than forcing every caller to construct a client).
type Input struct {
	ProjectFolder string
	Artifacts     map[string]any
	LLM           *llmclient.Client
}

// entry pairs a Spec with its Strategy in the Registry.
type entry struct {
	Spec     Spec
	Strategy Strategy
}

// Registry is the static map of agent id to its spec and strategy.
var Registry = map[string]entry{}

// Register adds an agent to the Registry. Intended to be called from
// package init() in files that define individual agents.
func Register(id string, spec Spec, strategy Strategy) {
	Registry[id] = entry{Spec: spec, Strategy: strategy}
}

// RevisionTrigger carries the feedback loop's iteration count and feedback
// text into a revision-capable agent's next invocation.
type RevisionTrigger struct {
	Iteration     int
	MaxIterations int
	Feedback      string
}

// ConvergenceCriteria bounds a revision loop.
type ConvergenceCriteria struct {
	QualityThreshold  float64
	MaxIterations     int
	MinImprovement    float64
	RequireNoCritical bool
}

// StopReason names why a revision loop ended.
type StopReason string

const (
	StopThresholdMet      StopReason = "quality_threshold_met"
	StopNoCriticalLowGain StopReason = "no_critical_issues_low_improvement"
	StopMaxIterations     StopReason = "max_iterations_reached"
)

// QualityScore is the structured rating a review/critique agent assigns.
type QualityScore struct {
	Overall      float64
	Accuracy     float64
	Completeness float64
	Clarity      float64
	Consistency  float64
	Methodology  float64
	Contribution float64
	Style        float64
}

// IssueSeverity enumerates a feedback issue's severity.
type IssueSeverity string

const (
	SeverityCritical   IssueSeverity = "critical"
	SeverityMajor      IssueSeverity = "major"
	SeverityMinor      IssueSeverity = "minor"
	SeveritySuggestion IssueSeverity = "suggestion"
)

// Issue is one finding in a FeedbackResponse.
type Issue struct {
	Category          string
	Severity          IssueSeverity
	Description       string
	Location          string
	Suggestion        string
	AffectsDownstream bool
}

// FeedbackResponse is what review/critique agents produce.
type FeedbackResponse struct {
	QualityScore      QualityScore
	Issues            []Issue
	Summary           string
	RevisionRequired  bool
	RevisionPriority  []string
}

// HasCritical reports whether fb carries any critical-severity issue.
func (fb FeedbackResponse) HasCritical() bool {
	for _, issue := range fb.Issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Invoke runs the named agent's strategy under an optional wall-clock
// budget. On timeout it returns a failed AgentResult with errs.BudgetExceeded
// rather than propagating the context error to the caller.
func Invoke(ctx context.Context, s *store.Store, id string, input Input, budget time.Duration) (store.AgentResult, error) {
	e, ok := Registry[id]
	if !ok {
		return store.AgentResult{}, errs.Wrap(errs.NotFound, errNotRegistered(id))
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if budget > 0 {
		runCtx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	start := time.Now()
	result, err := e.Strategy(runCtx, s, input)
	result.ExecutionTime = time.Since(start).Seconds()
	result.Timestamp = time.Now().UTC()
	result.AgentName = e.Spec.Name
	result.TaskType = string(e.Spec.TaskType)
	result.ModelTier = string(e.Spec.ModelTier)

	if err != nil && runCtx.Err() == context.DeadlineExceeded {
		result.Success = false
		result.Error = errs.BudgetExceeded.Error()
		return result, nil
	}
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		return result, nil
	}
	return result, nil
}

// RunWithRevision drives a SupportsRevision-capable agent through repeated
// invocations, feeding each round's feedback into the next, until one of the
// three convergence stop conditions is met.
func RunWithRevision(
	ctx context.Context,
	s *store.Store,
	id string,
	input Input,
	criteria ConvergenceCriteria,
	critique func(store.AgentResult) FeedbackResponse,
) (store.AgentResult, StopReason, error) {
	var last store.AgentResult
	var lastScore float64

	maxIter := criteria.MaxIterations
	if maxIter <= 0 {
		maxIter = 1
	}

	for iteration := 1; iteration <= maxIter; iteration++ {
		result, err := Invoke(ctx, s, id, input, 0)
		if err != nil {
			return result, "", err
		}
		last = result

		fb := critique(result)
		score := fb.QualityScore.Overall

		if score >= criteria.QualityThreshold {
			return last, StopThresholdMet, nil
		}
		if criteria.RequireNoCritical && !fb.HasCritical() && (score-lastScore) < criteria.MinImprovement && iteration > 1 {
			return last, StopNoCriticalLowGain, nil
		}
		if iteration == maxIter {
			return last, StopMaxIterations, nil
		}

		lastScore = score
		input.Artifacts["revision_feedback"] = strings.Join(fb.RevisionPriority, "; ")
	}

	return last, StopMaxIterations, nil
}

type notRegisteredError struct{ id string }

func (e *notRegisteredError) Error() string { return "agent not registered: " + e.id }

func errNotRegistered(id string) error { return &notRegisteredError{id: id} }
