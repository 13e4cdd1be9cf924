// Package store is the sole custodian of the on-disk project layout: typed
// read/write operations over project.json, per-source evidence, claims,
// metrics, citations, sections, and gate reports. Whole-file writes are
// atomic (temp-file + rename); the remedy list is appended in place. Reads
// return records without validating them, so structurally invalid records
// reach the caller (gates validate and count them); a file that is not valid
// JSON fails the read with errs.SchemaInvalid. The store itself counts no
// invalid records.
package store

import "time"

// EvidenceKind enumerates the kinds an EvidenceItem may carry.
type EvidenceKind string

const (
	EvidenceQuote      EvidenceKind = "quote"
	EvidenceParaphrase EvidenceKind = "paraphrase"
	EvidenceMetric     EvidenceKind = "metric"
	EvidenceFigure     EvidenceKind = "figure"
	EvidenceTable      EvidenceKind = "table"
)

// Span is an inclusive line range.
type Span struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// Locator points at where a piece of evidence came from within its source.
type Locator struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Span  Span   `json:"span"`
}

// ParserInfo identifies the parser that produced a record.
type ParserInfo struct {
	Name string `json:"name"`
}

// EvidenceItem is one extracted piece of evidence from a source.
type EvidenceItem struct {
	SchemaVersion string       `json:"schema_version"`
	CreatedAt     time.Time    `json:"created_at"`
	EvidenceID    string       `json:"evidence_id"`
	SourceID      string       `json:"source_id"`
	Kind          EvidenceKind `json:"kind"`
	Locator       Locator      `json:"locator"`
	Excerpt       string       `json:"excerpt"`
	Context       string       `json:"context,omitempty"`
	Parser        ParserInfo   `json:"parser"`
}

// ClaimKind enumerates the kinds a ClaimRecord may carry.
type ClaimKind string

const (
	ClaimSourceBacked ClaimKind = "source_backed"
	ClaimComputed     ClaimKind = "computed"
	ClaimTheoretical  ClaimKind = "theoretical"
)

// ClaimRecord is one claim made in the paper, with its provenance.
type ClaimRecord struct {
	SchemaVersion string    `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
	ClaimID       string    `json:"claim_id"`
	Kind          ClaimKind `json:"kind"`
	Statement     string    `json:"statement"`
	CitationKeys  []string  `json:"citation_keys,omitempty"`
	EvidenceIDs   []string  `json:"evidence_ids,omitempty"`
	MetricKeys    []string  `json:"metric_keys,omitempty"`
}

// Metric is one computed or reported numeric result.
type Metric struct {
	SchemaVersion string    `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
	MetricKey     string    `json:"metric_key"`
	Name          string    `json:"name"`
	Value         float64   `json:"value"`
	Unit          string    `json:"unit,omitempty"`
}

// CitationStatus enumerates verification states for a CitationRecord.
type CitationStatus string

const (
	CitationUnverified CitationStatus = "unverified"
	CitationVerified   CitationStatus = "verified"
	CitationRejected   CitationStatus = "rejected"
)

// Identifiers holds the external identifiers a citation may carry.
type Identifiers struct {
	DOI      string `json:"doi,omitempty"`
	URL      string `json:"url,omitempty"`
	OpenAlex string `json:"openalex,omitempty"`
}

// VerificationAttempt records one bibliography-resolver attempt.
type VerificationAttempt struct {
	Provider  string    `json:"provider"`
	OK        bool      `json:"ok"`
	CheckedAt time.Time `json:"checked_at"`
}

// Verification is the trail of resolver attempts for a citation.
type Verification struct {
	ProviderUsed string                 `json:"provider_used,omitempty"`
	LastChecked  time.Time              `json:"last_checked"`
	Attempts     []VerificationAttempt  `json:"attempts,omitempty"`
}

// CitationRecord is one entry in the project's citation registry.
type CitationRecord struct {
	SchemaVersion          string        `json:"schema_version"`
	CreatedAt              time.Time     `json:"created_at"`
	CitationKey            string        `json:"citation_key"`
	Title                  string        `json:"title"`
	Authors                []string      `json:"authors"`
	Year                   int           `json:"year"`
	Identifiers            Identifiers   `json:"identifiers"`
	Status                 CitationStatus `json:"status"`
	Verification           *Verification `json:"verification,omitempty"`
	ManualVerificationRequired bool      `json:"manual_verification_required"`
}

// GateAction is the outcome of a gate evaluation.
type GateAction string

const (
	ActionPass       GateAction = "pass"
	ActionBlock      GateAction = "block"
	ActionDowngrade  GateAction = "downgrade"
	ActionDisabled   GateAction = "disabled"
)

// GateReportEntry is one per-record finding within a GateResult.
type GateReportEntry struct {
	ID      string   `json:"id"`
	OK      bool     `json:"ok"`
	Skipped bool     `json:"skipped,omitempty"`
	Reasons []string `json:"reasons,omitempty"`
	Score   float64  `json:"score,omitempty"`
}

// GateResult is the structured outcome of one gate's evaluation.
type GateResult struct {
	SchemaVersion       string            `json:"schema_version"`
	CreatedAt           time.Time         `json:"created_at"`
	GateName            string            `json:"gate_name"`
	Enabled             bool              `json:"enabled"`
	OK                  bool              `json:"ok"`
	Action              GateAction        `json:"action"`
	Reports             []GateReportEntry `json:"reports"`
	CheckedClaimsTotal  int               `json:"checked_claims_total,omitempty"`
	FailedClaimsTotal   int               `json:"failed_claims_total,omitempty"`
	SkippedMissingTotal int               `json:"skipped_missing_total,omitempty"`
}

// AgentResult is the outcome of one agent invocation.
type AgentResult struct {
	SchemaVersion  string         `json:"schema_version"`
	CreatedAt      time.Time      `json:"created_at"`
	AgentName      string         `json:"agent_name"`
	TaskType       string         `json:"task_type"`
	ModelTier      string         `json:"model_tier"`
	Success        bool           `json:"success"`
	Content        string         `json:"content"`
	StructuredData map[string]any `json:"structured_data,omitempty"`
	TokensUsed     int            `json:"tokens_used"`
	ExecutionTime  float64        `json:"execution_time"`
	Timestamp      time.Time      `json:"timestamp"`
	Error          string         `json:"error,omitempty"`
}

// PhaseResult is the outcome of one phase run.
type PhaseResult struct {
	PhaseID            string    `json:"phase_id"`
	PhaseName          string    `json:"phase_name"`
	Success            bool      `json:"success"`
	ExitCode           int       `json:"exit_code"`
	ExecutionTime      float64   `json:"execution_time"`
	Degraded           bool      `json:"degraded"`
	DegradationReasons []string  `json:"degradation_reasons,omitempty"`
	ErrorCount         int       `json:"error_count"`
	WarningCount       int       `json:"warning_count"`
	CriticalCount      int       `json:"critical_count"`
}

// ProjectMetadata is the immutable submission metadata written by intake.
type ProjectMetadata struct {
	SchemaVersion   string   `json:"schema_version"`
	CreatedAt       time.Time `json:"created_at"`
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	ResearchQuestion string  `json:"research_question"`
	Hypothesis      string   `json:"hypothesis,omitempty"`
	TargetJournal   string   `json:"target_journal"`
	PaperType       string   `json:"paper_type"`
	HasData         bool     `json:"has_data"`
	DataSources     []string `json:"data_sources,omitempty"`
	Methodology     string   `json:"methodology,omitempty"`
}

// DegradationEntry is one recorded degradation in a run's summary.
type DegradationEntry struct {
	PhaseName string `json:"phase_name"`
	Reason    string `json:"reason"`
}

// DegradationCounts aggregates a run's degradations for the standalone
// degradation_summary.json's schema-validated "counts" object.
type DegradationCounts struct {
	Total   int            `json:"total"`
	ByPhase map[string]int `json:"by_phase"`
}

// DegradationSummary is the schema-validated object written to
// outputs/degradation_summary.json — distinct from the flat
// degradation_summary[] array embedded in autonomous_run_result.json.
type DegradationSummary struct {
	Counts       DegradationCounts  `json:"counts"`
	Degradations []DegradationEntry `json:"degradations"`
}

// PipelineResult is the top-level outcome of one orchestrator run, written
// to autonomous_run_result.json.
type PipelineResult struct {
	RunID               string             `json:"run_id"`
	ProjectFolder       string             `json:"project_folder"`
	StartedAt           time.Time          `json:"started_at"`
	FinishedAt          time.Time          `json:"finished_at"`
	TotalExecutionTime  float64            `json:"total_execution_time"`
	OverallSuccess      bool               `json:"overall_success"`
	Phases              []PhaseResult      `json:"phases"`
	EvidenceItemsCount  int                `json:"evidence_items_count"`
	ReadinessScore      float64            `json:"readiness_score"`
	DegradationSummary  []DegradationEntry `json:"degradation_summary"`
}
