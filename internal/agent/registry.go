package agent

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mkhale/researchctl/internal/biblio"
	"github.com/mkhale/researchctl/internal/errs"
	"github.com/mkhale/researchctl/internal/litclient"
	"github.com/mkhale/researchctl/internal/llmclient"
	"github.com/mkhale/researchctl/internal/store"
)

// init registers the concrete agents the research pipeline's phases invoke.
// Individual agent prompt content is treated as an external collaborator's
// detail (§6) — the system prompts below are the harness's contract with
// the model, not the model's internal reasoning.
func init() {
	Register("claim_extractor", Spec{
		Name:         "claim_extractor",
		TaskType:     llmclient.TaskExtraction,
		SystemPrompt: "Extract claims from the attached evidence. For each claim classify it as source_backed, computed, or theoretical, and cite the evidence or metric keys it depends on.",
		ModelTier:    llmclient.TierSmall,
		InputSchema:  []string{"evidence_items", "metrics"},
		OutputSchema: []string{"claims"},
	}, claimExtractorStrategy)

	Register("citation_verifier", Spec{
		Name:         "citation_verifier",
		TaskType:     llmclient.TaskExtraction,
		SystemPrompt: "",
		ModelTier:    llmclient.TierSmall,
		InputSchema:  []string{"citations"},
		OutputSchema: []string{"citations"},
	}, citationVerifierStrategy)

	Register("section_writer", Spec{
		Name:                 "section_writer",
		TaskType:             llmclient.TaskDrafting,
		SystemPrompt:         "Draft the requested paper section from the project's claims and evidence, citing claim ids inline.",
		ModelTier:            llmclient.TierBalance,
		InputSchema:          []string{"project", "claims", "evidence_items"},
		OutputSchema:         []string{"section_tex"},
		SupportsRevision:     true,
		CanCall:              []string{"quality_reviewer"},
	}, sectionWriterStrategy)

	Register("quality_reviewer", Spec{
		Name:                 "quality_reviewer",
		TaskType:             llmclient.TaskReview,
		SystemPrompt:         "Critique the attached section draft against the claims it cites. Score quality on 8 axes, list issues by severity, and say whether revision is required.",
		ModelTier:            llmclient.TierLarge,
		UsesExtendedThinking: true,
		InputSchema:          []string{"section_tex", "claims"},
		OutputSchema:         []string{"feedback"},
	}, qualityReviewerStrategy)

	Register("gap_synthesizer", Spec{
		Name:         "gap_synthesizer",
		TaskType:     llmclient.TaskSynthesis,
		SystemPrompt: "Given the current claims and literature, identify unresolved gaps the paper should address and propose how to close each one.",
		ModelTier:    llmclient.TierLarge,
		InputSchema:  []string{"claims", "citations"},
		OutputSchema: []string{"gap_report"},
	}, gapSynthesizerStrategy)

	Register("literature_search", Spec{
		Name:         "literature_search",
		TaskType:     llmclient.TaskExtraction,
		SystemPrompt: "",
		ModelTier:    llmclient.TierSmall,
		InputSchema:  []string{"query"},
		OutputSchema: []string{"citations"},
	}, literatureSearchStrategy)
}

var (
	litOnce   sync.Once
	litClient *litclient.Client

	biblioOnce     sync.Once
	biblioResolver *biblio.Resolver
)

// sharedLiteratureClient lazily constructs the literature client from
// EDISON_API_KEY, so a project with no key configured still gets a usable
// (if unavailable) client rather than a nil pointer.
func sharedLiteratureClient() *litclient.Client {
	litOnce.Do(func() {
		apiKey := os.Getenv("EDISON_API_KEY")
		if apiKey == "" {
			litClient = litclient.New(nil, fmt.Errorf("EDISON_API_KEY not set"))
			return
		}
		provider := litclient.NewHTTPProvider("https://api.edisonscientific.com/v1", apiKey)
		litClient = litclient.New(provider, nil)
	})
	return litClient
}

// sharedBiblioResolver lazily constructs the Crossref-primary,
// OpenAlex-fallback resolver shared by every citation_verifier invocation.
func sharedBiblioResolver() *biblio.Resolver {
	biblioOnce.Do(func() {
		biblioResolver = biblio.New(biblio.NewCrossrefProvider(), biblio.NewOpenAlexProvider(), 24)
	})
	return biblioResolver
}

// claimExtractorStrategy is LLM-backed: it asks the model to read the
// evidence already on disk and propose claims, and returns the model's text
// as the result's Content. It does not parse that text into ClaimRecords,
// does not validate it, and does not write anything to claims.json.
func claimExtractorStrategy(ctx context.Context, s *store.Store, input Input) (store.AgentResult, error) {
	if input.LLM == nil {
		return store.AgentResult{}, errs.Wrap(errs.Transport, fmt.Errorf("claim_extractor requires an LLM client"))
	}

	evidenceSummary, err := summarizeEvidence(s)
	if err != nil {
		return store.AgentResult{}, err
	}

	messages := []llmclient.Message{{Role: "user", Content: evidenceSummary}}
	text, tokens, err := input.LLM.Chat(ctx, messages, registryEntry("claim_extractor").Spec.SystemPrompt, llmclient.TaskExtraction)
	if err != nil {
		return store.AgentResult{}, err
	}

	return store.AgentResult{
		Success:    true,
		Content:    text,
		TokensUsed: tokens,
	}, nil
}

func summarizeEvidence(s *store.Store) (string, error) {
	sources, err := s.IterEvidenceFiles()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, src := range sources {
		items, err := s.ReadEvidenceItems(src)
		if err != nil {
			return "", err
		}
		for _, item := range items {
			fmt.Fprintf(&b, "[%s] %s\n", item.EvidenceID, item.Excerpt)
		}
	}
	return b.String(), nil
}

// citationVerifierStrategy is deterministic: it never calls an LLM. For
// every citation with a DOI that is missing or stale verification, it
// resolves metadata through the shared Crossref/OpenAlex resolver, merges
// the result back onto the record, then dedups by normalized DOI and
// rewrites the rendered bibliography.
func citationVerifierStrategy(ctx context.Context, s *store.Store, input Input) (store.AgentResult, error) {
	citations, err := s.ListCitations()
	if err != nil {
		return store.AgentResult{}, err
	}

	resolver := sharedBiblioResolver()
	now := time.Now().UTC()
	resolveErrs := 0
	for i, c := range citations {
		if c.Identifiers.DOI == "" || resolver.IsFresh(c, now) {
			continue
		}
		meta, attempt, err := resolver.Resolve(ctx, c.Identifiers.DOI)
		if err != nil {
			resolveErrs++
			if c.Verification == nil {
				c.Verification = &store.Verification{}
			}
			c.Verification.Attempts = append(c.Verification.Attempts, attempt)
			c.Verification.LastChecked = attempt.CheckedAt
			citations[i] = c
			continue
		}
		biblio.MergeInto(&c, meta, attempt)
		citations[i] = c
	}

	deduped, dropped := biblio.DedupByDOI(citations)
	for _, rec := range deduped {
		if err := s.UpsertCitation(rec); err != nil {
			return store.AgentResult{}, err
		}
	}
	if err := s.WriteBibliography(biblio.Render(deduped)); err != nil {
		return store.AgentResult{}, err
	}

	verified := 0
	for _, c := range deduped {
		if c.Status == store.CitationVerified {
			verified++
		}
	}
	return store.AgentResult{
		Success: true,
		Content: fmt.Sprintf("%d/%d citations verified, %d duplicates merged, %d resolve errors", verified, len(deduped), len(dropped), resolveErrs),
		StructuredData: map[string]any{"dropped": dropped},
	}, nil
}

func sectionWriterStrategy(ctx context.Context, s *store.Store, input Input) (store.AgentResult, error) {
	if input.LLM == nil {
		return store.AgentResult{}, errs.Wrap(errs.Transport, fmt.Errorf("section_writer requires an LLM client"))
	}

	sectionName, _ := input.Artifacts["section_name"].(string)
	if sectionName == "" {
		sectionName = "results"
	}

	claims, err := s.ReadClaims()
	if err != nil {
		return store.AgentResult{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write the %s section.\n", sectionName)
	for _, c := range claims {
		fmt.Fprintf(&b, "- [%s] %s\n", c.ClaimID, c.Statement)
	}
	if feedback, ok := input.Artifacts["revision_feedback"].(string); ok && feedback != "" {
		fmt.Fprintf(&b, "\nAddress this reviewer feedback from the previous draft: %s\n", feedback)
	}

	messages := []llmclient.Message{{Role: "user", Content: b.String()}}
	text, tokens, err := input.LLM.Chat(ctx, messages, registryEntry("section_writer").Spec.SystemPrompt, llmclient.TaskDrafting)
	if err != nil {
		return store.AgentResult{}, err
	}

	if err := s.WriteSection(sectionName, text); err != nil {
		return store.AgentResult{}, err
	}

	return store.AgentResult{Success: true, Content: text, TokensUsed: tokens}, nil
}

func qualityReviewerStrategy(ctx context.Context, s *store.Store, input Input) (store.AgentResult, error) {
	if input.LLM == nil {
		return store.AgentResult{}, errs.Wrap(errs.Transport, fmt.Errorf("quality_reviewer requires an LLM client"))
	}

	draft, _ := input.Artifacts["section_tex"].(string)
	messages := []llmclient.Message{{Role: "user", Content: "Review this draft:\n" + draft}}

	thinking, text, tokens, err := input.LLM.ChatWithThinking(
		ctx, messages, registryEntry("quality_reviewer").Spec.SystemPrompt,
		llmclient.TierLarge, 4096, 2048,
	)
	if err != nil {
		return store.AgentResult{}, err
	}

	return store.AgentResult{
		Success:        true,
		Content:        text,
		TokensUsed:     tokens,
		StructuredData: map[string]any{"thinking": thinking},
	}, nil
}

func gapSynthesizerStrategy(ctx context.Context, s *store.Store, input Input) (store.AgentResult, error) {
	if input.LLM == nil {
		return store.AgentResult{}, errs.Wrap(errs.Transport, fmt.Errorf("gap_synthesizer requires an LLM client"))
	}

	claims, err := s.ReadClaims()
	if err != nil {
		return store.AgentResult{}, err
	}
	citations, err := s.ListCitations()
	if err != nil {
		return store.AgentResult{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d claims, %d citations on file. Identify gaps.\n", len(claims), len(citations))

	messages := []llmclient.Message{{Role: "user", Content: b.String()}}
	text, tokens, err := input.LLM.Chat(ctx, messages, registryEntry("gap_synthesizer").Spec.SystemPrompt, llmclient.TaskSynthesis)
	if err != nil {
		return store.AgentResult{}, err
	}

	return store.AgentResult{Success: true, Content: text, TokensUsed: tokens}, nil
}

// literatureSearchStrategy is deterministic from the harness's point of
// view: it never calls the LLM client directly, delegating the actual
// synthesis to the external literature API through the shared
// deduplicating client. The narrative goes to LITERATURE_REVIEW.md and the
// structured citations are merged into citations.json as unverified
// records for citation_verifier to resolve DOIs against later.
func literatureSearchStrategy(ctx context.Context, s *store.Store, input Input) (store.AgentResult, error) {
	query, _ := input.Artifacts["query"].(string)
	if query == "" {
		return store.AgentResult{}, errs.Wrap(errs.SchemaInvalid, fmt.Errorf("literature_search requires a query artifact"))
	}

	result := sharedLiteratureClient().Search(ctx, query)
	if result.Status != litclient.StatusCompleted {
		return store.AgentResult{}, errs.Wrap(errs.ProviderUnavailable, fmt.Errorf("literature search failed: %s", result.Error))
	}

	if err := s.WriteLiteratureReview(result.Response); err != nil {
		return store.AgentResult{}, err
	}

	for _, c := range result.Citations {
		rec := store.CitationRecord{
			CitationKey: biblioCitationKey(c),
			Title:       c.Title,
			Authors:     c.Authors,
			Year:        c.Year,
			Status:      store.CitationUnverified,
		}
		rec.Identifiers.DOI = c.DOI
		rec.Identifiers.URL = c.URL
		if err := s.UpsertCitation(rec); err != nil {
			return store.AgentResult{}, err
		}
	}

	return store.AgentResult{
		Success: true,
		Content: result.Response,
		StructuredData: map[string]any{
			"citations":              result.Citations,
			"total_papers_searched": result.TotalPapersSearched,
		},
	}, nil
}

func biblioCitationKey(c litclient.Citation) string {
	if c.DOI != "" {
		return c.DOI
	}
	if c.PaperID != "" {
		return c.PaperID
	}
	return c.Title
}

func registryEntry(id string) entry {
	return Registry[id]
}
