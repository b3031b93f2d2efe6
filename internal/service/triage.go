package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/opsgrid/triagekit/internal/domain"
	"github.com/opsgrid/triagekit/internal/llm"
	"github.com/opsgrid/triagekit/internal/metrics"
	"github.com/opsgrid/triagekit/internal/telemetry"
)

const (
	// DefaultEvidenceLimit is how many evidence items ground one request.
	DefaultEvidenceLimit = 6
	// DefaultGenerationTemperature favors determinism over creativity.
	DefaultGenerationTemperature = 0.1

	noEvidenceQuestion = "No relevant knowledge was found for this ticket. Add related resolved tickets, SOPs or postmortems to memory, or provide more context in the ticket description."
)

// LLMClient is the generation capability the orchestrator invokes.
type LLMClient interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
	Model() llm.ModelInfo
}

// EvidenceRetriever supplies ranked evidence for one query.
type EvidenceRetriever interface {
	RetrieveEvidence(ctx context.Context, query string, limit int, filterSourceType string) ([]domain.EvidenceItem, error)
}

// SuggestInput represents input for a triage suggestion.
type SuggestInput struct {
	Title       string
	Description string
	Topics      []string
}

// SuggestOutput is the suggestion envelope. Exactly one of Suggestion or Raw
// is set: Raw carries the model's text when it did not parse as the mandated
// schema, so the caller always receives something renderable.
type SuggestOutput struct {
	Evidence   []domain.EvidenceItem
	Suggestion *domain.Suggestion
	Raw        string
	Model      llm.ModelInfo
}

// DraftSOPInput represents input for drafting an SOP from a resolved ticket.
type DraftSOPInput struct {
	TicketTitle       string
	TicketDescription string
	ResolutionNotes   string
	ValidationNotes   string
	RollbackNotes     string
	Topics            []string
}

// DraftSOPOutput is the SOP envelope. Questions is only populated in the
// no-evidence state, where the SOP schema itself has no place for an open
// question.
type DraftSOPOutput struct {
	Evidence  []domain.EvidenceItem
	SOP       *domain.SOPDraft
	Raw       string
	Questions []string
	Model     llm.ModelInfo
}

// TriageConfig controls the grounded generation orchestrator.
type TriageConfig struct {
	EvidenceLimit int
	Temperature   float32
	MaxTokens     int
}

// DefaultTriageConfig returns the default orchestrator configuration.
func DefaultTriageConfig() TriageConfig {
	return TriageConfig{
		EvidenceLimit: DefaultEvidenceLimit,
		Temperature:   DefaultGenerationTemperature,
		MaxTokens:     llm.DefaultMaxTokens,
	}
}

// TriageService orchestrates retrieve -> prompt -> generate -> validate for
// ticket suggestions and SOP drafts. It never invokes the LLM without
// grounding evidence, and it never lets a reachable-but-malformed LLM
// response surface as an error.
type TriageService struct {
	retriever EvidenceRetriever
	llm       LLMClient
	cfg       TriageConfig
	metrics   *metrics.Metrics
}

// NewTriageService creates a new TriageService instance.
func NewTriageService(retriever EvidenceRetriever, llmClient LLMClient, cfg TriageConfig, m *metrics.Metrics) *TriageService {
	if cfg.EvidenceLimit <= 0 {
		cfg.EvidenceLimit = DefaultEvidenceLimit
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultGenerationTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = llm.DefaultMaxTokens
	}
	return &TriageService{
		retriever: retriever,
		llm:       llmClient,
		cfg:       cfg,
		metrics:   m,
	}
}

// Suggest produces an evidence-grounded triage suggestion for a ticket.
func (s *TriageService) Suggest(ctx context.Context, input SuggestInput) (*SuggestOutput, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, domain.ErrMissingTitle
	}

	ctx, span := telemetry.StartSpan(ctx, "TriageService.Suggest", telemetry.SpanAttributes{
		Model:     s.llm.Model().Name,
		Operation: "suggest",
	})
	defer span.End()

	query := buildRetrievalQuery(input.Title, input.Description, input.Topics)
	evidence, err := s.retriever.RetrieveEvidence(ctx, query, s.cfg.EvidenceLimit, "")
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	out := &SuggestOutput{Evidence: evidence, Model: s.llm.Model()}

	if len(evidence) == 0 {
		// Hard rule: never send a generation request with zero
		// grounding evidence.
		s.metrics.ObserveGeneration("suggestion", "no_evidence")
		out.Suggestion = noEvidenceSuggestion()
		return out, nil
	}

	text, err := s.llm.Complete(ctx, llm.Request{
		System:      suggestionSystemPrompt,
		User:        buildSuggestionUserMessage(input, evidence),
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
		ForceJSON:   true,
	})
	if err != nil {
		s.metrics.ObserveGeneration("suggestion", "failed")
		span.SetError(err)
		return nil, mapGenerationError(err)
	}

	var suggestion domain.Suggestion
	if jsonErr := json.Unmarshal([]byte(stripCodeFences(text)), &suggestion); jsonErr != nil {
		s.metrics.ObserveGeneration("suggestion", "raw")
		out.Raw = text
		return out, nil
	}

	sanitizeSuggestion(&suggestion, domain.RefSet(evidence))
	s.metrics.ObserveGeneration("suggestion", "success")
	out.Suggestion = &suggestion
	return out, nil
}

// DraftSOP produces an evidence-grounded SOP draft from a resolved ticket.
func (s *TriageService) DraftSOP(ctx context.Context, input DraftSOPInput) (*DraftSOPOutput, error) {
	if strings.TrimSpace(input.TicketTitle) == "" {
		return nil, domain.ErrMissingTitle
	}
	if strings.TrimSpace(input.ResolutionNotes) == "" {
		return nil, domain.ErrMissingResolution
	}

	ctx, span := telemetry.StartSpan(ctx, "TriageService.DraftSOP", telemetry.SpanAttributes{
		Model:     s.llm.Model().Name,
		Operation: "sop_draft",
	})
	defer span.End()

	query := buildRetrievalQuery(input.TicketTitle, input.ResolutionNotes, input.Topics)
	evidence, err := s.retriever.RetrieveEvidence(ctx, query, s.cfg.EvidenceLimit, "")
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	out := &DraftSOPOutput{Evidence: evidence, Model: s.llm.Model()}

	if len(evidence) == 0 {
		s.metrics.ObserveGeneration("sop_draft", "no_evidence")
		out.SOP = &domain.SOPDraft{
			ProblemDescription: strings.TrimSpace(input.TicketDescription),
			References:         []string{},
		}
		out.Questions = []string{noEvidenceQuestion}
		return out, nil
	}

	text, err := s.llm.Complete(ctx, llm.Request{
		System:      sopSystemPrompt,
		User:        buildSOPUserMessage(input, evidence),
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
		ForceJSON:   true,
	})
	if err != nil {
		s.metrics.ObserveGeneration("sop_draft", "failed")
		span.SetError(err)
		return nil, mapGenerationError(err)
	}

	var sop domain.SOPDraft
	if jsonErr := json.Unmarshal([]byte(stripCodeFences(text)), &sop); jsonErr != nil {
		s.metrics.ObserveGeneration("sop_draft", "raw")
		out.Raw = text
		return out, nil
	}

	sop.References = filterRefs(sop.References, domain.RefSet(evidence))
	s.metrics.ObserveGeneration("sop_draft", "success")
	out.SOP = &sop
	return out, nil
}

func noEvidenceSuggestion() *domain.Suggestion {
	return &domain.Suggestion{
		Summary:            "No relevant knowledge found; cannot suggest a grounded resolution.",
		ConfidenceOverall:  0,
		RootCauses:         []domain.RootCause{},
		RecommendedSteps:   []domain.RecommendedStep{},
		ValidationSteps:    []string{},
		RollbackProcedures: []string{},
		Questions:          []string{noEvidenceQuestion},
	}
}

// sanitizeSuggestion enforces the grounding contract the LLM was only asked
// to follow: citation tokens not handed out in this call are stripped, and a
// cause or step left without support moves to the open questions instead of
// standing as an assertion.
func sanitizeSuggestion(s *domain.Suggestion, refs map[string]struct{}) {
	s.ConfidenceOverall = clampUnit(s.ConfidenceOverall)

	causes := s.RootCauses[:0]
	for _, rc := range s.RootCauses {
		rc.EvidenceRefs = filterRefs(rc.EvidenceRefs, refs)
		rc.Confidence = clampUnit(rc.Confidence)
		if len(rc.EvidenceRefs) == 0 {
			s.Questions = append(s.Questions, fmt.Sprintf("Unverified cause (no supporting evidence): %s", rc.Cause))
			continue
		}
		causes = append(causes, rc)
	}
	s.RootCauses = causes

	steps := s.RecommendedSteps[:0]
	for _, rs := range s.RecommendedSteps {
		rs.EvidenceRefs = filterRefs(rs.EvidenceRefs, refs)
		if len(rs.EvidenceRefs) == 0 {
			s.Questions = append(s.Questions, fmt.Sprintf("Unverified step (no supporting evidence): %s", rs.Step))
			continue
		}
		steps = append(steps, rs)
	}
	s.RecommendedSteps = steps
}

func filterRefs(refs []string, valid map[string]struct{}) []string {
	out := refs[:0]
	for _, ref := range refs {
		if _, ok := valid[strings.TrimSpace(ref)]; ok {
			out = append(out, strings.TrimSpace(ref))
		}
	}
	return out
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func buildRetrievalQuery(title, body string, topics []string) string {
	parts := []string{title}
	if strings.TrimSpace(body) != "" {
		parts = append(parts, body)
	}
	if len(topics) > 0 {
		parts = append(parts, strings.Join(topics, " "))
	}
	return strings.Join(parts, "\n\n")
}

// stripCodeFences unwraps a markdown-fenced JSON body. Models configured for
// JSON output still occasionally fence it.
func stripCodeFences(text string) string {
	clean := strings.TrimSpace(text)
	if !strings.HasPrefix(clean, "```") {
		return clean
	}
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	return strings.TrimSpace(clean)
}

func mapGenerationError(err error) error {
	switch {
	case errors.Is(err, llm.ErrRejected):
		return domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "generation request rejected", err)
	default:
		return domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "generation endpoint unavailable", err)
	}
}
