package service

import (
	"fmt"
	"strings"

	"github.com/opsgrid/triagekit/internal/domain"
)

const evidenceDivider = "\n---\n"

const suggestionSystemPrompt = `You are a senior support engineer triaging an incident ticket.
You are given EVIDENCE items retrieved from this team's own resolved tickets, SOPs, postmortems and notes. Each item starts with a reference token like [E1].

Rules:
- Ground every statement strictly in the evidence. Do not use outside knowledge.
- Every root cause and every recommended step MUST cite at least one evidence reference token in its "evidence_refs" array.
- If something seems plausible but no evidence supports it, phrase it as an entry in "questions" instead of asserting it.
- Respond with a single JSON object and nothing else, using exactly this schema:
{
  "summary": string,
  "confidence_overall": number between 0 and 1,
  "root_causes": [{"cause": string, "confidence": number, "evidence_refs": [string]}],
  "recommended_steps": [{"step": string, "rationale": string, "evidence_refs": [string]}],
  "validation_steps": [string],
  "rollback_procedures": [string],
  "questions": [string]
}`

const sopSystemPrompt = `You are a senior support engineer writing a standard operating procedure (SOP) from a resolved incident ticket.
You are given the ticket, its resolution notes, and EVIDENCE items retrieved from this team's own knowledge base. Each evidence item starts with a reference token like [E1].

Rules:
- Ground the procedure strictly in the ticket resolution and the evidence. Do not use outside knowledge.
- List in "references" the evidence reference tokens you actually relied on.
- Respond with a single JSON object and nothing else, using exactly this schema:
{
  "problem_description": string,
  "symptoms": [string],
  "root_cause": string,
  "resolution_steps": [string],
  "validation_steps": [string],
  "rollback_procedures": [string],
  "references": [string]
}`

// renderEvidenceBlock formats retrieved evidence for the user message. Each
// item renders as "[ref] [sourceType:sourceId] title (score s)" followed by
// its content, items separated by a divider.
func renderEvidenceBlock(evidence []domain.EvidenceItem) string {
	var b strings.Builder
	for i, item := range evidence {
		if i > 0 {
			b.WriteString(evidenceDivider)
		}
		fmt.Fprintf(&b, "[%s] [%s:%s] %s (score %.3f)\n%s",
			item.Ref, item.SourceType, item.SourceID, item.Title, item.Score, item.Content)
	}
	return b.String()
}

func buildSuggestionUserMessage(input SuggestInput, evidence []domain.EvidenceItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TICKET TITLE:\n%s\n\n", input.Title)
	if input.Description != "" {
		fmt.Fprintf(&b, "TICKET DESCRIPTION:\n%s\n\n", input.Description)
	}
	if len(input.Topics) > 0 {
		fmt.Fprintf(&b, "TOPICS: %s\n\n", strings.Join(input.Topics, ", "))
	}
	fmt.Fprintf(&b, "EVIDENCE:\n%s", renderEvidenceBlock(evidence))
	return b.String()
}

func buildSOPUserMessage(input DraftSOPInput, evidence []domain.EvidenceItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TICKET TITLE:\n%s\n\n", input.TicketTitle)
	if input.TicketDescription != "" {
		fmt.Fprintf(&b, "TICKET DESCRIPTION:\n%s\n\n", input.TicketDescription)
	}
	fmt.Fprintf(&b, "RESOLUTION NOTES:\n%s\n\n", input.ResolutionNotes)
	if input.ValidationNotes != "" {
		fmt.Fprintf(&b, "VALIDATION NOTES:\n%s\n\n", input.ValidationNotes)
	}
	if input.RollbackNotes != "" {
		fmt.Fprintf(&b, "ROLLBACK NOTES:\n%s\n\n", input.RollbackNotes)
	}
	if len(input.Topics) > 0 {
		fmt.Fprintf(&b, "TOPICS: %s\n\n", strings.Join(input.Topics, ", "))
	}
	fmt.Fprintf(&b, "EVIDENCE:\n%s", renderEvidenceBlock(evidence))
	return b.String()
}
