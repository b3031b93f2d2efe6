package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/opsgrid/triagekit/internal/api"
	"github.com/opsgrid/triagekit/internal/domain"
	"github.com/opsgrid/triagekit/internal/llm"
	"github.com/opsgrid/triagekit/internal/service"
)

// TriageServiceInterface defines the generation operations the triage handler
// depends on.
type TriageServiceInterface interface {
	Suggest(ctx context.Context, input service.SuggestInput) (*service.SuggestOutput, error)
	DraftSOP(ctx context.Context, input service.DraftSOPInput) (*service.DraftSOPOutput, error)
}

// TriageHandler exposes grounded suggestion and SOP drafting.
type TriageHandler struct {
	svc TriageServiceInterface
}

func NewTriageHandler(svc TriageServiceInterface) *TriageHandler {
	return &TriageHandler{svc: svc}
}

type SuggestRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Topics      []string `json:"topics,omitempty"`
}

type ModelInfoResponse struct {
	Host string `json:"host"`
	Name string `json:"name"`
}

type SuggestResponse struct {
	Evidence   []domain.EvidenceItem `json:"evidence"`
	Suggestion *domain.Suggestion    `json:"suggestion,omitempty"`
	Raw        string                `json:"raw,omitempty"`
	Model      ModelInfoResponse     `json:"model"`
}

type SOPDraftRequest struct {
	TicketTitle       string   `json:"ticket_title"`
	TicketDescription string   `json:"ticket_description"`
	ResolutionNotes   string   `json:"resolution_notes"`
	ValidationNotes   string   `json:"validation_notes,omitempty"`
	RollbackNotes     string   `json:"rollback_notes,omitempty"`
	Topics            []string `json:"topics,omitempty"`
}

type SOPDraftResponse struct {
	Evidence  []domain.EvidenceItem `json:"evidence"`
	SOP       *domain.SOPDraft      `json:"sop,omitempty"`
	Raw       string                `json:"raw,omitempty"`
	Questions []string              `json:"questions,omitempty"`
	Model     ModelInfoResponse     `json:"model"`
}

func modelToResponse(m llm.ModelInfo) ModelInfoResponse {
	return ModelInfoResponse{Host: m.Host, Name: m.Name}
}

// Suggest produces an evidence-grounded resolution suggestion for a ticket.
func (h *TriageHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}

	out, err := h.svc.Suggest(r.Context(), service.SuggestInput{
		Title:       req.Title,
		Description: req.Description,
		Topics:      req.Topics,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SuggestResponse{
		Evidence:   out.Evidence,
		Suggestion: out.Suggestion,
		Raw:        out.Raw,
		Model:      modelToResponse(out.Model),
	})
}

// DraftSOP produces an evidence-grounded SOP draft from a resolved ticket.
func (h *TriageHandler) DraftSOP(w http.ResponseWriter, r *http.Request) {
	var req SOPDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TicketTitle == "" {
		api.Error(w, http.StatusBadRequest, "ticket_title is required")
		return
	}
	if req.ResolutionNotes == "" {
		api.Error(w, http.StatusBadRequest, "resolution_notes is required")
		return
	}

	out, err := h.svc.DraftSOP(r.Context(), service.DraftSOPInput{
		TicketTitle:       req.TicketTitle,
		TicketDescription: req.TicketDescription,
		ResolutionNotes:   req.ResolutionNotes,
		ValidationNotes:   req.ValidationNotes,
		RollbackNotes:     req.RollbackNotes,
		Topics:            req.Topics,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SOPDraftResponse{
		Evidence:  out.Evidence,
		SOP:       out.SOP,
		Raw:       out.Raw,
		Questions: out.Questions,
		Model:     modelToResponse(out.Model),
	})
}
