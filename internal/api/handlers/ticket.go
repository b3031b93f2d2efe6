package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opsgrid/triagekit/internal/api"
	"github.com/opsgrid/triagekit/internal/domain"
	"github.com/opsgrid/triagekit/internal/service"
)

// TicketServiceInterface defines the ticket operations the handler depends on.
type TicketServiceInterface interface {
	Create(ctx context.Context, input service.CreateTicketInput) (*domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, status domain.TicketStatus, limit int) ([]*domain.Ticket, error)
	Resolve(ctx context.Context, input service.ResolveTicketInput) (*domain.Ticket, error)
}

// TicketHandler exposes the ticket lifecycle over HTTP.
type TicketHandler struct {
	svc TicketServiceInterface
}

func NewTicketHandler(svc TicketServiceInterface) *TicketHandler {
	return &TicketHandler{svc: svc}
}

type CreateTicketRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority,omitempty"`
	Topics      []string `json:"topics,omitempty"`
}

type ResolveTicketRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
}

type TicketResponse struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	Topics          []string   `json:"topics,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

func ticketToResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Status:          string(t.Status),
		Priority:        string(t.Priority),
		Topics:          t.Topics,
		ResolutionNotes: t.ResolutionNotes,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		ResolvedAt:      t.ResolvedAt,
	}
}

// Create opens a new ticket.
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}

	ticket, err := h.svc.Create(r.Context(), service.CreateTicketInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TicketPriority(req.Priority),
		Topics:      req.Topics,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, ticketToResponse(ticket))
}

// Get returns one ticket by ID.
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "ticket ID is required")
		return
	}

	ticket, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ticketToResponse(ticket))
}

// List returns tickets, optionally filtered by ?status=.
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.TicketStatus(r.URL.Query().Get("status"))
	limit := parseIntQuery(r, "limit")

	tickets, err := h.svc.List(r.Context(), status, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		results = append(results, ticketToResponse(t))
	}

	api.Success(w, http.StatusOK, results)
}

// Resolve marks a ticket resolved and queues its resolution for indexing.
func (h *TicketHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "ticket ID is required")
		return
	}

	var req ResolveTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ResolutionNotes == "" {
		api.Error(w, http.StatusBadRequest, "resolution_notes is required")
		return
	}

	ticket, err := h.svc.Resolve(r.Context(), service.ResolveTicketInput{
		ID:              id,
		ResolutionNotes: req.ResolutionNotes,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ticketToResponse(ticket))
}
