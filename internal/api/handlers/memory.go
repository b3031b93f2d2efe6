package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/opsgrid/triagekit/internal/api"
	"github.com/opsgrid/triagekit/internal/domain"
	"github.com/opsgrid/triagekit/internal/service"
)

// MemoryUpsertService defines the service interface the memory handler
// depends on.
type MemoryUpsertService interface {
	Upsert(ctx context.Context, input service.UpsertInput) (int, error)
	Search(ctx context.Context, input service.SearchInput) ([]domain.MemoryHit, error)
}

// MemoryHandler exposes memory upsert and similarity search.
type MemoryHandler struct {
	svc MemoryUpsertService
}

func NewMemoryHandler(svc MemoryUpsertService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

type UpsertMemoryRequest struct {
	SourceType string         `json:"source_type"`
	SourceID   string         `json:"source_id"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type UpsertMemoryResponse struct {
	ChunksUpserted int `json:"chunks_upserted"`
}

type SearchMemoryRequest struct {
	Query      string `json:"query"`
	Limit      int    `json:"limit,omitempty"`
	SourceType string `json:"source_type,omitempty"`
}

type SearchHitResponse struct {
	SourceType string         `json:"source_type"`
	SourceID   string         `json:"source_id"`
	ChunkIndex int            `json:"chunk_index"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Score      float64        `json:"score"`
}

func hitToResponse(h domain.MemoryHit) SearchHitResponse {
	return SearchHitResponse{
		SourceType: h.Item.SourceType,
		SourceID:   h.Item.SourceID,
		ChunkIndex: h.Item.ChunkIndex,
		Title:      h.Item.Title,
		Content:    h.Item.Content,
		Metadata:   h.Item.Metadata,
		Score:      h.Score,
	}
}

// Upsert stores one source into memory, replacing its previous chunks.
func (h *MemoryHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SourceType == "" {
		api.Error(w, http.StatusBadRequest, "source_type is required")
		return
	}
	if req.SourceID == "" {
		api.Error(w, http.StatusBadRequest, "source_id is required")
		return
	}

	count, err := h.svc.Upsert(r.Context(), service.UpsertInput{
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		Title:      req.Title,
		Content:    req.Content,
		Metadata:   req.Metadata,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, UpsertMemoryResponse{ChunksUpserted: count})
}

// Search runs a similarity search over memory.
func (h *MemoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	hits, err := h.svc.Search(r.Context(), service.SearchInput{
		Query:      req.Query,
		Limit:      req.Limit,
		SourceType: req.SourceType,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]SearchHitResponse, 0, len(hits))
	for _, hit := range hits {
		results = append(results, hitToResponse(hit))
	}

	api.Success(w, http.StatusOK, results)
}
