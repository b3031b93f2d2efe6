package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/opsgrid/triagekit/internal/domain"
	"github.com/opsgrid/triagekit/internal/service"
)

type MockMemoryService struct {
	mock.Mock
}

func (m *MockMemoryService) Upsert(ctx context.Context, input service.UpsertInput) (int, error) {
	args := m.Called(ctx, input)
	return args.Int(0), args.Error(1)
}

func (m *MockMemoryService) Search(ctx context.Context, input service.SearchInput) ([]domain.MemoryHit, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MemoryHit), args.Error(1)
}

func TestMemoryHandlerUpsert(t *testing.T) {
	svc := new(MockMemoryService)
	svc.On("Upsert", mock.Anything, mock.MatchedBy(func(input service.UpsertInput) bool {
		return input.SourceType == "sop" && input.SourceID == "sop-1"
	})).Return(3, nil)

	handler := NewMemoryHandler(svc)

	body, _ := json.Marshal(UpsertMemoryRequest{
		SourceType: "sop",
		SourceID:   "sop-1",
		Title:      "Restart queue",
		Content:    "Stop consumers, flush, restart.",
	})

	req := httptest.NewRequest("POST", "/memory", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.Upsert(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data UpsertMemoryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Data.ChunksUpserted)
	svc.AssertExpectations(t)
}

func TestMemoryHandlerUpsert_MissingFields(t *testing.T) {
	handler := NewMemoryHandler(new(MockMemoryService))

	tests := []struct {
		name string
		body UpsertMemoryRequest
	}{
		{"missing source_type", UpsertMemoryRequest{SourceID: "x", Content: "c"}},
		{"missing source_id", UpsertMemoryRequest{SourceType: "sop", Content: "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest("POST", "/memory", bytes.NewReader(body))
			w := httptest.NewRecorder()
			handler.Upsert(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestMemoryHandlerUpsert_InvalidBody(t *testing.T) {
	handler := NewMemoryHandler(new(MockMemoryService))

	req := httptest.NewRequest("POST", "/memory", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	handler.Upsert(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMemoryHandlerSearch(t *testing.T) {
	hits := []domain.MemoryHit{
		{Item: domain.MemoryItem{SourceType: "ticket", SourceID: "t-1", Title: "redis timeout", Content: "raised pool"}, Score: 0.9},
	}

	svc := new(MockMemoryService)
	svc.On("Search", mock.Anything, service.SearchInput{Query: "redis", Limit: 5, SourceType: "ticket"}).Return(hits, nil)

	handler := NewMemoryHandler(svc)

	body, _ := json.Marshal(SearchMemoryRequest{Query: "redis", Limit: 5, SourceType: "ticket"})
	req := httptest.NewRequest("POST", "/memory/search", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.Search(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []SearchHitResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "t-1", resp.Data[0].SourceID)
	assert.Equal(t, 0.9, resp.Data[0].Score)
}

func TestMemoryHandlerSearch_EmptyResultIsEmptyArray(t *testing.T) {
	svc := new(MockMemoryService)
	svc.On("Search", mock.Anything, mock.Anything).Return([]domain.MemoryHit{}, nil)

	handler := NewMemoryHandler(svc)

	body, _ := json.Marshal(SearchMemoryRequest{Query: "nothing"})
	req := httptest.NewRequest("POST", "/memory/search", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.Search(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestMemoryHandlerSearch_MissingQuery(t *testing.T) {
	handler := NewMemoryHandler(new(MockMemoryService))

	body, _ := json.Marshal(SearchMemoryRequest{})
	req := httptest.NewRequest("POST", "/memory/search", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMemoryHandlerSearch_StoreError(t *testing.T) {
	svc := new(MockMemoryService)
	svc.On("Search", mock.Anything, mock.Anything).
		Return(nil, domain.NewDomainError(domain.ErrCodeStore, "similarity search failed"))

	handler := NewMemoryHandler(svc)

	body, _ := json.Marshal(SearchMemoryRequest{Query: "q"})
	req := httptest.NewRequest("POST", "/memory/search", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.Search(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
