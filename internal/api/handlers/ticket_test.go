package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/opsgrid/triagekit/internal/domain"
	"github.com/opsgrid/triagekit/internal/service"
)

type MockTicketService struct {
	mock.Mock
}

func (m *MockTicketService) Create(ctx context.Context, input service.CreateTicketInput) (*domain.Ticket, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) List(ctx context.Context, status domain.TicketStatus, limit int) ([]*domain.Ticket, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) Resolve(ctx context.Context, input service.ResolveTicketInput) (*domain.Ticket, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

// newTicketRouter mounts the handler behind chi so URL params resolve.
func newTicketRouter(handler *TicketHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/tickets", handler.Create)
	r.Get("/tickets", handler.List)
	r.Get("/tickets/{id}", handler.Get)
	r.Post("/tickets/{id}/resolve", handler.Resolve)
	return r
}

func TestTicketHandlerCreate(t *testing.T) {
	ticket := &domain.Ticket{
		ID:       "t-1",
		Title:    "checkout broken",
		Status:   domain.TicketStatusOpen,
		Priority: domain.TicketPriorityHigh,
	}

	svc := new(MockTicketService)
	svc.On("Create", mock.Anything, service.CreateTicketInput{
		Title:    "checkout broken",
		Priority: domain.TicketPriorityHigh,
	}).Return(ticket, nil)

	router := newTicketRouter(NewTicketHandler(svc))

	body, _ := json.Marshal(CreateTicketRequest{Title: "checkout broken", Priority: "high"})
	req := httptest.NewRequest("POST", "/tickets", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data TicketResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "t-1", resp.Data.ID)
	assert.Equal(t, "open", resp.Data.Status)
}

func TestTicketHandlerCreate_MissingTitle(t *testing.T) {
	router := newTicketRouter(NewTicketHandler(new(MockTicketService)))

	body, _ := json.Marshal(CreateTicketRequest{Description: "no title"})
	req := httptest.NewRequest("POST", "/tickets", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTicketHandlerGet(t *testing.T) {
	svc := new(MockTicketService)
	svc.On("GetByID", mock.Anything, "t-1").Return(&domain.Ticket{
		ID:     "t-1",
		Title:  "checkout broken",
		Status: domain.TicketStatusOpen,
	}, nil)

	router := newTicketRouter(NewTicketHandler(svc))

	req := httptest.NewRequest("GET", "/tickets/t-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "checkout broken")
}

func TestTicketHandlerGet_NotFound(t *testing.T) {
	svc := new(MockTicketService)
	svc.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrTicketNotFound)

	router := newTicketRouter(NewTicketHandler(svc))

	req := httptest.NewRequest("GET", "/tickets/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTicketHandlerList_StatusFilter(t *testing.T) {
	svc := new(MockTicketService)
	svc.On("List", mock.Anything, domain.TicketStatusResolved, 10).Return([]*domain.Ticket{
		{ID: "t-1", Title: "a", Status: domain.TicketStatusResolved},
	}, nil)

	router := newTicketRouter(NewTicketHandler(svc))

	req := httptest.NewRequest("GET", "/tickets?status=resolved&limit=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestTicketHandlerResolve(t *testing.T) {
	resolved := &domain.Ticket{
		ID:              "t-1",
		Title:           "checkout broken",
		Status:          domain.TicketStatusResolved,
		ResolutionNotes: "restarted pods",
	}

	svc := new(MockTicketService)
	svc.On("Resolve", mock.Anything, service.ResolveTicketInput{
		ID:              "t-1",
		ResolutionNotes: "restarted pods",
	}).Return(resolved, nil)

	router := newTicketRouter(NewTicketHandler(svc))

	body, _ := json.Marshal(ResolveTicketRequest{ResolutionNotes: "restarted pods"})
	req := httptest.NewRequest("POST", "/tickets/t-1/resolve", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data TicketResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "resolved", resp.Data.Status)
}

func TestTicketHandlerResolve_AlreadyResolved(t *testing.T) {
	svc := new(MockTicketService)
	svc.On("Resolve", mock.Anything, mock.Anything).Return(nil, domain.ErrTicketAlreadyResolved)

	router := newTicketRouter(NewTicketHandler(svc))

	body, _ := json.Marshal(ResolveTicketRequest{ResolutionNotes: "again"})
	req := httptest.NewRequest("POST", "/tickets/t-1/resolve", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTicketHandlerResolve_MissingNotes(t *testing.T) {
	router := newTicketRouter(NewTicketHandler(new(MockTicketService)))

	body, _ := json.Marshal(ResolveTicketRequest{})
	req := httptest.NewRequest("POST", "/tickets/t-1/resolve", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
