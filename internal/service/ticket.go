package service

import (
	"context"
	"strings"
	"time"

	"github.com/opsgrid/triagekit/internal/domain"
)

// TicketRepositoryInterface defines the repository interface for tickets.
type TicketRepositoryInterface interface {
	Create(ctx context.Context, t *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, status domain.TicketStatus, limit int) ([]*domain.Ticket, error)
	Update(ctx context.Context, t *domain.Ticket) error
}

// IndexJobRepositoryInterface defines the repository interface for queueing
// index jobs.
type IndexJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IndexJob) error
}

// CreateTicketInput represents input for creating a ticket.
type CreateTicketInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Topics      []string
}

// ResolveTicketInput represents input for resolving a ticket.
type ResolveTicketInput struct {
	ID              string
	ResolutionNotes string
}

// TicketService handles the ticket lifecycle. Resolution is the hook into
// the memory pipeline: resolving a ticket queues an index job so the
// resolution text becomes retrievable knowledge.
type TicketService struct {
	repo    TicketRepositoryInterface
	jobRepo IndexJobRepositoryInterface
	uuidGen UUIDGenerator
}

// NewTicketService creates a new TicketService instance.
func NewTicketService(repo TicketRepositoryInterface, jobRepo IndexJobRepositoryInterface, uuidGen UUIDGenerator) *TicketService {
	return &TicketService{
		repo:    repo,
		jobRepo: jobRepo,
		uuidGen: uuidGen,
	}
}

// Create validates and persists a new open ticket.
func (s *TicketService) Create(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, domain.ErrMissingTitle
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}

	now := time.Now().UTC()
	ticket := &domain.Ticket{
		ID:          s.uuidGen.NewUUID(),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
		Topics:      input.Topics,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := domain.ValidateTicket(ticket); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStore, "failed to create ticket", err)
	}
	return ticket, nil
}

// GetByID returns one ticket.
func (s *TicketService) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns tickets, optionally filtered by status.
func (s *TicketService) List(ctx context.Context, status domain.TicketStatus, limit int) ([]*domain.Ticket, error) {
	return s.repo.List(ctx, status, clampLimit(limit))
}

// Resolve marks a ticket resolved and queues its resolution text for
// indexing. The index job is asynchronous: the memory write happens in the
// background worker, not in this request.
func (s *TicketService) Resolve(ctx context.Context, input ResolveTicketInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.ResolutionNotes) == "" {
		return nil, domain.ErrMissingResolution
	}

	ticket, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusClosed {
		return nil, domain.ErrTicketAlreadyResolved
	}

	now := time.Now().UTC()
	ticket.Status = domain.TicketStatusResolved
	ticket.ResolutionNotes = input.ResolutionNotes
	ticket.UpdatedAt = now
	ticket.ResolvedAt = &now

	if err := s.repo.Update(ctx, ticket); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStore, "failed to update ticket", err)
	}

	job := domain.NewIndexJob(s.uuidGen.NewUUID(), domain.SourceTypeTicket, ticket.ID, now)
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStore, "failed to queue index job", err)
	}

	return ticket, nil
}
