package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/opsgrid/triagekit/internal/domain"
)

// TicketGetter is the slice of the ticket repository the indexer needs.
type TicketGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
}

// MemoryUpserter is the slice of MemoryService the indexer needs.
type MemoryUpserter interface {
	Upsert(ctx context.Context, input UpsertInput) (int, error)
}

// IndexerService resolves an index job's source into text and feeds it
// through the memory pipeline. Called by the background worker.
type IndexerService struct {
	tickets TicketGetter
	memory  MemoryUpserter
}

// NewIndexerService creates a new IndexerService instance.
func NewIndexerService(tickets TicketGetter, memory MemoryUpserter) *IndexerService {
	return &IndexerService{
		tickets: tickets,
		memory:  memory,
	}
}

// IndexSource indexes one source into memory.
func (s *IndexerService) IndexSource(ctx context.Context, sourceType, sourceID string) error {
	switch sourceType {
	case domain.SourceTypeTicket:
		return s.indexTicket(ctx, sourceID)
	default:
		return fmt.Errorf("no indexer for source type %q", sourceType)
	}
}

func (s *IndexerService) indexTicket(ctx context.Context, ticketID string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}

	content := buildTicketMemoryText(ticket)
	metadata := map[string]any{
		"status":   string(ticket.Status),
		"priority": string(ticket.Priority),
	}
	if len(ticket.Topics) > 0 {
		metadata["topics"] = ticket.Topics
	}

	_, err = s.memory.Upsert(ctx, UpsertInput{
		SourceType: domain.SourceTypeTicket,
		SourceID:   ticket.ID,
		Title:      ticket.Title,
		Content:    content,
		Metadata:   metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to index ticket %s: %w", ticket.ID, err)
	}
	return nil
}

// buildTicketMemoryText combines the ticket's description and resolution so
// a future query can match either the symptom or the fix.
func buildTicketMemoryText(t *domain.Ticket) string {
	var parts []string
	if t.Description != "" {
		parts = append(parts, t.Description)
	}
	if t.ResolutionNotes != "" {
		parts = append(parts, "Resolution:\n"+t.ResolutionNotes)
	}
	return strings.Join(parts, "\n\n")
}
