package domain

import (
	"fmt"
	"time"
)

// TicketStatus represents the lifecycle state of a ticket
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketPriority represents the urgency of a ticket
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Ticket represents a tracked issue. Resolution text is the raw material the
// memory pipeline indexes when a ticket moves to resolved.
type Ticket struct {
	ID              string
	Title           string
	Description     string
	Status          TicketStatus
	Priority        TicketPriority
	Topics          []string
	ResolutionNotes string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ResolvedAt      *time.Time
}

// ValidateTicket validates a Ticket instance
func ValidateTicket(t *Ticket) error {
	if t == nil {
		return NewDomainError(ErrCodeValidation, "ticket cannot be nil")
	}
	if t.ID == "" {
		return NewDomainError(ErrCodeValidation, "ticket ID is required")
	}
	if t.Title == "" {
		return ErrMissingTitle
	}
	if !isValidTicketStatus(t.Status) {
		return NewDomainError(ErrCodeValidation, fmt.Sprintf("ticket status is invalid: %s", t.Status))
	}
	if !isValidTicketPriority(t.Priority) {
		return NewDomainError(ErrCodeValidation, fmt.Sprintf("ticket priority is invalid: %s", t.Priority))
	}
	return nil
}

func isValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

func isValidTicketPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}
