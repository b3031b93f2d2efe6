package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsgrid/triagekit/internal/domain"
)

// TicketRepository handles ticket persistence.
type TicketRepository struct {
	db dbtx
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{db: pool}
}

func (r *TicketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	topics := t.Topics
	if topics == nil {
		topics = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO tickets (id, title, description, status, priority, topics, resolution_notes, created_at, updated_at, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Title, t.Description, t.Status, t.Priority, topics, nullableString(t.ResolutionNotes), t.CreatedAt, t.UpdatedAt, t.ResolvedAt,
	)
	return err
}

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var t domain.Ticket
	var resolutionNotes pgtype.Text
	var resolvedAt *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT id, title, description, status, priority, topics, resolution_notes, created_at, updated_at, resolved_at
		 FROM tickets WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Topics, &resolutionNotes, &t.CreatedAt, &t.UpdatedAt, &resolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	if resolutionNotes.Valid {
		t.ResolutionNotes = resolutionNotes.String
	}
	t.ResolvedAt = resolvedAt
	return &t, nil
}

func (r *TicketRepository) List(ctx context.Context, status domain.TicketStatus, limit int) ([]*domain.Ticket, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, title, description, status, priority, topics, resolution_notes, created_at, updated_at, resolved_at
		FROM tickets`
	args := []any{}

	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}

	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		var resolutionNotes pgtype.Text
		var resolvedAt *time.Time
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Topics, &resolutionNotes, &t.CreatedAt, &t.UpdatedAt, &resolvedAt); err != nil {
			return nil, err
		}
		if resolutionNotes.Valid {
			t.ResolutionNotes = resolutionNotes.String
		}
		t.ResolvedAt = resolvedAt
		tickets = append(tickets, &t)
	}
	return tickets, rows.Err()
}

func (r *TicketRepository) Update(ctx context.Context, t *domain.Ticket) error {
	topics := t.Topics
	if topics == nil {
		topics = []string{}
	}
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE tickets
		 SET title = $1, description = $2, status = $3, priority = $4, topics = $5,
		     resolution_notes = $6, updated_at = $7, resolved_at = $8
		 WHERE id = $9`,
		t.Title, t.Description, t.Status, t.Priority, topics,
		nullableString(t.ResolutionNotes), t.UpdatedAt, t.ResolvedAt, t.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}
