package domain

import "time"

// Well-known source types. SourceType is a free-form string, not a closed
// enum: new sources (external sync adapters, imports) may appear without a
// schema change. These constants cover the sources this service writes
// itself.
const (
	SourceTypeTicket     = "ticket"
	SourceTypeSOP        = "sop"
	SourceTypePostmortem = "postmortem"
	SourceTypeNote       = "note"
)

// MemoryItem is one persisted chunk of retrievable knowledge. Items are
// unique by (SourceType, SourceID, ChunkIndex); re-upserting a source
// replaces its whole chunk set, so indices stay a dense 0..N-1 sequence.
type MemoryItem struct {
	ID         string
	SourceType string
	SourceID   string
	ChunkIndex int
	Title      string
	Content    string
	Metadata   map[string]any
	Embedding  []float32
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateMemoryItem validates a MemoryItem prior to persistence.
func ValidateMemoryItem(m *MemoryItem) error {
	if m == nil {
		return NewDomainError(ErrCodeValidation, "memory item cannot be nil")
	}
	if m.SourceType == "" {
		return ErrMissingSourceType
	}
	if m.SourceID == "" {
		return ErrMissingSourceID
	}
	if m.ChunkIndex < 0 {
		return ErrInvalidChunkIndex
	}
	if m.Content == "" {
		return NewDomainError(ErrCodeValidation, "memory item content cannot be empty")
	}
	return nil
}

// MemoryHit is a MemoryItem returned by similarity search together with its
// score. Score follows the convention 1 - cosineDistance(query, candidate):
// identical vectors score 1.0, orthogonal vectors 0.0.
type MemoryHit struct {
	Item  MemoryItem
	Score float64
}
