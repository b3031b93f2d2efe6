package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/opsgrid/triagekit/internal/domain"
)

// MemoryRepository persists memory chunks and runs pgvector similarity
// search over them.
type MemoryRepository struct {
	pool *pgxpool.Pool
}

func NewMemoryRepository(pool *pgxpool.Pool) *MemoryRepository {
	return &MemoryRepository{pool: pool}
}

// ReplaceSource swaps the full chunk set of one source in a single
// transaction: delete everything under (source_type, source_id), then insert
// the new dense 0..N-1 set. Deleting first is what keeps a shrinking source
// from leaving stale higher-index chunks behind. An empty items slice clears
// the source.
func (r *MemoryRepository) ReplaceSource(ctx context.Context, sourceType, sourceID string, items []domain.MemoryItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM memory_items WHERE source_type = $1 AND source_id = $2`,
		sourceType, sourceID,
	)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := domain.ValidateMemoryItem(&item); err != nil {
			return err
		}

		metadata, err := marshalMetadata(item.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}

		createdAt := item.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		updatedAt := item.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO memory_items
				(source_type, source_id, chunk_index, title, content, metadata, embedding, created_at, updated_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.SourceType,
			item.SourceID,
			item.ChunkIndex,
			item.Title,
			item.Content,
			metadata,
			pgvector.NewVector(item.Embedding),
			createdAt,
			updatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SimilaritySearch returns up to limit chunks ordered by ascending cosine
// distance to the query vector. Score is 1 - distance: identical vectors
// score 1.0, orthogonal vectors 0.0.
func (r *MemoryRepository) SimilaritySearch(ctx context.Context, embedding []float32, limit int, filterSourceType string) ([]domain.MemoryHit, error) {
	if limit <= 0 {
		limit = 10
	}

	vec := pgvector.NewVector(embedding)

	query := `
		SELECT id, source_type, source_id, chunk_index, title, content, metadata,
		       1.0 - (embedding <=> $1) AS score
		FROM memory_items`
	args := []any{vec}

	if filterSourceType != "" {
		query += ` WHERE source_type = $2`
		args = append(args, filterSourceType)
	}

	query += fmt.Sprintf(`
		ORDER BY embedding <=> $1
		LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]domain.MemoryHit, 0, limit)
	for rows.Next() {
		var hit domain.MemoryHit
		var metadata []byte
		if err := rows.Scan(
			&hit.Item.ID,
			&hit.Item.SourceType,
			&hit.Item.SourceID,
			&hit.Item.ChunkIndex,
			&hit.Item.Title,
			&hit.Item.Content,
			&metadata,
			&hit.Score,
		); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &hit.Item.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %w", err)
			}
		}
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}

// CountBySource returns how many chunks a source currently has.
func (r *MemoryRepository) CountBySource(ctx context.Context, sourceType, sourceID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM memory_items WHERE source_type = $1 AND source_id = $2`,
		sourceType, sourceID,
	).Scan(&count)
	return count, err
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return []byte(`{}`), nil
	}
	return json.Marshal(metadata)
}
