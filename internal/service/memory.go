package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/opsgrid/triagekit/internal/domain"
	"github.com/opsgrid/triagekit/internal/metrics"
	"github.com/opsgrid/triagekit/internal/telemetry"
)

const (
	// MaxSearchLimit bounds the result count of one similarity search.
	MaxSearchLimit = 50
	// DefaultSearchLimit applies when the caller does not ask for a limit.
	DefaultSearchLimit = 8
)

// MemoryRepositoryInterface defines the vector-store operations the memory
// service depends on.
type MemoryRepositoryInterface interface {
	// ReplaceSource atomically swaps the full chunk set of one source.
	ReplaceSource(ctx context.Context, sourceType, sourceID string, items []domain.MemoryItem) error
	// SimilaritySearch returns up to limit items ordered by descending
	// score. filterSourceType of "" means no filter.
	SimilaritySearch(ctx context.Context, embedding []float32, limit int, filterSourceType string) ([]domain.MemoryHit, error)
}

// UpsertInput represents input for storing one source into memory.
type UpsertInput struct {
	SourceType string
	SourceID   string
	Title      string
	Content    string
	Metadata   map[string]any
}

// SearchInput represents input for a similarity search.
type SearchInput struct {
	Query      string
	Limit      int
	SourceType string
}

// MemoryService runs the chunk -> embed -> store pipeline and similarity
// search over it.
type MemoryService struct {
	repo     MemoryRepositoryInterface
	embedder Embedder
	chunkCfg ChunkConfig
	metrics  *metrics.Metrics
}

// NewMemoryService creates a new MemoryService instance.
func NewMemoryService(repo MemoryRepositoryInterface, embedder Embedder, chunkCfg ChunkConfig, m *metrics.Metrics) *MemoryService {
	if chunkCfg.MaxChars <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	return &MemoryService{
		repo:     repo,
		embedder: embedder,
		chunkCfg: chunkCfg,
		metrics:  m,
	}
}

// Upsert chunks and embeds the input content, then replaces the source's
// chunk set in the store. Returns the number of chunks written. Empty or
// token-free content clears the source's chunks and returns zero; nothing
// to index is not an error.
func (s *MemoryService) Upsert(ctx context.Context, input UpsertInput) (int, error) {
	if input.SourceType == "" {
		return 0, domain.ErrMissingSourceType
	}
	if input.SourceID == "" {
		return 0, domain.ErrMissingSourceID
	}

	ctx, span := telemetry.StartSpan(ctx, "MemoryService.Upsert", telemetry.SpanAttributes{
		SourceType: input.SourceType,
		SourceID:   input.SourceID,
		Operation:  "upsert",
	})
	defer span.End()

	chunks := chunkText(input.Content, s.chunkCfg)

	now := time.Now().UTC()
	items := make([]domain.MemoryItem, len(chunks))

	// Chunk embeddings are independent of each other; compute them
	// concurrently before the single batched store call.
	var wg sync.WaitGroup
	errs := make([]error, len(chunks))
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk string) {
			defer wg.Done()
			embedding, err := s.embedder.Embed(ctx, buildChunkEmbeddingText(input.Title, chunk))
			if err != nil {
				errs[i] = err
				return
			}
			items[i] = domain.MemoryItem{
				SourceType: input.SourceType,
				SourceID:   input.SourceID,
				ChunkIndex: i,
				Title:      input.Title,
				Content:    chunk,
				Metadata:   input.Metadata,
				Embedding:  embedding,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
		}(i, chunk)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			span.SetError(err)
			return 0, fmt.Errorf("failed to embed chunk: %w", err)
		}
	}

	// Token-free chunks embed to the zero vector, and one stored zero
	// vector turns every subsequent search score into NaN. Skip them like
	// empty content and keep the surviving indices dense.
	kept := make([]domain.MemoryItem, 0, len(items))
	for _, item := range items {
		if isZeroVector(item.Embedding) {
			continue
		}
		item.ChunkIndex = len(kept)
		kept = append(kept, item)
	}
	items = kept

	if err := s.repo.ReplaceSource(ctx, input.SourceType, input.SourceID, items); err != nil {
		span.SetError(err)
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeStore, "failed to store memory chunks", err)
	}

	s.metrics.ObserveUpsert(len(items))
	return len(items), nil
}

// Search embeds the query and runs a similarity search. The limit is clamped
// into [1, MaxSearchLimit]; zero means DefaultSearchLimit. An empty result
// is a legitimate state, not an error.
func (s *MemoryService) Search(ctx context.Context, input SearchInput) ([]domain.MemoryHit, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	ctx, span := telemetry.StartSpan(ctx, "MemoryService.Search", telemetry.SpanAttributes{
		SourceType: input.SourceType,
		Operation:  "search",
	})
	defer span.End()

	limit := clampLimit(input.Limit)

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if isZeroVector(embedding) {
		// A token-free query has no direction to compare against.
		return nil, domain.ErrEmptyQuery
	}

	hits, err := s.repo.SimilaritySearch(ctx, embedding, limit, input.SourceType)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStore, "similarity search failed", err)
	}

	s.metrics.ObserveSearch()
	return hits, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}

// buildChunkEmbeddingText prefixes the source title so every chunk embeds
// with its document context, the same text shape used at query time.
func buildChunkEmbeddingText(title, chunk string) string {
	var parts []string
	if title != "" {
		parts = append(parts, title)
	}
	if chunk != "" {
		parts = append(parts, chunk)
	}
	return strings.Join(parts, "\n\n")
}
