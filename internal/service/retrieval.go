package service

import (
	"context"
	"fmt"

	"github.com/opsgrid/triagekit/internal/domain"
)

// MemorySearcher is the slice of MemoryService the retrieval engine needs.
type MemorySearcher interface {
	Search(ctx context.Context, input SearchInput) ([]domain.MemoryHit, error)
}

// RetrievalService shapes similarity-search results into evidence items for
// prompt construction.
type RetrievalService struct {
	memory MemorySearcher
}

// NewRetrievalService creates a new RetrievalService instance.
func NewRetrievalService(memory MemorySearcher) *RetrievalService {
	return &RetrievalService{memory: memory}
}

// RetrieveEvidence embeds the query, searches the store and assigns ref
// tokens E1..En in rank order: E1 is always the single best match of the
// call. An empty slice means the store had nothing relevant; callers must
// treat that as a distinct state, never as an error.
func (s *RetrievalService) RetrieveEvidence(ctx context.Context, query string, limit int, filterSourceType string) ([]domain.EvidenceItem, error) {
	hits, err := s.memory.Search(ctx, SearchInput{
		Query:      query,
		Limit:      limit,
		SourceType: filterSourceType,
	})
	if err != nil {
		return nil, err
	}

	evidence := make([]domain.EvidenceItem, 0, len(hits))
	for i, hit := range hits {
		evidence = append(evidence, domain.EvidenceItem{
			Ref:        fmt.Sprintf("E%d", i+1),
			SourceType: hit.Item.SourceType,
			SourceID:   hit.Item.SourceID,
			ChunkIndex: hit.Item.ChunkIndex,
			Title:      hit.Item.Title,
			Content:    hit.Item.Content,
			Metadata:   hit.Item.Metadata,
			Score:      hit.Score,
		})
	}
	return evidence, nil
}
