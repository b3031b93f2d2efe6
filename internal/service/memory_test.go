package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/opsgrid/triagekit/internal/domain"
)

// MockMemoryRepository is a mock implementation of MemoryRepositoryInterface
type MockMemoryRepository struct {
	mock.Mock
}

func (m *MockMemoryRepository) ReplaceSource(ctx context.Context, sourceType, sourceID string, items []domain.MemoryItem) error {
	args := m.Called(ctx, sourceType, sourceID, items)
	return args.Error(0)
}

func (m *MockMemoryRepository) SimilaritySearch(ctx context.Context, embedding []float32, limit int, filterSourceType string) ([]domain.MemoryHit, error) {
	args := m.Called(ctx, embedding, limit, filterSourceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MemoryHit), args.Error(1)
}

func newTestMemoryService(repo MemoryRepositoryInterface) *MemoryService {
	return NewMemoryService(repo, NewHashEmbedder(32), DefaultChunkConfig(), nil)
}

func TestMemoryServiceUpsert(t *testing.T) {
	repo := new(MockMemoryRepository)
	repo.On("ReplaceSource", mock.Anything, "sop", "sop-1", mock.MatchedBy(func(items []domain.MemoryItem) bool {
		return len(items) == 1 &&
			items[0].ChunkIndex == 0 &&
			items[0].SourceType == "sop" &&
			items[0].SourceID == "sop-1" &&
			len(items[0].Embedding) == 32
	})).Return(nil)

	svc := newTestMemoryService(repo)

	count, err := svc.Upsert(context.Background(), UpsertInput{
		SourceType: "sop",
		SourceID:   "sop-1",
		Title:      "Restart the queue",
		Content:    "Stop the consumers, flush the dead letter queue, start the consumers.",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	repo.AssertExpectations(t)
}

func TestMemoryServiceUpsert_MultipleChunksDenseIndices(t *testing.T) {
	var stored []domain.MemoryItem
	repo := new(MockMemoryRepository)
	repo.On("ReplaceSource", mock.Anything, "postmortem", "pm-1", mock.Anything).
		Run(func(args mock.Arguments) {
			stored = args.Get(3).([]domain.MemoryItem)
		}).
		Return(nil)

	svc := newTestMemoryService(repo)

	count, err := svc.Upsert(context.Background(), UpsertInput{
		SourceType: "postmortem",
		SourceID:   "pm-1",
		Title:      "Outage 2026-01-14",
		Content:    strings.Repeat("The pods crashed because the config map was stale. ", 100),
	})
	require.NoError(t, err)
	require.Greater(t, count, 1)
	require.Len(t, stored, count)

	for i, item := range stored {
		assert.Equal(t, i, item.ChunkIndex)
		assert.NotEmpty(t, item.Content)
		assert.Len(t, item.Embedding, 32)
	}
}

func TestMemoryServiceUpsert_EmptyContentClearsSource(t *testing.T) {
	repo := new(MockMemoryRepository)
	repo.On("ReplaceSource", mock.Anything, "note", "n-1", mock.MatchedBy(func(items []domain.MemoryItem) bool {
		return len(items) == 0
	})).Return(nil)

	svc := newTestMemoryService(repo)

	count, err := svc.Upsert(context.Background(), UpsertInput{
		SourceType: "note",
		SourceID:   "n-1",
		Content:    "   \n  ",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	repo.AssertExpectations(t)
}

func TestMemoryServiceUpsert_TokenFreeContentClearsSource(t *testing.T) {
	repo := new(MockMemoryRepository)
	repo.On("ReplaceSource", mock.Anything, "note", "n-1", mock.MatchedBy(func(items []domain.MemoryItem) bool {
		return len(items) == 0
	})).Return(nil)

	svc := newTestMemoryService(repo)

	// Non-empty but tokenless content would embed to the zero vector,
	// which has no cosine distance to anything. It must not be stored.
	count, err := svc.Upsert(context.Background(), UpsertInput{
		SourceType: "note",
		SourceID:   "n-1",
		Content:    "!!! ??? ...",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	repo.AssertExpectations(t)
}

func TestMemoryServiceUpsert_SkipsTokenFreeChunksKeepsIndicesDense(t *testing.T) {
	var stored []domain.MemoryItem
	repo := new(MockMemoryRepository)
	repo.On("ReplaceSource", mock.Anything, "note", "n-1", mock.Anything).
		Run(func(args mock.Arguments) {
			stored = args.Get(3).([]domain.MemoryItem)
		}).
		Return(nil)

	// Four-rune windows without overlap: "abcd", "!!!!", "efgh". The
	// middle chunk has no tokens and no title to lend it any.
	svc := NewMemoryService(repo, NewHashEmbedder(32), ChunkConfig{MaxChars: 4, Overlap: 0}, nil)

	count, err := svc.Upsert(context.Background(), UpsertInput{
		SourceType: "note",
		SourceID:   "n-1",
		Content:    "abcd!!!!efgh",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, stored, 2)
	assert.Equal(t, "abcd", stored[0].Content)
	assert.Equal(t, 0, stored[0].ChunkIndex)
	assert.Equal(t, "efgh", stored[1].Content)
	assert.Equal(t, 1, stored[1].ChunkIndex)
}

func TestMemoryServiceUpsert_Validation(t *testing.T) {
	svc := newTestMemoryService(new(MockMemoryRepository))

	_, err := svc.Upsert(context.Background(), UpsertInput{SourceID: "x", Content: "y"})
	assert.ErrorIs(t, err, domain.ErrMissingSourceType)

	_, err = svc.Upsert(context.Background(), UpsertInput{SourceType: "note", Content: "y"})
	assert.ErrorIs(t, err, domain.ErrMissingSourceID)
}

func TestMemoryServiceUpsert_StoreError(t *testing.T) {
	repo := new(MockMemoryRepository)
	repo.On("ReplaceSource", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection refused"))

	svc := newTestMemoryService(repo)

	_, err := svc.Upsert(context.Background(), UpsertInput{
		SourceType: "note",
		SourceID:   "n-1",
		Content:    "some text",
	})
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeStore, domainErr.Code)
}

func TestMemoryServiceSearch(t *testing.T) {
	hits := []domain.MemoryHit{
		{Item: domain.MemoryItem{SourceType: "ticket", SourceID: "t-1", Content: "redis timeout"}, Score: 0.91},
	}

	repo := new(MockMemoryRepository)
	repo.On("SimilaritySearch", mock.Anything, mock.Anything, DefaultSearchLimit, "").Return(hits, nil)

	svc := newTestMemoryService(repo)

	got, err := svc.Search(context.Background(), SearchInput{Query: "redis timeout"})
	require.NoError(t, err)
	assert.Equal(t, hits, got)
	repo.AssertExpectations(t)
}

func TestMemoryServiceSearch_EmptyQuery(t *testing.T) {
	svc := newTestMemoryService(new(MockMemoryRepository))

	_, err := svc.Search(context.Background(), SearchInput{Query: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestMemoryServiceSearch_TokenFreeQuery(t *testing.T) {
	repo := new(MockMemoryRepository)
	svc := newTestMemoryService(repo)

	// "!!!" trims to non-empty but tokenizes to nothing; comparing against
	// its zero vector would make every score NaN.
	_, err := svc.Search(context.Background(), SearchInput{Query: "!!!"})
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	repo.AssertNotCalled(t, "SimilaritySearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMemoryServiceSearch_LimitClamped(t *testing.T) {
	repo := new(MockMemoryRepository)
	repo.On("SimilaritySearch", mock.Anything, mock.Anything, MaxSearchLimit, "").Return([]domain.MemoryHit{}, nil)

	svc := newTestMemoryService(repo)

	_, err := svc.Search(context.Background(), SearchInput{Query: "q", Limit: 5000})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestMemoryServiceSearch_SourceTypeFilterPassedThrough(t *testing.T) {
	repo := new(MockMemoryRepository)
	repo.On("SimilaritySearch", mock.Anything, mock.Anything, 3, "sop").Return([]domain.MemoryHit{}, nil)

	svc := newTestMemoryService(repo)

	_, err := svc.Search(context.Background(), SearchInput{Query: "q", Limit: 3, SourceType: "sop"})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultSearchLimit, clampLimit(0))
	assert.Equal(t, DefaultSearchLimit, clampLimit(-5))
	assert.Equal(t, 1, clampLimit(1))
	assert.Equal(t, MaxSearchLimit, clampLimit(51))
}

func TestBuildChunkEmbeddingText(t *testing.T) {
	assert.Equal(t, "Title\n\nbody", buildChunkEmbeddingText("Title", "body"))
	assert.Equal(t, "body", buildChunkEmbeddingText("", "body"))
	assert.Equal(t, "Title", buildChunkEmbeddingText("Title", ""))
}
