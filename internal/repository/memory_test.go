//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsgrid/triagekit/internal/domain"
	"github.com/opsgrid/triagekit/internal/testutil"
)

// vec384 builds a unit vector with a single hot dimension so tests get
// predictable cosine distances.
func vec384(hot int) []float32 {
	v := make([]float32, 384)
	v[hot] = 1.0
	return v
}

func memoryItem(sourceType, sourceID string, chunkIndex int, content string, embedding []float32) domain.MemoryItem {
	return domain.MemoryItem{
		SourceType: sourceType,
		SourceID:   sourceID,
		ChunkIndex: chunkIndex,
		Title:      "test title",
		Content:    content,
		Embedding:  embedding,
	}
}

func TestMemoryRepository_ReplaceSource(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewMemoryRepository(pool)

	items := []domain.MemoryItem{
		memoryItem(domain.SourceTypeTicket, "t-1", 0, "first chunk", vec384(0)),
		memoryItem(domain.SourceTypeTicket, "t-1", 1, "second chunk", vec384(1)),
		memoryItem(domain.SourceTypeTicket, "t-1", 2, "third chunk", vec384(2)),
	}

	err := repo.ReplaceSource(ctx, domain.SourceTypeTicket, "t-1", items)
	require.NoError(t, err)

	count, err := repo.CountBySource(ctx, domain.SourceTypeTicket, "t-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMemoryRepository_ReplaceSource_ShrinkingSource(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewMemoryRepository(pool)

	initial := []domain.MemoryItem{
		memoryItem(domain.SourceTypeTicket, "t-1", 0, "old chunk zero", vec384(0)),
		memoryItem(domain.SourceTypeTicket, "t-1", 1, "old chunk one", vec384(1)),
		memoryItem(domain.SourceTypeTicket, "t-1", 2, "old chunk two", vec384(2)),
	}
	require.NoError(t, repo.ReplaceSource(ctx, domain.SourceTypeTicket, "t-1", initial))

	replacement := []domain.MemoryItem{
		memoryItem(domain.SourceTypeTicket, "t-1", 0, "new chunk zero", vec384(3)),
	}
	require.NoError(t, repo.ReplaceSource(ctx, domain.SourceTypeTicket, "t-1", replacement))

	count, err := repo.CountBySource(ctx, domain.SourceTypeTicket, "t-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	hits, err := repo.SimilaritySearch(ctx, vec384(3), 10, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new chunk zero", hits[0].Item.Content)
}

func TestMemoryRepository_ReplaceSource_EmptyClearsSource(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewMemoryRepository(pool)

	items := []domain.MemoryItem{
		memoryItem(domain.SourceTypeNote, "n-1", 0, "a note", vec384(0)),
	}
	require.NoError(t, repo.ReplaceSource(ctx, domain.SourceTypeNote, "n-1", items))

	require.NoError(t, repo.ReplaceSource(ctx, domain.SourceTypeNote, "n-1", nil))

	count, err := repo.CountBySource(ctx, domain.SourceTypeNote, "n-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemoryRepository_ReplaceSource_InvalidItem(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewMemoryRepository(pool)

	items := []domain.MemoryItem{
		memoryItem(domain.SourceTypeNote, "n-1", 0, "valid", vec384(0)),
		memoryItem(domain.SourceTypeNote, "n-1", 1, "", vec384(1)),
	}

	err := repo.ReplaceSource(ctx, domain.SourceTypeNote, "n-1", items)
	require.Error(t, err)

	// Rollback should leave nothing behind.
	count, err := repo.CountBySource(ctx, domain.SourceTypeNote, "n-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemoryRepository_SimilaritySearch_Ordering(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewMemoryRepository(pool)

	// Exact match, partial overlap, orthogonal.
	exact := vec384(0)
	partial := make([]float32, 384)
	partial[0] = 0.7071
	partial[1] = 0.7071
	orthogonal := vec384(5)

	items := []domain.MemoryItem{
		memoryItem(domain.SourceTypeTicket, "t-1", 0, "exact match", exact),
		memoryItem(domain.SourceTypeTicket, "t-1", 1, "partial match", partial),
		memoryItem(domain.SourceTypeTicket, "t-1", 2, "unrelated", orthogonal),
	}
	require.NoError(t, repo.ReplaceSource(ctx, domain.SourceTypeTicket, "t-1", items))

	hits, err := repo.SimilaritySearch(ctx, vec384(0), 10, "")
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "exact match", hits[0].Item.Content)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-4)
	assert.Equal(t, "partial match", hits[1].Item.Content)
	assert.Equal(t, "unrelated", hits[2].Item.Content)
	assert.InDelta(t, 0.0, hits[2].Score, 1e-4)

	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	assert.GreaterOrEqual(t, hits[1].Score, hits[2].Score)
}

func TestMemoryRepository_SimilaritySearch_SourceTypeFilter(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewMemoryRepository(pool)

	require.NoError(t, repo.ReplaceSource(ctx, domain.SourceTypeTicket, "t-1", []domain.MemoryItem{
		memoryItem(domain.SourceTypeTicket, "t-1", 0, "ticket chunk", vec384(0)),
	}))
	require.NoError(t, repo.ReplaceSource(ctx, domain.SourceTypeSOP, "s-1", []domain.MemoryItem{
		memoryItem(domain.SourceTypeSOP, "s-1", 0, "sop chunk", vec384(0)),
	}))

	hits, err := repo.SimilaritySearch(ctx, vec384(0), 10, domain.SourceTypeSOP)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, domain.SourceTypeSOP, hits[0].Item.SourceType)
}

func TestMemoryRepository_SimilaritySearch_LimitAndMetadata(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewMemoryRepository(pool)

	item := memoryItem(domain.SourceTypeTicket, "t-1", 0, "chunk zero", vec384(0))
	item.Metadata = map[string]any{"priority": "high"}
	items := []domain.MemoryItem{
		item,
		memoryItem(domain.SourceTypeTicket, "t-1", 1, "chunk one", vec384(1)),
		memoryItem(domain.SourceTypeTicket, "t-1", 2, "chunk two", vec384(2)),
	}
	require.NoError(t, repo.ReplaceSource(ctx, domain.SourceTypeTicket, "t-1", items))

	hits, err := repo.SimilaritySearch(ctx, vec384(0), 2, "")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "chunk zero", hits[0].Item.Content)
	assert.Equal(t, "high", hits[0].Item.Metadata["priority"])
	assert.NotEmpty(t, hits[0].Item.ID)
}
