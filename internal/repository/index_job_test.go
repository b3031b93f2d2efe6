//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsgrid/triagekit/internal/domain"
	"github.com/opsgrid/triagekit/internal/testutil"
)

func TestIndexJobRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewIndexJobRepository(pool)

	job := domain.NewIndexJob(uuid.NewString(), domain.SourceTypeTicket, "t-1", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, job))

	retrieved, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, retrieved.ID)
	assert.Equal(t, domain.SourceTypeTicket, retrieved.SourceType)
	assert.Equal(t, "t-1", retrieved.SourceID)
	assert.Equal(t, domain.IndexJobStatusPending, retrieved.Status)
	assert.Equal(t, int32(0), retrieved.Retries)
	assert.Empty(t, retrieved.Error)
	assert.Nil(t, retrieved.ProcessedAt)
}

func TestIndexJobRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewIndexJobRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrIndexJobNotFound)
}

func TestIndexJobRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewIndexJobRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	older := domain.NewIndexJob(uuid.NewString(), domain.SourceTypeTicket, "t-1", base)
	newer := domain.NewIndexJob(uuid.NewString(), domain.SourceTypeTicket, "t-2", base.Add(time.Second))
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	completed := domain.NewIndexJob(uuid.NewString(), domain.SourceTypeTicket, "t-3", base)
	completed.Status = domain.IndexJobStatusCompleted
	require.NoError(t, repo.Create(ctx, completed))

	claimed, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	// Oldest first, and claiming flips status so no other worker sees them.
	ids := []string{claimed[0].ID, claimed[1].ID}
	assert.Contains(t, ids, older.ID)
	assert.Contains(t, ids, newer.ID)
	for _, job := range claimed {
		assert.Equal(t, domain.IndexJobStatusProcessing, job.Status)
	}

	again, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestIndexJobRepository_ClaimPending_RespectsLimit(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewIndexJobRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	first := domain.NewIndexJob(uuid.NewString(), domain.SourceTypeTicket, "t-1", base)
	second := domain.NewIndexJob(uuid.NewString(), domain.SourceTypeTicket, "t-2", base.Add(time.Second))
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	claimed, err := repo.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, first.ID, claimed[0].ID)
}

func TestIndexJobRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewIndexJobRepository(pool)

	job := domain.NewIndexJob(uuid.NewString(), domain.SourceTypeTicket, "t-1", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, job))

	require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.IndexJobStatusCompleted, ""))

	retrieved, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexJobStatusCompleted, retrieved.Status)
	assert.NotNil(t, retrieved.ProcessedAt)
	assert.Empty(t, retrieved.Error)

	require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.IndexJobStatusFailed, "embedding store unreachable"))

	retrieved, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexJobStatusFailed, retrieved.Status)
	assert.Equal(t, "embedding store unreachable", retrieved.Error)
}

func TestIndexJobRepository_UpdateStatus_PendingClearsProcessedAt(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewIndexJobRepository(pool)

	job := domain.NewIndexJob(uuid.NewString(), domain.SourceTypeTicket, "t-1", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, job))

	require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.IndexJobStatusFailed, "transient"))
	require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.IndexJobStatusPending, "retry 1: transient"))

	retrieved, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexJobStatusPending, retrieved.Status)
	assert.Nil(t, retrieved.ProcessedAt)
	assert.Equal(t, "retry 1: transient", retrieved.Error)
}

func TestIndexJobRepository_UpdateStatus_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewIndexJobRepository(pool)

	err := repo.UpdateStatus(ctx, uuid.NewString(), domain.IndexJobStatusCompleted, "")
	assert.ErrorIs(t, err, domain.ErrIndexJobNotFound)
}

func TestIndexJobRepository_IncrementRetries(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewIndexJobRepository(pool)

	job := domain.NewIndexJob(uuid.NewString(), domain.SourceTypeTicket, "t-1", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, job))

	require.NoError(t, repo.IncrementRetries(ctx, job.ID))
	require.NoError(t, repo.IncrementRetries(ctx, job.ID))

	retrieved, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), retrieved.Retries)

	err = repo.IncrementRetries(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrIndexJobNotFound)
}
