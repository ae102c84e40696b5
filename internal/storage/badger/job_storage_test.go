package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	logger := arbor.NewLogger()
	mgr, err := NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestJobStorageSaveAndGet(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	job := models.NewJob("job_1", "deck.pptx", "/tmp/deck.pptx")
	require.NoError(t, mgr.JobStorage().Save(ctx, job))

	got, err := mgr.JobStorage().Get(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, "job_1", got.ID)
	assert.Equal(t, models.JobStatusUploaded, got.Status)
	assert.Equal(t, "deck.pptx", got.SourceName)
}

func TestJobStorageGetNotFound(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.JobStorage().Get(context.Background(), "job_missing")
	assert.ErrorIs(t, err, models.ErrJobNotFound)
}

func TestJobStorageSaveRequiresID(t *testing.T) {
	mgr := newTestManager(t)

	err := mgr.JobStorage().Save(context.Background(), &models.Job{})
	assert.Error(t, err)
}

func TestJobStorageListByStatus(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	for i, status := range []models.JobStatus{
		models.JobStatusUploaded,
		models.JobStatusAnalyzed,
		models.JobStatusAnalyzed,
	} {
		job := models.NewJob("job_"+string(rune('a'+i)), "deck.pptx", "")
		job.Status = status
		require.NoError(t, mgr.JobStorage().Save(ctx, job))
	}

	analyzed, err := mgr.JobStorage().ListByStatus(ctx, models.JobStatusAnalyzed)
	require.NoError(t, err)
	assert.Len(t, analyzed, 2)

	all, err := mgr.JobStorage().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestJobStorageDelete(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	job := models.NewJob("job_1", "deck.pptx", "")
	require.NoError(t, mgr.JobStorage().Save(ctx, job))
	require.NoError(t, mgr.JobStorage().Delete(ctx, "job_1"))

	_, err := mgr.JobStorage().Get(ctx, "job_1")
	assert.ErrorIs(t, err, models.ErrJobNotFound)

	assert.ErrorIs(t, mgr.JobStorage().Delete(ctx, "job_1"), models.ErrJobNotFound)
}

func TestJobStorageDeleteOlderThan(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	old := models.NewJob("job_old", "deck.pptx", "")
	old.Status = models.JobStatusComplete
	old.CompletedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, mgr.JobStorage().Save(ctx, old))

	fresh := models.NewJob("job_fresh", "deck.pptx", "")
	fresh.Status = models.JobStatusComplete
	fresh.CompletedAt = time.Now()
	require.NoError(t, mgr.JobStorage().Save(ctx, fresh))

	running := models.NewJob("job_running", "deck.pptx", "")
	running.Status = models.JobStatusAnalyzing
	require.NoError(t, mgr.JobStorage().Save(ctx, running))

	deleted, err := mgr.JobStorage().DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"job_old"}, deleted)

	_, err = mgr.JobStorage().Get(ctx, "job_old")
	assert.ErrorIs(t, err, models.ErrJobNotFound)

	_, err = mgr.JobStorage().Get(ctx, "job_fresh")
	assert.NoError(t, err)

	_, err = mgr.JobStorage().Get(ctx, "job_running")
	assert.NoError(t, err)
}

func TestAlttextStoragePersistence(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	entry := &models.AlttextCacheEntry{
		Fingerprint: "abc123",
		AltText:     "a photo of the team",
		Model:       "claude-haiku-3-5-20241022",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, mgr.AlttextStorage().Save(ctx, entry))

	got, err := mgr.AlttextStorage().Get(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a photo of the team", got.AltText)

	// Miss returns nil without error
	missing, err := mgr.AlttextStorage().Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := mgr.AlttextStorage().All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
