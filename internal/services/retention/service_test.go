package retention

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/models"
	badgerstore "github.com/ternarybob/decktag/internal/storage/badger"
)

func TestRunNowRemovesExpiredJobsAndFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Badger.Path = filepath.Join(dir, "db")
	cfg.Storage.Filesystem.Uploads = filepath.Join(dir, "uploads")
	cfg.Storage.Filesystem.Output = filepath.Join(dir, "output")
	cfg.Jobs.Retention = "24h"

	logger := common.GetLogger()
	manager, err := badgerstore.NewManager(logger, &cfg.Storage.Badger)
	require.NoError(t, err)
	defer manager.Close()

	storage := manager.JobStorage()
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(cfg.Storage.Filesystem.Uploads, 0755))
	require.NoError(t, os.MkdirAll(cfg.Storage.Filesystem.Output, 0755))

	// An old complete job with files on disk.
	old := models.NewJob("job_old", "old.pptx", filepath.Join(cfg.Storage.Filesystem.Uploads, "job_old.pptx"))
	old.Status = models.JobStatusComplete
	old.CompletedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, storage.Save(ctx, old))
	require.NoError(t, os.WriteFile(old.SourcePath, []byte("pptx"), 0644))
	oldPDF := filepath.Join(cfg.Storage.Filesystem.Output, "job_old.pdf")
	require.NoError(t, os.WriteFile(oldPDF, []byte("%PDF"), 0644))

	// A recent complete job and a still-running job survive the sweep.
	recent := models.NewJob("job_recent", "recent.pptx", "")
	recent.Status = models.JobStatusComplete
	recent.CompletedAt = time.Now().Add(-1 * time.Hour)
	require.NoError(t, storage.Save(ctx, recent))

	running := models.NewJob("job_running", "running.pptx", "")
	running.Status = models.JobStatusAnalyzing
	require.NoError(t, storage.Save(ctx, running))

	svc := NewService(cfg, manager, logger)
	svc.RunNow()

	_, err = storage.Get(ctx, "job_old")
	assert.ErrorIs(t, err, models.ErrJobNotFound)
	_, err = os.Stat(old.SourcePath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(oldPDF)
	assert.True(t, os.IsNotExist(err))

	_, err = storage.Get(ctx, "job_recent")
	assert.NoError(t, err)
	_, err = storage.Get(ctx, "job_running")
	assert.NoError(t, err)
}
