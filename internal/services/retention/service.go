package retention

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/interfaces"
)

// Service periodically removes finished jobs older than the configured
// retention window, along with their upload and PDF files. Running jobs
// are never touched.
type Service struct {
	config  *common.Config
	manager interfaces.StorageManager
	storage interfaces.JobStorage
	cron    *cron.Cron
	logger  arbor.ILogger
}

// NewService creates a new retention service
func NewService(config *common.Config, manager interfaces.StorageManager, logger arbor.ILogger) *Service {
	return &Service{
		config:  config,
		manager: manager,
		storage: manager.JobStorage(),
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
	}
}

// Start begins the scheduled retention sweep
func (s *Service) Start() error {
	schedule := s.config.Jobs.CleanupSchedule
	if schedule == "" {
		// Default: hourly
		schedule = "0 0 * * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.RunNow()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Str("retention", s.config.Jobs.Retention).
		Msg("Retention sweep scheduled")

	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Retention service stopped")
}

// RunNow performs one retention sweep
func (s *Service) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.config.RetentionDuration())
	removed, err := s.storage.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("Retention sweep failed")
		return
	}

	for _, id := range removed {
		s.removeJobFiles(id)
	}

	if len(removed) > 0 {
		s.logger.Info().
			Int("removed", len(removed)).
			Str("cutoff", cutoff.Format(time.RFC3339)).
			Msg("Retention sweep completed")
	}

	if err := s.manager.RunGC(); err != nil {
		s.logger.Warn().Err(err).Msg("Value log GC failed")
	}
}

// removeJobFiles deletes the upload and output files for a removed job.
// Uploads keep their original extension, so the uploads directory is
// matched by job ID prefix.
func (s *Service) removeJobFiles(jobID string) {
	matches, err := filepath.Glob(filepath.Join(s.config.Storage.Filesystem.Uploads, jobID+".*"))
	if err == nil {
		for _, m := range matches {
			os.Remove(m)
		}
	}
	os.Remove(filepath.Join(s.config.Storage.Filesystem.Output, jobID+".pdf"))
}
