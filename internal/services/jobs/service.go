package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/interfaces"
	"github.com/ternarybob/decktag/internal/models"
	"github.com/ternarybob/decktag/internal/services/validator"
)

// cancelledMessage is the job error message set when a job is cancelled
const cancelledMessage = "cancelled"

// Service implements interfaces.JobService. It owns the job state
// machine and runs the parse/analyze pipeline in background goroutines,
// one per job, each with its own cancel function.
type Service struct {
	config    *common.Config
	storage   interfaces.JobStorage
	reader    interfaces.DocumentReader
	analysis  interfaces.AnalysisService
	validator *validator.Service
	renderer  interfaces.Renderer
	cache     interfaces.AltcacheService
	events    interfaces.EventService
	logger    arbor.ILogger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup

	// stateMu serializes persisted status writes so a pipeline goroutine
	// cannot overwrite a terminal record that Cancel just stored.
	stateMu sync.Mutex
}

// Compile-time interface assertion
var _ interfaces.JobService = (*Service)(nil)

// NewService creates a new job service
func NewService(
	config *common.Config,
	storage interfaces.JobStorage,
	reader interfaces.DocumentReader,
	analysis interfaces.AnalysisService,
	val *validator.Service,
	renderer interfaces.Renderer,
	cache interfaces.AltcacheService,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:    config,
		storage:   storage,
		reader:    reader,
		analysis:  analysis,
		validator: val,
		renderer:  renderer,
		cache:     cache,
		events:    events,
		logger:    logger,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Create stores the upload, creates a job in the uploaded state, and
// starts the parse/analyze pipeline in the background
func (s *Service) Create(ctx context.Context, sourceName string, upload io.Reader) (*models.Job, error) {
	ext := strings.ToLower(filepath.Ext(sourceName))
	if !strings.EqualFold(ext, s.config.Jobs.AllowedExtension) || !s.reader.Supports(ext) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, ext)
	}

	if err := os.MkdirAll(s.config.Storage.Filesystem.Uploads, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	id := common.NewJobID()
	path := filepath.Join(s.config.Storage.Filesystem.Uploads, id+ext)
	if err := s.saveUpload(path, upload); err != nil {
		return nil, err
	}

	job := models.NewJob(id, sourceName, path)
	if err := s.storage.Save(ctx, job); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	s.publish(interfaces.EventJobCreated, job)
	s.logger.Info().
		Str("job_id", id).
		Str("source", sourceName).
		Msg("Job created")

	s.startBackground(job.ID, s.runPipeline)
	return job, nil
}

// saveUpload copies the upload to disk, enforcing the size limit
func (s *Service) saveUpload(path string, upload io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	maxSize := s.config.Jobs.MaxUploadSize
	written, err := io.Copy(f, io.LimitReader(upload, maxSize+1))
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to store upload: %w", err)
	}
	if written > maxSize {
		os.Remove(path)
		return fmt.Errorf("upload exceeds maximum size of %d bytes", maxSize)
	}
	return nil
}

// startBackground launches fn for the job with a fresh cancellable
// context registered in the cancel map
func (s *Service) startBackground(jobID string, fn func(ctx context.Context, jobID string)) {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.cancels[jobID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.cancels, jobID)
			s.mu.Unlock()
			cancel()
		}()
		fn(ctx, jobID)
	}()
}

// runPipeline moves a job from uploaded through parsed and analyzing to
// analyzed. Failures land the job in the error state; cancellation sets
// the message "cancelled".
func (s *Service) runPipeline(ctx context.Context, jobID string) {
	job, err := s.storage.Get(ctx, jobID)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("Pipeline could not load job")
		return
	}

	model, err := s.reader.Read(ctx, job.SourcePath)
	if err != nil {
		s.failJob(job, err)
		return
	}
	job.Model = model

	if err := s.advance(job, models.JobStatusParsed); err != nil {
		s.failJob(job, err)
		return
	}

	if err := s.advance(job, models.JobStatusAnalyzing); err != nil {
		s.failJob(job, err)
		return
	}

	issues, err := s.analysis.Analyze(ctx, model, func(done, total int) {
		job.SetProgress(models.AnalysisProgress(done, total))
		if saveErr := s.saveGuarded(job); saveErr != nil {
			s.logger.Warn().Err(saveErr).Str("job_id", job.ID).Msg("Failed to persist progress")
			return
		}
		s.publish(interfaces.EventJobProgress, job)
	})
	if err != nil {
		s.failJob(job, err)
		return
	}

	job.Report = s.validator.Validate(model, nil, issues...)

	if err := s.advance(job, models.JobStatusAnalyzed); err != nil {
		s.failJob(job, err)
		return
	}
	s.publish(interfaces.EventJobAnalyzed, job)

	s.logger.Info().
		Str("job_id", job.ID).
		Int("slides", len(model.Slides)).
		Int("score", job.Report.Score).
		Msg("Job analyzed, awaiting review")
}

// advance transitions the job and persists it
func (s *Service) advance(job *models.Job, target models.JobStatus) error {
	if err := job.Transition(target); err != nil {
		return err
	}
	if err := s.saveGuarded(job); err != nil {
		return err
	}
	s.publish(interfaces.EventJobProgress, job)
	return nil
}

// saveGuarded persists the job unless the stored record has already
// reached a terminal state. A goroutine holding a stale in-memory copy
// past its last context check must not clobber a cancellation that
// Cancel persisted in the meantime.
func (s *Service) saveGuarded(job *models.Job) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	stored, err := s.storage.Get(context.Background(), job.ID)
	if err == nil && stored.Status.IsTerminal() {
		return fmt.Errorf("%w: job already %s", models.ErrInvalidJobState, stored.Status)
	}
	if err := s.storage.Save(context.Background(), job); err != nil {
		return fmt.Errorf("failed to persist job: %w", err)
	}
	return nil
}

// failJob lands the job in the error state. Cancellation is reported
// with the message "cancelled"; render failures keep the renderer's
// reason verbatim.
func (s *Service) failJob(job *models.Job, cause error) {
	message := cause.Error()
	if errors.Is(cause, context.Canceled) {
		message = cancelledMessage
	}
	var renderErr *models.RenderError
	if errors.As(cause, &renderErr) {
		message = renderErr.Reason
	}

	if err := job.Fail(message); err != nil {
		// Already terminal, e.g. Cancel won the race.
		return
	}
	if err := s.saveGuarded(job); err != nil {
		if errors.Is(err, models.ErrInvalidJobState) {
			// The stored record reached a terminal state first.
			return
		}
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist job failure")
	}
	s.publish(interfaces.EventJobFailed, job)

	s.logger.Warn().
		Str("job_id", job.ID).
		Str("error", message).
		Msg("Job failed")
}

// Get returns a job by ID
func (s *Service) Get(ctx context.Context, id string) (*models.Job, error) {
	return s.storage.Get(ctx, id)
}

// List returns all jobs newest first
func (s *Service) List(ctx context.Context) ([]*models.Job, error) {
	return s.storage.List(ctx)
}

// Delete removes a job, its upload, and any rendered PDF
func (s *Service) Delete(ctx context.Context, id string) error {
	job, err := s.storage.Get(ctx, id)
	if err != nil {
		return err
	}

	s.cancelBackground(id)

	if err := s.storage.Delete(ctx, id); err != nil {
		return err
	}
	removeFile(job.SourcePath)
	removeFile(job.PDFPath)

	s.publish(interfaces.EventJobDeleted, job)
	s.logger.Info().Str("job_id", id).Msg("Job deleted")
	return nil
}

// EditElement applies a partial element update and re-validates the
// model. Only legal while the job is analyzed.
func (s *Service) EditElement(ctx context.Context, jobID, elementID string, edit interfaces.ElementEdit) (*models.Job, error) {
	job, err := s.storage.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.CanEdit() {
		return nil, fmt.Errorf("%w: edits require the analyzed state, job is %s", models.ErrInvalidJobState, job.Status)
	}

	slide, elem, err := job.Model.FindElement(elementID)
	if err != nil {
		return nil, err
	}

	if edit.AltText != nil {
		if err := elem.SetAltText(*edit.AltText, false); err != nil {
			return nil, err
		}
		s.storeHumanAltText(ctx, elem)
	}
	if edit.Decorative != nil {
		if err := elem.SetDecorative(*edit.Decorative); err != nil {
			return nil, err
		}
		s.storeHumanAltText(ctx, elem)
	}
	if edit.ReadingOrder != nil {
		if err := slide.MoveElement(elementID, *edit.ReadingOrder); err != nil {
			return nil, err
		}
	}
	if edit.HeadingLevel != nil {
		if err := elem.SetHeadingLevel(*edit.HeadingLevel); err != nil {
			return nil, err
		}
	}

	job.Report = s.validator.Validate(job.Model, nil)
	if err := s.storage.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist edit: %w", err)
	}

	s.logger.Info().
		Str("job_id", jobID).
		Str("element_id", elementID).
		Msg("Element edited")
	return job, nil
}

// storeHumanAltText writes a human edit back to the alt-text cache so
// the same image resolves without a vision call in later jobs
func (s *Service) storeHumanAltText(ctx context.Context, elem *models.SlideElement) {
	img := elem.Image
	if img == nil || img.Fingerprint == "" {
		return
	}

	now := time.Now()
	entry := &models.AlttextCacheEntry{
		Fingerprint: img.Fingerprint,
		AltText:     img.AltText,
		Decorative:  img.Decorative,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.cache.Put(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", img.Fingerprint).Msg("Failed to update alt-text cache")
	}
}

// EditSlideTitle sets a slide title and re-validates the model. Only
// legal while the job is analyzed.
func (s *Service) EditSlideTitle(ctx context.Context, jobID string, slideIndex int, title string) (*models.Job, error) {
	job, err := s.storage.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.CanEdit() {
		return nil, fmt.Errorf("%w: edits require the analyzed state, job is %s", models.ErrInvalidJobState, job.Status)
	}

	slide, err := job.Model.SlideByIndex(slideIndex)
	if err != nil {
		return nil, err
	}
	slide.Title = title

	job.Report = s.validator.Validate(job.Model, nil)
	if err := s.storage.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist edit: %w", err)
	}
	return job, nil
}

// Convert moves an analyzed job into converting and renders the PDF in
// the background
func (s *Service) Convert(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := s.storage.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if err := s.advance(job, models.JobStatusConverting); err != nil {
		return nil, err
	}

	s.startBackground(job.ID, s.runConversion)
	return job, nil
}

// runConversion renders the PDF, verifies it, and completes the job
func (s *Service) runConversion(ctx context.Context, jobID string) {
	job, err := s.storage.Get(ctx, jobID)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("Conversion could not load job")
		return
	}

	pdfBytes, meta, err := s.renderer.Render(ctx, job.Model)
	if err != nil {
		s.failJob(job, err)
		return
	}

	if err := os.MkdirAll(s.config.Storage.Filesystem.Output, 0755); err != nil {
		s.failJob(job, fmt.Errorf("failed to create output directory: %w", err))
		return
	}
	pdfPath := filepath.Join(s.config.Storage.Filesystem.Output, job.ID+".pdf")
	if err := os.WriteFile(pdfPath, pdfBytes, 0644); err != nil {
		s.failJob(job, fmt.Errorf("failed to write PDF: %w", err))
		return
	}

	job.PDFPath = pdfPath
	job.Render = meta
	// Final report: the model is re-validated against the renderer's
	// reported structure, so readiness reflects the actual output.
	job.Report = s.validator.Validate(job.Model, meta)
	// Image bytes are no longer needed once the PDF exists.
	job.Model.StripImageData()

	if err := s.advance(job, models.JobStatusComplete); err != nil {
		s.failJob(job, err)
		return
	}
	s.publish(interfaces.EventJobCompleted, job)

	s.logger.Info().
		Str("job_id", job.ID).
		Str("pdf_path", pdfPath).
		Int("pages", meta.PageCount).
		Msg("Conversion complete")
}

// Cancel aborts a non-terminal job
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	job, err := s.storage.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("%w: job is already %s", models.ErrInvalidJobState, job.Status)
	}

	s.cancelBackground(jobID)

	// The pipeline goroutine may have already recorded the failure.
	job, err = s.storage.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.Status.IsTerminal() {
		s.failJob(job, context.Canceled)
	}

	s.logger.Info().Str("job_id", jobID).Msg("Job cancelled")
	return nil
}

// cancelBackground cancels the job's background goroutine if one is running
func (s *Service) cancelBackground(jobID string) {
	s.mu.Lock()
	cancel, ok := s.cancels[jobID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// PDFPath returns the rendered PDF location for a complete job
func (s *Service) PDFPath(ctx context.Context, jobID string) (string, error) {
	job, err := s.storage.Get(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.Status != models.JobStatusComplete || job.PDFPath == "" {
		return "", fmt.Errorf("%w: PDF is available once the job is complete, job is %s", models.ErrInvalidJobState, job.Status)
	}
	return job.PDFPath, nil
}

// Stop cancels all in-flight pipelines and waits for them to finish
func (s *Service) Stop() {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("Job service stopped")
}

func (s *Service) publish(eventType interfaces.EventType, job *models.Job) {
	if s.events == nil {
		return
	}
	event := interfaces.Event{
		Type:  eventType,
		JobID: job.ID,
		Payload: map[string]interface{}{
			"status":   string(job.Status),
			"progress": job.Progress,
			"error":    job.Error,
		},
	}
	if err := s.events.Publish(context.Background(), event); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to publish event")
	}
}

func removeFile(path string) {
	if path != "" {
		os.Remove(path)
	}
}
