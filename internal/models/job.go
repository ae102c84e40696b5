package models

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a conversion job
type JobStatus string

const (
	JobStatusUploaded   JobStatus = "uploaded"
	JobStatusParsed     JobStatus = "parsed"
	JobStatusAnalyzing  JobStatus = "analyzing"
	JobStatusAnalyzed   JobStatus = "analyzed"
	JobStatusConverting JobStatus = "converting"
	JobStatusComplete   JobStatus = "complete"
	JobStatusError      JobStatus = "error"
)

// Progress checkpoints per stage. Progress is monotonic: it never
// decreases over the life of a job.
const (
	ProgressUploaded       = 10
	ProgressParsed         = 30
	ProgressAnalyzingStart = 35
	ProgressAnalyzingEnd   = 75
	ProgressAnalyzed       = 80
	ProgressConverting     = 85
	ProgressComplete       = 100
)

// validTransitions maps each state to the states it may move to.
// JobStatusError is additionally reachable from every non-terminal state.
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusUploaded:   {JobStatusParsed},
	JobStatusParsed:     {JobStatusAnalyzing},
	JobStatusAnalyzing:  {JobStatusAnalyzed},
	JobStatusAnalyzed:   {JobStatusConverting},
	JobStatusConverting: {JobStatusComplete},
	JobStatusComplete:   {},
	JobStatusError:      {},
}

// IsTerminal reports whether the status admits no further transitions
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusComplete || s == JobStatusError
}

// CanTransitionTo reports whether a move from s to target is legal
func (s JobStatus) CanTransitionTo(target JobStatus) bool {
	if target == JobStatusError {
		return !s.IsTerminal()
	}
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Job is a single presentation conversion tracked through the pipeline
type Job struct {
	ID         string    `json:"id" badgerhold:"key"`
	Status     JobStatus `json:"status" badgerhold:"index"`
	Progress   int       `json:"progress" validate:"gte=0,lte=100"`
	SourceName string    `json:"source_name"`
	SourcePath string    `json:"source_path,omitempty"`
	PDFPath    string    `json:"pdf_path,omitempty"`
	Error      string    `json:"error,omitempty"`

	Model  *PresentationModel   `json:"model,omitempty"`
	Report *AccessibilityReport `json:"report,omitempty"`
	Render *RenderMetadata      `json:"render,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a job in the uploaded state
func NewJob(id, sourceName, sourcePath string) *Job {
	now := time.Now()
	return &Job{
		ID:         id,
		Status:     JobStatusUploaded,
		Progress:   ProgressUploaded,
		SourceName: sourceName,
		SourcePath: sourcePath,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Transition moves the job to the target status, enforcing the state
// machine. Terminal states are stamped with CompletedAt.
func (j *Job) Transition(target JobStatus) error {
	if !j.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidJobState, j.Status, target)
	}
	j.Status = target
	j.UpdatedAt = time.Now()
	if target.IsTerminal() {
		j.CompletedAt = j.UpdatedAt
	}
	return nil
}

// Fail moves the job to the error state with the given message.
// The message is stored verbatim.
func (j *Job) Fail(message string) error {
	if err := j.Transition(JobStatusError); err != nil {
		return err
	}
	j.Error = message
	return nil
}

// SetProgress raises the job's progress. Values below the current
// progress are ignored to keep reporting monotonic.
func (j *Job) SetProgress(progress int) {
	if progress > 100 {
		progress = 100
	}
	if progress > j.Progress {
		j.Progress = progress
		j.UpdatedAt = time.Now()
	}
}

// CanEdit reports whether human edits are accepted in the current state
func (j *Job) CanEdit() bool {
	return j.Status == JobStatusAnalyzed
}

// AnalysisProgress maps per-slide completion onto the analyzing
// progress window. done==total lands exactly on the window's end.
func AnalysisProgress(done, total int) int {
	if total <= 0 {
		return ProgressAnalyzingEnd
	}
	if done > total {
		done = total
	}
	span := ProgressAnalyzingEnd - ProgressAnalyzingStart
	return ProgressAnalyzingStart + span*done/total
}
