package model

import (
	"time"
)

// RunStatus represents the status of a pipeline run
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusDone       RunStatus = "done"
	RunStatusFailed     RunStatus = "failed"
)

// Run records one pipeline execution from audio submission to its terminal
// outcome. Rows are written for observability only; the pipeline never reads
// them back.
type Run struct {
	ID              string    `json:"id" db:"id"`
	Status          RunStatus `json:"status" db:"status"`
	AudioKey        *string   `json:"audio_key,omitempty" db:"audio_key"`
	JobName         *string   `json:"job_name,omitempty" db:"job_name"`
	ProjectName     *string   `json:"project_name,omitempty" db:"project_name"`
	ArtifactPath    *string   `json:"artifact_path,omitempty" db:"artifact_path"`
	TranscriptChars int       `json:"transcript_chars" db:"transcript_chars"`
	ErrorKind       *string   `json:"error_kind,omitempty" db:"error_kind"`
	ErrorText       *string   `json:"error_text,omitempty" db:"error_text"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// NewRun creates a queued run record
func NewRun(id string) *Run {
	now := time.Now()
	return &Run{
		ID:        id,
		Status:    RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsTerminal returns true if the run reached a final state
func (r *Run) IsTerminal() bool {
	return r.Status == RunStatusDone || r.Status == RunStatusFailed
}

// SetInProgress marks the run active and records the transcription job name
func (r *Run) SetInProgress(jobName string) {
	r.Status = RunStatusInProgress
	if jobName != "" {
		r.JobName = &jobName
	}
	r.UpdatedAt = time.Now()
}

// SetCompleted marks the run done with its produced artifact
func (r *Run) SetCompleted(projectName, artifactPath string) {
	r.Status = RunStatusDone
	r.ProjectName = &projectName
	r.ArtifactPath = &artifactPath
	r.ErrorKind = nil
	r.ErrorText = nil
	r.UpdatedAt = time.Now()
}

// SetError marks the run failed with the classified failure
func (r *Run) SetError(kind, errorText string) {
	r.Status = RunStatusFailed
	r.ErrorKind = &kind
	r.ErrorText = &errorText
	r.UpdatedAt = time.Now()
}
