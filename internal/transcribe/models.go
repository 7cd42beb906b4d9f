package transcribe

import (
	"context"
	"time"
)

// JobState mirrors the provider's transcription job lifecycle.
type JobState string

const (
	JobQueued     JobState = "QUEUED"
	JobInProgress JobState = "IN_PROGRESS"
	JobCompleted  JobState = "COMPLETED"
	JobFailed     JobState = "FAILED"
)

// IsTerminal reports whether the state admits no further provider-driven
// transition. Anything outside the known lifecycle is treated as terminal.
func (s JobState) IsTerminal() bool {
	return s != JobQueued && s != JobInProgress
}

// Submission describes an asynchronous transcription job to register.
type Submission struct {
	SourceURI string
	JobName   string
}

// JobStatus is one observation of a provider-tracked job. The poller
// attaches TranscriptURI on completion and FailureReason on failure; neither
// is ever written back to the provider.
type JobStatus struct {
	JobName       string
	State         JobState
	TranscriptURI string
	FailureReason string
}

// Snapshot is the progress value emitted on every poll tick. Progress is a
// time-based estimate capped at 0.9 until the job actually completes.
type Snapshot struct {
	State     JobState      `json:"state"`
	Elapsed   time.Duration `json:"elapsed"`
	PollCount int           `json:"poll_count"`
	Progress  float64       `json:"progress"`
}

// ProgressFunc consumes progress snapshots during polling.
type ProgressFunc func(Snapshot)

// Provider is the transcription backend consumed by the client, poller and
// fetcher.
type Provider interface {
	Submit(ctx context.Context, sub Submission) (string, error)
	Status(ctx context.Context, jobName string) (JobStatus, error)
}
