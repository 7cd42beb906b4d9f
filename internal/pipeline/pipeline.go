package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"voicespec/internal/identity"
	"voicespec/internal/specgen"
	"voicespec/internal/storage"
	"voicespec/internal/transcribe"
	"voicespec/pkg/logger"

	"go.uber.org/zap"
)

// State is the orchestrator's position in the run lifecycle.
type State string

const (
	StateIdle         State = "idle"
	StateUploading    State = "uploading"
	StateTranscribing State = "transcribing"
	StateGenerating   State = "generating"
	StateComplete     State = "complete"
	StateError        State = "error"
)

// Diagnostic captures a stage failure: machine-readable kind, human-readable
// message, and the causal chain down to the original provider error.
type Diagnostic struct {
	Kind    string
	Message string
	Trace   []string
}

// Status is an immutable snapshot of one run. Every transition replaces the
// whole value; callers never observe a partially updated status.
type Status struct {
	State       State
	Filename    string
	JobName     string
	ProjectName string
	Progress    float64
	Diagnostic  *Diagnostic
}

// Result is returned by a successful run.
type Result struct {
	ProjectName  string
	ArtifactPath string
	Transcript   string
}

// Observer receives state transitions and poll-time progress updates.
// Callbacks run synchronously on the pipeline's goroutine.
type Observer interface {
	OnTransition(status Status)
	OnProgress(snapshot transcribe.Snapshot)
}

// Uploader stores the recorded audio.
type Uploader interface {
	Upload(ctx context.Context, data []byte, bucket, key string) (storage.Location, error)
}

// Submitter registers an asynchronous transcription job.
type Submitter interface {
	Submit(ctx context.Context, sub transcribe.Submission) (string, error)
}

// StatusPoller blocks until the job reaches a terminal state.
type StatusPoller interface {
	Poll(ctx context.Context, jobName string, onProgress transcribe.ProgressFunc) (transcribe.JobStatus, error)
}

// TranscriptFetcher retrieves the transcript text of a completed job.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, jobName string) (string, error)
}

// SpecGenerator turns a transcript into a requirements document.
type SpecGenerator interface {
	Generate(ctx context.Context, transcript string) (specgen.Spec, error)
}

// ProjectPersister writes the document to the projects directory.
type ProjectPersister interface {
	Persist(projectName, content string) (string, error)
}

// DocumentMirror optionally copies the persisted document back to object
// storage. Mirror failures never fail the run.
type DocumentMirror interface {
	UploadDocument(ctx context.Context, bucket, projectName, content string) (storage.Location, error)
}

// Deps wires the pipeline's stage components. Mirror and Observer are
// optional; everything else is required.
type Deps struct {
	Uploader  Uploader
	Submitter Submitter
	Poller    StatusPoller
	Fetcher   TranscriptFetcher
	Generator SpecGenerator
	Persister ProjectPersister
	Mirror    DocumentMirror
	Observer  Observer
	Bucket    string
}

// Pipeline drives one audio recording through upload, transcription, spec
// generation and persistence. One instance serves one run at a time; create
// a fresh instance per concurrent run.
type Pipeline struct {
	deps Deps

	mu     sync.RWMutex
	status Status
}

func New(deps Deps) (*Pipeline, error) {
	if deps.Bucket == "" {
		return nil, errors.New("pipeline: bucket is required")
	}
	if deps.Uploader == nil || deps.Submitter == nil || deps.Poller == nil ||
		deps.Fetcher == nil || deps.Generator == nil || deps.Persister == nil {
		return nil, errors.New("pipeline: all stage components are required")
	}
	return &Pipeline{
		deps:   deps,
		status: Status{State: StateIdle},
	}, nil
}

// Status returns the current run snapshot.
func (p *Pipeline) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Reset returns a terminal pipeline to idle, discarding all run state. Reset
// on an already idle pipeline is a no-op; resetting a run in flight is an
// error.
func (p *Pipeline) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.status.State {
	case StateIdle:
		return nil
	case StateComplete, StateError:
		p.status = Status{State: StateIdle}
		return nil
	default:
		return fmt.Errorf("pipeline: cannot reset while %s", p.status.State)
	}
}

// Run executes the full pipeline over the given audio bytes. The pipeline
// must be idle; progress and transitions are reported to the observer as
// they happen.
func (p *Pipeline) Run(ctx context.Context, audio []byte) (Result, error) {
	p.mu.Lock()
	if p.status.State != StateIdle {
		state := p.status.State
		p.mu.Unlock()
		return Result{}, fmt.Errorf("pipeline: run requires idle state, currently %s", state)
	}
	filename := identity.Filename()
	p.mu.Unlock()

	p.transition(Status{State: StateUploading, Filename: filename})

	location, err := p.deps.Uploader.Upload(ctx, audio, p.deps.Bucket, filename)
	if err != nil {
		return Result{}, p.fail("audio upload failed", err)
	}
	logger.Info("Audio uploaded", zap.String("uri", location.URI()))

	jobName := identity.JobName(filename)
	p.transition(Status{State: StateTranscribing, Filename: filename, JobName: jobName})

	if _, err := p.deps.Submitter.Submit(ctx, transcribe.Submission{
		SourceURI: location.URI(),
		JobName:   jobName,
	}); err != nil {
		return Result{}, p.fail("transcription job submission failed", err)
	}

	terminal, err := p.deps.Poller.Poll(ctx, jobName, p.onProgress)
	if err != nil {
		return Result{}, p.fail("transcription polling failed", err)
	}
	if terminal.State != transcribe.JobCompleted {
		reason := terminal.FailureReason
		if reason == "" {
			reason = "no reason reported"
		}
		return Result{}, p.fail("transcription failed: "+reason, nil)
	}

	transcript, err := p.deps.Fetcher.Fetch(ctx, jobName)
	if err != nil {
		return Result{}, p.fail("transcript retrieval failed", err)
	}

	p.transition(Status{State: StateGenerating, Filename: filename, JobName: jobName, Progress: 1.0})

	spec, err := p.deps.Generator.Generate(ctx, transcript)
	if err != nil {
		return Result{}, p.fail("specification generation failed", err)
	}

	artifactPath, err := p.deps.Persister.Persist(spec.ProjectName, spec.Content)
	if err != nil {
		return Result{}, p.fail("document persistence failed", err)
	}

	if p.deps.Mirror != nil {
		if _, err := p.deps.Mirror.UploadDocument(ctx, p.deps.Bucket, spec.ProjectName, spec.Content); err != nil {
			logger.Warn("Document mirror upload failed",
				zap.String("project_name", spec.ProjectName),
				zap.Error(err))
		}
	}

	p.transition(Status{
		State:       StateComplete,
		Filename:    filename,
		JobName:     jobName,
		ProjectName: spec.ProjectName,
		Progress:    1.0,
	})

	logger.Info("Pipeline complete",
		zap.String("project_name", spec.ProjectName),
		zap.String("artifact_path", artifactPath))

	return Result{
		ProjectName:  spec.ProjectName,
		ArtifactPath: artifactPath,
		Transcript:   transcript,
	}, nil
}

func (p *Pipeline) transition(status Status) {
	p.mu.Lock()
	p.status = status
	p.mu.Unlock()

	if p.deps.Observer != nil {
		p.deps.Observer.OnTransition(status)
	}
}

func (p *Pipeline) onProgress(snapshot transcribe.Snapshot) {
	p.mu.Lock()
	p.status.Progress = snapshot.Progress
	status := p.status
	p.mu.Unlock()

	if p.deps.Observer != nil {
		p.deps.Observer.OnProgress(snapshot)
		p.deps.Observer.OnTransition(status)
	}
}

// fail records a diagnostic and moves the pipeline to the error state. The
// stage error (when present) is classified and its causal chain captured.
func (p *Pipeline) fail(message string, err error) error {
	diag := &Diagnostic{Kind: "pipeline_failure", Message: message}
	if err != nil {
		diag.Message = message + ": " + err.Error()
		diag.Trace = causalTrace(err)
		var k interface{ ErrorKind() string }
		if errors.As(err, &k) {
			diag.Kind = k.ErrorKind()
		}
	}

	p.mu.Lock()
	prev := p.status
	p.status = Status{
		State:      StateError,
		Filename:   prev.Filename,
		JobName:    prev.JobName,
		Diagnostic: diag,
	}
	status := p.status
	p.mu.Unlock()

	logger.Error("Pipeline failed",
		zap.String("kind", diag.Kind),
		zap.String("message", diag.Message))

	if p.deps.Observer != nil {
		p.deps.Observer.OnTransition(status)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", message, err)
	}
	return errors.New(diag.Message)
}

// causalTrace walks the wrap chain outermost-first.
func causalTrace(err error) []string {
	var trace []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		trace = append(trace, e.Error())
	}
	return trace
}
