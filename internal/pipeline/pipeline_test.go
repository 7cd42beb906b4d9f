package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"voicespec/internal/project"
	"voicespec/internal/specgen"
	"voicespec/internal/storage"
	"voicespec/internal/transcribe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUploader struct {
	err      error
	uploaded []byte
}

func (u *stubUploader) Upload(ctx context.Context, data []byte, bucket, key string) (storage.Location, error) {
	if u.err != nil {
		return storage.Location{}, u.err
	}
	u.uploaded = data
	return storage.Location{Bucket: bucket, Key: key}, nil
}

type stubSubmitter struct {
	err     error
	jobName string
}

func (s *stubSubmitter) Submit(ctx context.Context, sub transcribe.Submission) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.jobName = sub.JobName
	return sub.JobName, nil
}

type stubPoller struct {
	terminal  transcribe.JobStatus
	err       error
	snapshots []transcribe.Snapshot
}

func (p *stubPoller) Poll(ctx context.Context, jobName string, onProgress transcribe.ProgressFunc) (transcribe.JobStatus, error) {
	if p.err != nil {
		return transcribe.JobStatus{}, p.err
	}
	for _, snap := range p.snapshots {
		if onProgress != nil {
			onProgress(snap)
		}
	}
	status := p.terminal
	status.JobName = jobName
	return status, nil
}

type stubFetcher struct {
	transcript string
	err        error
}

func (f *stubFetcher) Fetch(ctx context.Context, jobName string) (string, error) {
	return f.transcript, f.err
}

type stubObserver struct {
	states    []State
	snapshots []transcribe.Snapshot
}

func (o *stubObserver) OnTransition(status Status) { o.states = append(o.states, status.State) }
func (o *stubObserver) OnProgress(snapshot transcribe.Snapshot) {
	o.snapshots = append(o.snapshots, snapshot)
}

type fixedCompleter struct{ response string }

func (c *fixedCompleter) Complete(ctx context.Context, modelID, prompt string, maxTokens int32, temperature float32) (string, error) {
	return c.response, nil
}

func newTestDeps(t *testing.T, root string) Deps {
	t.Helper()
	return Deps{
		Uploader:  &stubUploader{},
		Submitter: &stubSubmitter{},
		Poller: &stubPoller{
			terminal: transcribe.JobStatus{State: transcribe.JobCompleted},
			snapshots: []transcribe.Snapshot{
				{State: transcribe.JobInProgress, PollCount: 1, Progress: 0.03},
				{State: transcribe.JobCompleted, PollCount: 2, Progress: 1.0},
			},
		},
		Fetcher: &stubFetcher{transcript: "I need a todo app with reminders"},
		Generator: specgen.NewGenerator(&fixedCompleter{
			response: `{"project_name": "todo-app", "specification_content": "# Requirements\n\n- REQ-001"}`,
		}, "test-model", specgen.Options{}),
		Persister: project.NewPersister(root),
		Bucket:    "voice-recordings",
	}
}

func TestRunEndToEnd(t *testing.T) {
	root := t.TempDir()
	deps := newTestDeps(t, root)
	observer := &stubObserver{}
	deps.Observer = observer

	p, err := New(deps)
	require.NoError(t, err)

	result, err := p.Run(context.Background(), []byte("audio bytes"))
	require.NoError(t, err)
	assert.Equal(t, "todo-app", result.ProjectName)
	assert.Equal(t, "I need a todo app with reminders", result.Transcript)

	data, err := os.ReadFile(filepath.Join(root, "todo-app", project.ArtifactName))
	require.NoError(t, err)
	assert.Equal(t, "# Requirements\n\n- REQ-001", string(data))
	assert.Equal(t, result.ArtifactPath, filepath.Join(root, "todo-app", project.ArtifactName))

	status := p.Status()
	assert.Equal(t, StateComplete, status.State)
	assert.Equal(t, "todo-app", status.ProjectName)
	assert.Nil(t, status.Diagnostic)

	assert.Equal(t, StateUploading, observer.states[0])
	assert.Equal(t, StateTranscribing, observer.states[1])
	assert.Equal(t, StateComplete, observer.states[len(observer.states)-1])
	assert.Contains(t, observer.states, StateGenerating)

	require.Len(t, observer.snapshots, 2)
	assert.Equal(t, 1.0, observer.snapshots[1].Progress)
}

func TestRunRequiresIdle(t *testing.T) {
	deps := newTestDeps(t, t.TempDir())
	p, err := New(deps)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), []byte("audio"))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), []byte("audio"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires idle state")

	require.NoError(t, p.Reset())
	_, err = p.Run(context.Background(), []byte("audio"))
	assert.NoError(t, err)
}

func TestRunFailedJobIsTerminalError(t *testing.T) {
	deps := newTestDeps(t, t.TempDir())
	deps.Poller = &stubPoller{
		terminal: transcribe.JobStatus{
			State:         transcribe.JobFailed,
			FailureReason: "Unsupported audio codec",
		},
	}
	p, err := New(deps)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), []byte("audio"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported audio codec")

	status := p.Status()
	assert.Equal(t, StateError, status.State)
	require.NotNil(t, status.Diagnostic)
	assert.Contains(t, status.Diagnostic.Message, "Unsupported audio codec")
}

func TestRunFailureCapturesKindAndTrace(t *testing.T) {
	deps := newTestDeps(t, t.TempDir())
	deps.Uploader = &stubUploader{err: &storage.Error{
		Kind:    storage.KindBucketNotFound,
		Op:      "upload",
		Message: "bucket does not exist: voice-recordings",
	}}
	p, err := New(deps)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), []byte("audio"))
	require.Error(t, err)

	status := p.Status()
	assert.Equal(t, StateError, status.State)
	require.NotNil(t, status.Diagnostic)
	assert.Equal(t, string(storage.KindBucketNotFound), status.Diagnostic.Kind)
	assert.NotEmpty(t, status.Diagnostic.Trace)
	assert.Contains(t, status.Diagnostic.Trace[0], "voice-recordings")
}

func TestResetSemantics(t *testing.T) {
	deps := newTestDeps(t, t.TempDir())
	p, err := New(deps)
	require.NoError(t, err)

	// Idle reset is a no-op.
	require.NoError(t, p.Reset())
	require.NoError(t, p.Reset())

	deps2 := newTestDeps(t, t.TempDir())
	deps2.Fetcher = &stubFetcher{err: &transcribe.Error{
		Kind: transcribe.KindResultNotFound,
		Op:   "fetch",
	}}
	p2, err := New(deps2)
	require.NoError(t, err)

	_, err = p2.Run(context.Background(), []byte("audio"))
	require.Error(t, err)
	assert.Equal(t, StateError, p2.Status().State)

	require.NoError(t, p2.Reset())
	assert.Equal(t, StateIdle, p2.Status().State)
	assert.Nil(t, p2.Status().Diagnostic)
}

func TestNewValidatesDeps(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)

	deps := newTestDeps(t, t.TempDir())
	deps.Bucket = ""
	_, err = New(deps)
	require.Error(t, err)
}
