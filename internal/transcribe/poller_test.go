package transcribe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns a fixed sequence of observations, repeating the
// last one when exhausted.
type scriptedProvider struct {
	statuses []JobStatus
	err      error
	calls    int
}

func (p *scriptedProvider) Submit(ctx context.Context, sub Submission) (string, error) {
	return sub.JobName, nil
}

func (p *scriptedProvider) Status(ctx context.Context, jobName string) (JobStatus, error) {
	if p.err != nil {
		return JobStatus{}, p.err
	}
	idx := p.calls
	if idx >= len(p.statuses) {
		idx = len(p.statuses) - 1
	}
	p.calls++
	return p.statuses[idx], nil
}

// newTestPoller wires a fake clock: sleeping advances simulated time instead
// of blocking.
func newTestPoller(provider Provider, interval, timeout time.Duration) (*Poller, *time.Time) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	clock := &now

	p := NewPoller(provider, interval, timeout)
	p.now = func() time.Time { return *clock }
	p.sleep = func(ctx context.Context, d time.Duration) error {
		*clock = clock.Add(d)
		return nil
	}
	return p, clock
}

func TestPoll_CompletesAfterInProgress(t *testing.T) {
	provider := &scriptedProvider{statuses: []JobStatus{
		{JobName: "job-1", State: JobInProgress},
		{JobName: "job-1", State: JobInProgress},
		{JobName: "job-1", State: JobCompleted, TranscriptURI: "s3://my-bucket/job-1.json"},
	}}
	poller, _ := newTestPoller(provider, 10*time.Second, 30*time.Minute)

	var snapshots []Snapshot
	status, err := poller.Poll(context.Background(), "job-1", func(s Snapshot) {
		snapshots = append(snapshots, s)
	})

	require.NoError(t, err)
	assert.Equal(t, JobCompleted, status.State)
	assert.Equal(t, "s3://my-bucket/job-1.json", status.TranscriptURI)

	require.Len(t, snapshots, 3)
	assert.Equal(t, 3, snapshots[2].PollCount)
	for i := 1; i < len(snapshots); i++ {
		assert.GreaterOrEqual(t, snapshots[i].Progress, snapshots[i-1].Progress)
	}
	assert.Equal(t, 1.0, snapshots[2].Progress)
}

func TestPoll_ProgressCappedBelowOneUntilComplete(t *testing.T) {
	statuses := make([]JobStatus, 0, 40)
	for i := 0; i < 39; i++ {
		statuses = append(statuses, JobStatus{JobName: "job-1", State: JobInProgress})
	}
	statuses = append(statuses, JobStatus{JobName: "job-1", State: JobCompleted})

	poller, _ := newTestPoller(&scriptedProvider{statuses: statuses}, 10*time.Second, 30*time.Minute)

	var snapshots []Snapshot
	_, err := poller.Poll(context.Background(), "job-1", func(s Snapshot) {
		snapshots = append(snapshots, s)
	})
	require.NoError(t, err)

	for _, s := range snapshots[:len(snapshots)-1] {
		assert.LessOrEqual(t, s.Progress, 0.9)
	}
	assert.Equal(t, 1.0, snapshots[len(snapshots)-1].Progress)
}

func TestPoll_TimesOutWithoutExtraIterations(t *testing.T) {
	provider := &scriptedProvider{statuses: []JobStatus{
		{JobName: "job-1", State: JobInProgress},
	}}
	poller, _ := newTestPoller(provider, 10*time.Second, 1800*time.Second)

	_, err := poller.Poll(context.Background(), "job-1", nil)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindJobTimeout))

	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "job-1", terr.JobName)
	assert.Greater(t, terr.Elapsed, 1800*time.Second)

	// 181 polls land at 1810s elapsed; the timeout check runs before the
	// next query, so no further provider calls happen after detection.
	assert.Equal(t, 181, provider.calls)
}

func TestPoll_FailedJobIsResultNotError(t *testing.T) {
	provider := &scriptedProvider{statuses: []JobStatus{
		{JobName: "job-1", State: JobFailed, FailureReason: "unsupported sample rate"},
	}}
	poller, _ := newTestPoller(provider, 10*time.Second, 30*time.Minute)

	status, err := poller.Poll(context.Background(), "job-1", nil)

	require.NoError(t, err)
	assert.Equal(t, JobFailed, status.State)
	assert.Equal(t, "unsupported sample rate", status.FailureReason)
}

func TestPoll_FailedJobWithoutReasonGetsPlaceholder(t *testing.T) {
	provider := &scriptedProvider{statuses: []JobStatus{
		{JobName: "job-1", State: JobFailed},
	}}
	poller, _ := newTestPoller(provider, 10*time.Second, 30*time.Minute)

	status, err := poller.Poll(context.Background(), "job-1", nil)

	require.NoError(t, err)
	assert.Equal(t, "Unknown failure reason", status.FailureReason)
}

func TestPoll_UnknownStatusIsTerminal(t *testing.T) {
	provider := &scriptedProvider{statuses: []JobStatus{
		{JobName: "job-1", State: JobState("SUSPENDED")},
	}}
	poller, _ := newTestPoller(provider, 10*time.Second, 30*time.Minute)

	status, err := poller.Poll(context.Background(), "job-1", nil)

	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, "Unknown job status: SUSPENDED", status.FailureReason)
}

func TestPoll_ProviderErrorBubbles(t *testing.T) {
	providerErr := &Error{Kind: KindAccessDenied, Op: "status", Message: "access denied"}
	poller, _ := newTestPoller(&scriptedProvider{err: providerErr}, 10*time.Second, 30*time.Minute)

	_, err := poller.Poll(context.Background(), "job-1", nil)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindAccessDenied))
}

func TestPoll_ContextCancelAbortsSleep(t *testing.T) {
	provider := &scriptedProvider{statuses: []JobStatus{
		{JobName: "job-1", State: JobInProgress},
	}}
	poller := NewPoller(provider, time.Hour, 30*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := poller.Poll(ctx, "job-1", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimateProgress(t *testing.T) {
	assert.InDelta(t, 0.0, estimateProgress(0), 0.001)
	assert.InDelta(t, 0.1, estimateProgress(30*time.Second), 0.001)
	assert.InDelta(t, 0.9, estimateProgress(270*time.Second), 0.001)
	assert.InDelta(t, 0.9, estimateProgress(2*time.Hour), 0.001)
}

func TestSleepContext_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sleepContext(ctx, time.Hour)

	assert.True(t, errors.Is(err, context.Canceled))
}
