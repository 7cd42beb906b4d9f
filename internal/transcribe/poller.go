package transcribe

import (
	"context"
	"fmt"
	"time"

	"voicespec/pkg/logger"

	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultPollTimeout  = 30 * time.Minute

	// The progress estimate assumes a typical job finishes in about five
	// minutes and never reports done before the provider does.
	progressFullScale = 300 * time.Second
	progressCeiling   = 0.9
)

// Poller blocks the calling goroutine, querying job status at a fixed
// interval until the job reaches a terminal state or the hard timeout
// expires. The wait between polls is cooperative and honors ctx.
type Poller struct {
	provider Provider
	interval time.Duration
	timeout  time.Duration

	// Injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller creates a poller. Non-positive interval or timeout fall back to
// the defaults.
func NewPoller(provider Provider, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	return &Poller{
		provider: provider,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Poll drives a job to a terminal observation. Every iteration emits one
// Snapshot to onProgress; the completion tick carries progress 1.0. A FAILED
// job is returned as a normal result so callers can distinguish a broken
// polling mechanism from a job that legitimately failed. Timeout is measured
// from the first poll and reported as KindJobTimeout.
func (p *Poller) Poll(ctx context.Context, jobName string, onProgress ProgressFunc) (JobStatus, error) {
	start := p.now()
	pollCount := 0

	for {
		elapsed := p.now().Sub(start)
		if elapsed > p.timeout {
			return JobStatus{}, &Error{
				Kind:    KindJobTimeout,
				Op:      "poll",
				Message: fmt.Sprintf("job did not finish within %s", p.timeout),
				JobName: jobName,
				Elapsed: elapsed,
			}
		}

		status, err := p.provider.Status(ctx, jobName)
		if err != nil {
			return JobStatus{}, err
		}

		pollCount++
		elapsed = p.now().Sub(start)

		snapshot := Snapshot{
			State:     status.State,
			Elapsed:   elapsed,
			PollCount: pollCount,
			Progress:  estimateProgress(elapsed),
		}

		switch status.State {
		case JobQueued, JobInProgress:
			emit(onProgress, snapshot)

			logger.Debug("Transcription in progress",
				zap.String("job_name", jobName),
				zap.String("state", string(status.State)),
				zap.Duration("elapsed", elapsed),
				zap.Int("poll_count", pollCount))

			if err := p.sleep(ctx, p.interval); err != nil {
				return JobStatus{}, err
			}

		case JobCompleted:
			snapshot.Progress = 1.0
			emit(onProgress, snapshot)

			logger.Info("Transcription completed",
				zap.String("job_name", jobName),
				zap.Duration("elapsed", elapsed),
				zap.Int("poll_count", pollCount))

			return status, nil

		case JobFailed:
			emit(onProgress, snapshot)

			if status.FailureReason == "" {
				status.FailureReason = "Unknown failure reason"
			}

			logger.Warn("Transcription job failed",
				zap.String("job_name", jobName),
				zap.String("reason", status.FailureReason))

			return status, nil

		default:
			emit(onProgress, snapshot)

			status.FailureReason = fmt.Sprintf("Unknown job status: %s", status.State)

			logger.Warn("Transcription job in unknown state",
				zap.String("job_name", jobName),
				zap.String("state", string(status.State)))

			return status, nil
		}
	}
}

// estimateProgress maps elapsed time to a monotonically non-decreasing
// fraction, capped below 1.0 until terminal completion.
func estimateProgress(elapsed time.Duration) float64 {
	progress := elapsed.Seconds() / progressFullScale.Seconds()
	if progress > progressCeiling {
		return progressCeiling
	}
	return progress
}

func emit(onProgress ProgressFunc, snapshot Snapshot) {
	if onProgress != nil {
		onProgress(snapshot)
	}
}

// sleepContext waits for d without busy-looping, aborting early when ctx is
// cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
