package transcribe

import (
	"context"
	"strings"

	"voicespec/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	transcribetypes "github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"go.uber.org/zap"
)

// Client submits and observes asynchronous transcription jobs against the
// AWS Transcribe service. It satisfies Provider.
type Client struct {
	api          *transcribe.Client
	languageCode string
	mediaFormat  string
}

// NewClient wraps a Transcribe SDK client with a fixed language and audio
// format applied to every submission.
func NewClient(api *transcribe.Client, languageCode, mediaFormat string) *Client {
	return &Client{
		api:          api,
		languageCode: languageCode,
		mediaFormat:  mediaFormat,
	}
}

// parseSourceURI validates the s3://bucket/key locator grammar and returns
// its parts.
func parseSourceURI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// Submit registers an asynchronous job for the stored audio object. The
// derived transcript is written back to the source bucket. Returns the
// provider-confirmed job name. Failures are not retried at this layer.
func (c *Client) Submit(ctx context.Context, sub Submission) (string, error) {
	bucket, _, ok := parseSourceURI(sub.SourceURI)
	if !ok {
		return "", &Error{Kind: KindInvalidArgument, Op: "submit", Message: "source URI must match s3://bucket/key"}
	}
	if sub.JobName == "" {
		return "", &Error{Kind: KindInvalidArgument, Op: "submit", Message: "job name cannot be empty"}
	}

	logger.Debug("Starting transcription job",
		zap.String("job_name", sub.JobName),
		zap.String("source_uri", sub.SourceURI))

	out, err := c.api.StartTranscriptionJob(ctx, &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(sub.JobName),
		LanguageCode:         transcribetypes.LanguageCode(c.languageCode),
		MediaFormat:          transcribetypes.MediaFormat(c.mediaFormat),
		Media: &transcribetypes.Media{
			MediaFileUri: aws.String(sub.SourceURI),
		},
		OutputBucketName: aws.String(bucket),
	})
	if err != nil {
		return "", classifySubmit("submit", sub.JobName, err)
	}

	confirmed := sub.JobName
	if out.TranscriptionJob != nil && out.TranscriptionJob.TranscriptionJobName != nil {
		confirmed = *out.TranscriptionJob.TranscriptionJobName
	}

	logger.Info("Transcription job started", zap.String("job_name", confirmed))

	return confirmed, nil
}

// Status queries the current state of a job. FAILED is reported as a normal
// observation, not an error.
func (c *Client) Status(ctx context.Context, jobName string) (JobStatus, error) {
	if jobName == "" {
		return JobStatus{}, &Error{Kind: KindInvalidArgument, Op: "status", Message: "job name cannot be empty"}
	}

	out, err := c.api.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
	})
	if err != nil {
		return JobStatus{}, classifyStatus("status", jobName, err)
	}

	job := out.TranscriptionJob
	if job == nil {
		return JobStatus{}, &Error{Kind: KindTransport, Op: "status", Message: "provider returned no job", JobName: jobName}
	}

	status := JobStatus{
		JobName: jobName,
		State:   JobState(job.TranscriptionJobStatus),
	}
	if job.Transcript != nil && job.Transcript.TranscriptFileUri != nil {
		status.TranscriptURI = *job.Transcript.TranscriptFileUri
	}
	if job.FailureReason != nil {
		status.FailureReason = *job.FailureReason
	}

	return status, nil
}
