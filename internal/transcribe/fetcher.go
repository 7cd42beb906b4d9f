package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"voicespec/pkg/logger"

	"go.uber.org/zap"
)

const (
	serviceHostPrefix = "s3."
	serviceHostMarker = ".s3."
	serviceDomain     = ".amazonaws.com"
)

// Downloader fetches a stored object's raw bytes.
type Downloader interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
}

// Fetcher resolves a completed job's transcript location, downloads the
// result document and extracts the plain transcript text.
type Fetcher struct {
	provider Provider
	store    Downloader
}

func NewFetcher(provider Provider, store Downloader) *Fetcher {
	return &Fetcher{provider: provider, store: store}
}

// transcriptDocument is the provider's result schema. Pointer fields let the
// fetcher name exactly which expected key is missing.
type transcriptDocument struct {
	Results *transcriptResults `json:"results"`
}

type transcriptResults struct {
	Transcripts []transcriptEntry `json:"transcripts"`
}

type transcriptEntry struct {
	Transcript *string `json:"transcript"`
}

// Fetch re-verifies the job is COMPLETED with a fresh status query before
// resolving its result, defending against stale callers.
func (f *Fetcher) Fetch(ctx context.Context, jobName string) (string, error) {
	status, err := f.provider.Status(ctx, jobName)
	if err != nil {
		return "", err
	}

	if status.State != JobCompleted {
		return "", &Error{
			Kind:    KindJobNotReady,
			Op:      "fetch",
			Message: fmt.Sprintf("job is not completed, current status: %s", status.State),
			JobName: jobName,
		}
	}

	bucket, key, err := ParseTranscriptURI(status.TranscriptURI)
	if err != nil {
		return "", err
	}

	logger.Debug("Fetching transcript result",
		zap.String("job_name", jobName),
		zap.String("bucket", bucket),
		zap.String("key", key))

	data, err := f.store.Download(ctx, bucket, key)
	if err != nil {
		return "", translateDownloadError(jobName, err)
	}

	var doc transcriptDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", &Error{Kind: KindMalformedResult, Op: "fetch", Message: "failed to parse transcript JSON", JobName: jobName, Err: err}
	}

	if doc.Results == nil {
		return "", &Error{Kind: KindMalformedResult, Op: "fetch", Message: `transcript JSON missing key "results"`, JobName: jobName}
	}
	if len(doc.Results.Transcripts) == 0 {
		return "", &Error{Kind: KindMalformedResult, Op: "fetch", Message: `transcript JSON missing key "transcripts[0]"`, JobName: jobName}
	}
	if doc.Results.Transcripts[0].Transcript == nil {
		return "", &Error{Kind: KindMalformedResult, Op: "fetch", Message: `transcript JSON missing key "transcript"`, JobName: jobName}
	}

	text := *doc.Results.Transcripts[0].Transcript

	logger.Info("Transcript fetched",
		zap.String("job_name", jobName),
		zap.Int("length", len(text)))

	return text, nil
}

// translateDownloadError maps object store failures onto the fetcher's own
// taxonomy while keeping the storage error in the chain.
func translateDownloadError(jobName string, err error) error {
	type kinder interface{ ErrorKind() string }

	var k kinder
	if !errors.As(err, &k) {
		return &Error{Kind: KindTransport, Op: "fetch", Message: "failed to download transcript", JobName: jobName, Err: err}
	}

	switch k.ErrorKind() {
	case "object_not_found":
		return &Error{Kind: KindResultNotFound, Op: "fetch", Message: "transcript object missing at resolved location", JobName: jobName, Err: err}
	case "access_denied":
		return &Error{Kind: KindAccessDenied, Op: "fetch", Message: "access denied fetching transcript object", JobName: jobName, Err: err}
	default:
		return &Error{Kind: KindTransport, Op: "fetch", Message: "failed to download transcript", JobName: jobName, Err: err}
	}
}

// ParseTranscriptURI normalizes the three locator shapes a provider may
// return into a (bucket, key) pair:
//
//	https://s3.region.amazonaws.com/bucket/key   path-style
//	https://bucket.s3.region.amazonaws.com/key   virtual-hosted
//	s3://bucket/key                              native scheme
//
// Unrecognized HTTPS hosts fall back to treating the first path segment as
// the bucket.
func ParseTranscriptURI(uri string) (bucket, key string, err error) {
	switch {
	case strings.HasPrefix(uri, "https://"):
		rest := strings.TrimPrefix(uri, "https://")
		parts := strings.Split(rest, "/")
		host := parts[0]

		switch {
		case strings.HasPrefix(host, serviceHostPrefix) && strings.Contains(host, serviceDomain):
			if len(parts) < 3 {
				return "", "", malformedURI(uri)
			}
			return parts[1], strings.Join(parts[2:], "/"), nil

		case strings.Contains(host, serviceHostMarker) && strings.Contains(host, serviceDomain):
			if len(parts) < 2 {
				return "", "", malformedURI(uri)
			}
			return strings.SplitN(host, serviceHostMarker, 2)[0], strings.Join(parts[1:], "/"), nil

		default:
			if len(parts) < 3 {
				return "", "", malformedURI(uri)
			}
			return parts[1], strings.Join(parts[2:], "/"), nil
		}

	case strings.HasPrefix(uri, "s3://"):
		rest := strings.TrimPrefix(uri, "s3://")
		bucket, key, found := strings.Cut(rest, "/")
		if !found || bucket == "" || key == "" {
			return "", "", malformedURI(uri)
		}
		return bucket, key, nil

	default:
		return "", "", malformedURI(uri)
	}
}

func malformedURI(uri string) *Error {
	return &Error{Kind: KindMalformedResult, Op: "fetch", Message: fmt.Sprintf("unrecognized transcript URI format: %q", uri)}
}
