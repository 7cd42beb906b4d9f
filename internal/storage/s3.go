package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"voicespec/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const (
	audioContentType    = "audio/wav"
	documentContentType = "text/markdown"

	// Transport limits for storage calls; transient faults are absorbed by
	// the SDK's own retry count, not by callers.
	requestTimeout = 60 * time.Second
	maxRetries     = 3
)

// Location is an opaque locator for a stored object, independent of the URL
// rendering a provider exposes it in.
type Location struct {
	Bucket string
	Key    string
}

// URI renders the location in the native scheme consumed by the
// transcription provider.
func (l Location) URI() string {
	return fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key)
}

type S3Store struct {
	client *s3.Client
}

// S3Options configures the store for non-default endpoints and credentials.
// Zero values fall back to the ambient AWS credential chain.
type S3Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Store creates an object store client with bounded 60s request
// timeouts and 3 transport-level retry attempts.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithHTTPClient(&http.Client{Timeout: requestTimeout}),
		awsconfig.WithRetryMaxAttempts(maxRetries),
	}

	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 storage initialized", zap.String("region", opts.Region))

	return &S3Store{client: client}, nil
}

// Upload stores audio bytes and returns the canonical locator. Arguments are
// validated before any network call.
func (s *S3Store) Upload(ctx context.Context, data []byte, bucket, key string) (Location, error) {
	if len(data) == 0 {
		return Location{}, &Error{Kind: KindInvalidArgument, Op: "upload", Message: "audio data cannot be empty"}
	}
	if bucket == "" {
		return Location{}, &Error{Kind: KindInvalidArgument, Op: "upload", Message: "bucket name cannot be empty"}
	}
	if key == "" {
		return Location{}, &Error{Kind: KindInvalidArgument, Op: "upload", Message: "object key cannot be empty"}
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(audioContentType),
	})
	if err != nil {
		return Location{}, classify("upload", err)
	}

	loc := Location{Bucket: bucket, Key: key}

	logger.Info("Audio uploaded to S3",
		zap.String("uri", loc.URI()),
		zap.Int("size", len(data)))

	return loc, nil
}

// Download fetches an object and returns its raw bytes.
func (s *S3Store) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	if bucket == "" || key == "" {
		return nil, &Error{Kind: KindInvalidArgument, Op: "download", Message: "bucket and key cannot be empty"}
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify("download", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: "download", Message: "failed to read object body", Err: err}
	}

	logger.Debug("Object downloaded from S3",
		zap.String("key", key),
		zap.Int("size", len(data)))

	return data, nil
}

// UploadDocument mirrors a generated requirements document under
// projects/<projectName>/requirements.md in the bucket.
func (s *S3Store) UploadDocument(ctx context.Context, bucket, projectName, content string) (Location, error) {
	if bucket == "" {
		return Location{}, &Error{Kind: KindInvalidArgument, Op: "upload_document", Message: "bucket name cannot be empty"}
	}
	if projectName == "" {
		return Location{}, &Error{Kind: KindInvalidArgument, Op: "upload_document", Message: "project name cannot be empty"}
	}
	if content == "" {
		return Location{}, &Error{Kind: KindInvalidArgument, Op: "upload_document", Message: "document content cannot be empty"}
	}

	key := path.Join("projects", projectName, "requirements.md")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader([]byte(content)),
		ContentType: aws.String(documentContentType),
	})
	if err != nil {
		return Location{}, classify("upload_document", err)
	}

	loc := Location{Bucket: bucket, Key: key}

	logger.Info("Requirements document mirrored to S3", zap.String("uri", loc.URI()))

	return loc, nil
}
