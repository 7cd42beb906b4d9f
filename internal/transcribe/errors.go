package transcribe

import (
	"errors"
	"fmt"
	"time"

	"github.com/aws/smithy-go"
	transcribetypes "github.com/aws/aws-sdk-go-v2/service/transcribe/types"
)

// ErrorKind classifies transcription failures into a closed set.
type ErrorKind string

const (
	KindInvalidArgument ErrorKind = "invalid_argument"
	KindDuplicateJob    ErrorKind = "duplicate_job"
	KindInvalidRequest  ErrorKind = "invalid_request"
	KindAccessDenied    ErrorKind = "access_denied"
	KindJobTimeout      ErrorKind = "job_timeout"
	KindJobNotReady     ErrorKind = "job_not_ready"
	KindResultNotFound  ErrorKind = "result_not_found"
	KindMalformedResult ErrorKind = "malformed_result"
	KindTransport       ErrorKind = "transport_failure"
)

// Error carries the classified kind with the original provider error
// attached, never re-parsed from message text.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	JobName string
	Elapsed time.Duration
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("transcribe: %s: %s: %s", e.Op, e.Kind, e.Message)
	if e.JobName != "" {
		msg += fmt.Sprintf(" (job %q)", e.JobName)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind satisfies the pipeline's failure classification interface.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// IsKind reports whether err is a transcribe Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func classifySubmit(op, jobName string, err error) *Error {
	var conflict *transcribetypes.ConflictException
	if errors.As(err, &conflict) {
		return &Error{Kind: KindDuplicateJob, Op: op, Message: "a job with this name already exists", JobName: jobName, Err: err}
	}

	var badRequest *transcribetypes.BadRequestException
	if errors.As(err, &badRequest) {
		return &Error{Kind: KindInvalidRequest, Op: op, Message: "provider rejected the request parameters", JobName: jobName, Err: err}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDeniedException" {
		return &Error{Kind: KindAccessDenied, Op: op, Message: "access denied, check transcription permissions", JobName: jobName, Err: err}
	}

	return &Error{Kind: KindTransport, Op: op, Message: "provider request failed", JobName: jobName, Err: err}
}

func classifyStatus(op, jobName string, err error) *Error {
	var badRequest *transcribetypes.BadRequestException
	if errors.As(err, &badRequest) {
		return &Error{Kind: KindInvalidRequest, Op: op, Message: "job not found or request invalid", JobName: jobName, Err: err}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDeniedException" {
		return &Error{Kind: KindAccessDenied, Op: op, Message: "access denied, check transcription permissions", JobName: jobName, Err: err}
	}

	return &Error{Kind: KindTransport, Op: op, Message: "provider request failed", JobName: jobName, Err: err}
}
