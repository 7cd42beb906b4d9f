package storage

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ErrorKind classifies object store failures into a closed set consulted by
// the pipeline when reporting terminal outcomes.
type ErrorKind string

const (
	KindInvalidArgument ErrorKind = "invalid_argument"
	KindBucketNotFound  ErrorKind = "bucket_not_found"
	KindObjectNotFound  ErrorKind = "object_not_found"
	KindAccessDenied    ErrorKind = "access_denied"
	KindTransport       ErrorKind = "transport_failure"
)

// Error carries the classified kind alongside the original provider error so
// diagnostics survive classification.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage: %s: %s: %s: %v", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("storage: %s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind satisfies the pipeline's failure classification interface.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// IsKind reports whether err is a storage Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// classify maps a provider error code to the storage taxonomy. Unknown codes
// and non-API errors (network, timeouts) become transport failures.
func classify(op string, err error) *Error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return &Error{Kind: KindBucketNotFound, Op: op, Message: "bucket does not exist", Err: err}
		case "NoSuchKey":
			return &Error{Kind: KindObjectNotFound, Op: op, Message: "object does not exist", Err: err}
		case "AccessDenied", "AccessDeniedException":
			return &Error{Kind: KindAccessDenied, Op: op, Message: "access denied, check credentials and bucket policy", Err: err}
		}
	}
	return &Error{Kind: KindTransport, Op: op, Message: "provider request failed", Err: err}
}
