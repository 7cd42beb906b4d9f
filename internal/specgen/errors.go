package specgen

import (
	"errors"
	"fmt"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// ErrorKind classifies generation failures into a closed set.
type ErrorKind string

const (
	KindInvalidArgument   ErrorKind = "invalid_argument"
	KindAccessDenied      ErrorKind = "access_denied"
	KindRateLimited       ErrorKind = "rate_limited"
	KindInvalidRequest    ErrorKind = "invalid_request"
	KindModelUnavailable  ErrorKind = "model_unavailable"
	KindQuotaExceeded     ErrorKind = "quota_exceeded"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindTransport         ErrorKind = "transport_failure"
)

// ErrNoJSONObject marks the one malformed-response shape that is worth
// retrying: the model answered, but no JSON object could be located in the
// text. Contract violations inside a located object are not retried.
var ErrNoJSONObject = errors.New("no JSON object found in response text")

// Error carries the classified kind with the original provider error
// attached.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("specgen: %s: %s: %s: %v", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("specgen: %s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind satisfies the pipeline's failure classification interface.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// IsKind reports whether err is a specgen Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Retryable reports whether another attempt could plausibly succeed:
// transient provider faults, and responses with no locatable JSON object.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindRateLimited, KindModelUnavailable:
		return true
	case KindMalformedResponse:
		return errors.Is(err, ErrNoJSONObject)
	default:
		return false
	}
}

func classify(op string, err error) *Error {
	var throttled *brtypes.ThrottlingException
	if errors.As(err, &throttled) {
		return &Error{Kind: KindRateLimited, Op: op, Message: "provider rate limit exceeded", Err: err}
	}

	var unavailable *brtypes.ServiceUnavailableException
	if errors.As(err, &unavailable) {
		return &Error{Kind: KindModelUnavailable, Op: op, Message: "provider temporarily unavailable", Err: err}
	}

	var internal *brtypes.InternalServerException
	if errors.As(err, &internal) {
		return &Error{Kind: KindModelUnavailable, Op: op, Message: "provider internal error", Err: err}
	}

	var notReady *brtypes.ModelNotReadyException
	if errors.As(err, &notReady) {
		return &Error{Kind: KindModelUnavailable, Op: op, Message: "model is not ready", Err: err}
	}

	var denied *brtypes.AccessDeniedException
	if errors.As(err, &denied) {
		return &Error{Kind: KindAccessDenied, Op: op, Message: "access denied, check permissions and model access", Err: err}
	}

	var validation *brtypes.ValidationException
	if errors.As(err, &validation) {
		return &Error{Kind: KindInvalidRequest, Op: op, Message: "provider rejected the request parameters", Err: err}
	}

	var quota *brtypes.ServiceQuotaExceededException
	if errors.As(err, &quota) {
		return &Error{Kind: KindQuotaExceeded, Op: op, Message: "service quota exceeded", Err: err}
	}

	return &Error{Kind: KindTransport, Op: op, Message: "provider request failed", Err: err}
}
