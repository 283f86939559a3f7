package engine

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

// DefaultCallbackDelaySeconds is the delay attached to scheduled retries
// and to the pause after a successful existence precondition.
const DefaultCallbackDelaySeconds = 1

// ErrorKind is the taxonomy assigned to a provider error.
type ErrorKind string

const (
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindAccessDenied           ErrorKind = "ACCESS_DENIED"
	KindInvalidInput           ErrorKind = "INVALID_INPUT"
	KindServiceInternal        ErrorKind = "SERVICE_INTERNAL"
	KindOperationTimeout       ErrorKind = "OPERATION_TIMEOUT"
	KindAlreadyExists          ErrorKind = "ALREADY_EXISTS"
	KindResourceLimitExceeded  ErrorKind = "RESOURCE_LIMIT_EXCEEDED"
	KindConcurrentModification ErrorKind = "CONCURRENT_MODIFICATION"
	KindUnauthorizedTagging    ErrorKind = "UNAUTHORIZED_TAGGING"
	KindThrottled              ErrorKind = "THROTTLED"
	KindGeneric                ErrorKind = "GENERIC"
)

// Disposition is what the workflow does with a classified error.
type Disposition int

const (
	// DispositionFail ends the workflow, keeping the resource model.
	DispositionFail Disposition = iota

	// DispositionBareFail ends the workflow without any resource state.
	DispositionBareFail

	// DispositionRetry suspends the workflow and asks for a re-invocation.
	DispositionRetry
)

// String returns the disposition name.
func (d Disposition) String() string {
	switch d {
	case DispositionFail:
		return "fail"
	case DispositionBareFail:
		return "bare_fail"
	case DispositionRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Classification is the result of classifying one provider error.
// Callers branch on Kind and Disposition, never on provider codes.
type Classification struct {
	Kind        ErrorKind
	Disposition Disposition
	Code        HandlerErrorCode
	Message     string

	// ProviderCode and StatusCode are the raw provider signals.
	ProviderCode string
	StatusCode   int
}

// ProviderError is the detail extracted from a provider error chain.
type ProviderError struct {
	Code       string
	Message    string
	StatusCode int

	// HasDetail is true when the chain carried a typed service error.
	HasDetail bool
}

var throttlingCodes = map[string]bool{
	"ThrottlingException":      true,
	"Throttling":               true,
	"RequestLimitExceeded":     true,
	"TooManyRequestsException": true,
}

var taggingDeniedSignatures = []string{
	"is not authorized to perform: glue:TagResource",
	"is not authorized to perform: glue:UntagResource",
}

// ExtractProviderError pulls the service error code, message and HTTP
// status out of err. Without a typed service error the code falls back to
// the error text.
func ExtractProviderError(err error) ProviderError {
	var pe ProviderError
	if err == nil {
		return pe
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		pe.HasDetail = true
		pe.Code = apiErr.ErrorCode()
		pe.Message = apiErr.ErrorMessage()
	} else {
		pe.Code = err.Error()
		pe.Message = err.Error()
	}

	var statusErr interface{ HTTPStatusCode() int }
	if errors.As(err, &statusErr) {
		pe.StatusCode = statusErr.HTTPStatusCode()
	}

	return pe
}

// Classify maps a provider error to a taxonomy kind and a disposition.
func Classify(err error) Classification {
	pe := ExtractProviderError(err)

	c := classifyCode(pe.Code)
	c.ProviderCode = pe.Code
	c.StatusCode = pe.StatusCode
	if err != nil {
		c.Message = err.Error()
	}

	// Operation timeouts and duplicate creates are final.
	if c.Kind == KindOperationTimeout || c.Disposition == DispositionBareFail {
		return c
	}
	if pe.HasDetail {
		for _, sig := range taggingDeniedSignatures {
			if strings.Contains(pe.Message, sig) {
				c.Kind = KindUnauthorizedTagging
				c.Code = ErrorCodeUnauthorizedTaggingOperation
				c.Disposition = DispositionFail
				return c
			}
		}
	}

	// A status without a typed error body, such as a gateway error page,
	// is still retried.
	switch {
	case pe.StatusCode >= 400 && pe.StatusCode < 500 && throttlingCodes[pe.Code]:
		c.Kind = KindThrottled
		c.Code = ErrorCodeThrottling
		c.Disposition = DispositionRetry
	case pe.StatusCode >= 500:
		c.Kind = KindThrottled
		c.Code = ErrorCodeThrottling
		c.Disposition = DispositionRetry
	}

	return c
}

// classifyCode applies the ordered code table; the first match wins.
func classifyCode(code string) Classification {
	switch code {
	case "EntityNotFoundException", "NotFound":
		return Classification{Kind: KindNotFound, Code: ErrorCodeNotFound}
	case "AccessDeniedException", "NotAuthorizedException":
		return Classification{Kind: KindAccessDenied, Code: ErrorCodeAccessDenied}
	case "InvalidInputException":
		return Classification{Kind: KindInvalidInput, Code: ErrorCodeInvalidRequest}
	case "InternalServiceException", "ServiceInternalError":
		return Classification{Kind: KindServiceInternal, Code: ErrorCodeServiceInternalError}
	case "OperationTimeoutException":
		return Classification{Kind: KindOperationTimeout, Code: ErrorCodeThrottling}
	case "IdempotentParameterMismatchException":
		return Classification{Kind: KindAlreadyExists, Code: ErrorCodeAlreadyExists}
	case "ResourceNumberLimitExceededException":
		return Classification{Kind: KindResourceLimitExceeded, Code: ErrorCodeServiceLimitExceeded}
	case "ConcurrentModificationException":
		return Classification{Kind: KindConcurrentModification, Code: ErrorCodeNotUpdatable}
	case "AlreadyExistsException", "AlreadyExists":
		return Classification{Kind: KindAlreadyExists, Code: ErrorCodeAlreadyExists, Disposition: DispositionBareFail}
	default:
		return Classification{Kind: KindGeneric, Code: ErrorCodeGeneralServiceException}
	}
}

// HandleError classifies err and renders the matching outcome.
func HandleError[M, C any](err error, model *M, cb *C, logger zerolog.Logger) ProgressEvent[M, C] {
	c := Classify(err)
	c.Log(logger, err)
	return Outcome(c, model, cb)
}

// Outcome renders a classification as a progress event.
func Outcome[M, C any](c Classification, model *M, cb *C) ProgressEvent[M, C] {
	switch c.Disposition {
	case DispositionRetry:
		return Retry(model, cb, DefaultCallbackDelaySeconds, c.Code)
	case DispositionBareFail:
		return BareFailure[M, C](c.Code, c.Message)
	default:
		return Failed[M, C](model, c.Code, c.Message)
	}
}

// Log writes the classification. Operation timeouts log at error level,
// scheduled retries at info, other failures at warn.
func (c Classification) Log(logger zerolog.Logger, err error) {
	var ev *zerolog.Event
	switch {
	case c.Kind == KindOperationTimeout:
		ev = logger.Error()
	case c.Disposition == DispositionRetry:
		ev = logger.Info()
	default:
		ev = logger.Warn()
	}
	ev.Err(err).
		Str("error_kind", string(c.Kind)).
		Str("error_code", string(c.Code)).
		Str("provider_code", c.ProviderCode).
		Int("status_code", c.StatusCode).
		Str("disposition", c.Disposition.String()).
		Msg("Classified provider error")
}
