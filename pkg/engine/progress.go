package engine

import (
	"fmt"
)

// ProgressEvent is the outcome of a step or of a whole handler invocation.
// M is the resource model and C the callback context carried between
// invocations.
type ProgressEvent[M, C any] struct {
	// Status tells the caller whether to re-invoke.
	Status OperationStatus `json:"status"`

	// ErrorCode is set on failures and on throttled retries.
	ErrorCode HandlerErrorCode `json:"errorCode,omitempty"`

	// Message is a human readable description of a failure.
	Message string `json:"message,omitempty"`

	// CallbackContext is only present while the workflow is in progress.
	CallbackContext *C `json:"callbackContext,omitempty"`

	// CallbackDelaySeconds is the advisory wait before the next invocation.
	CallbackDelaySeconds int `json:"callbackDelaySeconds,omitempty"`

	// ResourceModel is the best known resource state.
	ResourceModel *M `json:"resourceModel,omitempty"`

	// ResourceModels carries list results.
	ResourceModels []M `json:"resourceModels,omitempty"`

	// NextToken is the pagination token of a list result.
	NextToken string `json:"nextToken,omitempty"`
}

// Step is a single unit of a workflow chain.
type Step[M, C any] func(ProgressEvent[M, C]) ProgressEvent[M, C]

// Progress begins a chain with the given model and callback context.
func Progress[M, C any](model *M, cb *C) ProgressEvent[M, C] {
	return ProgressEvent[M, C]{
		Status:          StatusInProgress,
		ResourceModel:   model,
		CallbackContext: cb,
	}
}

// ProgressWithDelay suspends the chain; the caller re-invokes after delay
// seconds with the returned callback context.
func ProgressWithDelay[M, C any](model *M, cb *C, delay int) ProgressEvent[M, C] {
	e := Progress(model, cb)
	e.CallbackDelaySeconds = delay
	return e
}

// Retry schedules a re-invocation tagged with an error code.
func Retry[M, C any](model *M, cb *C, delay int, code HandlerErrorCode) ProgressEvent[M, C] {
	e := ProgressWithDelay(model, cb, delay)
	e.ErrorCode = code
	return e
}

// Success finishes the workflow. The callback context is dropped.
func Success[M, C any](model *M) ProgressEvent[M, C] {
	return ProgressEvent[M, C]{
		Status:        StatusSuccess,
		ResourceModel: model,
	}
}

// SuccessList finishes a list workflow.
func SuccessList[M, C any](models []M, nextToken string) ProgressEvent[M, C] {
	if models == nil {
		models = []M{}
	}
	return ProgressEvent[M, C]{
		Status:         StatusSuccess,
		ResourceModels: models,
		NextToken:      nextToken,
	}
}

// Failed stops the workflow. The model is kept for diagnostics, the
// callback context is not.
func Failed[M, C any](model *M, code HandlerErrorCode, message string) ProgressEvent[M, C] {
	return ProgressEvent[M, C]{
		Status:        StatusFailed,
		ErrorCode:     code,
		Message:       message,
		ResourceModel: model,
	}
}

// BareFailure stops the workflow without any resource state.
func BareFailure[M, C any](code HandlerErrorCode, message string) ProgressEvent[M, C] {
	return ProgressEvent[M, C]{
		Status:    StatusFailed,
		ErrorCode: code,
		Message:   message,
	}
}

// Then runs step if the chain may continue, otherwise returns e unchanged.
// A chain continues while it is in progress and no retry is scheduled.
func (e ProgressEvent[M, C]) Then(step Step[M, C]) ProgressEvent[M, C] {
	if !e.CanContinue() {
		return e
	}
	return step(e)
}

// CheckExistence gates the chain on an idempotency precondition step.
func (e ProgressEvent[M, C]) CheckExistence(step Step[M, C]) ProgressEvent[M, C] {
	return e.Then(step)
}

// CanContinue reports whether a following step may run in this invocation.
func (e ProgressEvent[M, C]) CanContinue() bool {
	return e.Status == StatusInProgress && e.CallbackDelaySeconds == 0
}

// IsSuccess returns true for a successful outcome.
func (e ProgressEvent[M, C]) IsSuccess() bool { return e.Status == StatusSuccess }

// IsFailed returns true for a failed outcome.
func (e ProgressEvent[M, C]) IsFailed() bool { return e.Status == StatusFailed }

// IsInProgress returns true if the caller must re-invoke.
func (e ProgressEvent[M, C]) IsInProgress() bool { return e.Status == StatusInProgress }

// Validate checks that exactly one of the outcome shapes holds.
func (e ProgressEvent[M, C]) Validate() error {
	if err := e.Status.Validate(); err != nil {
		return err
	}
	if e.CallbackDelaySeconds < 0 {
		return fmt.Errorf("callback delay must not be negative, got %d", e.CallbackDelaySeconds)
	}
	switch e.Status {
	case StatusFailed:
		if e.ErrorCode == "" {
			return fmt.Errorf("failed outcome requires an error code")
		}
		if e.CallbackContext != nil {
			return fmt.Errorf("failed outcome must not carry a callback context")
		}
	case StatusSuccess:
		if e.CallbackContext != nil {
			return fmt.Errorf("successful outcome must not carry a callback context")
		}
		if e.ErrorCode != "" {
			return fmt.Errorf("successful outcome must not carry an error code")
		}
	}
	return nil
}
