package engine

import (
	"fmt"
)

// OperationStatus is the status of a single handler invocation.
type OperationStatus string

const (
	// StatusInProgress indicates the workflow must be re-invoked with the
	// returned callback context.
	StatusInProgress OperationStatus = "IN_PROGRESS"

	// StatusSuccess indicates the workflow finished.
	StatusSuccess OperationStatus = "SUCCESS"

	// StatusFailed indicates the workflow stopped and cannot be resumed.
	StatusFailed OperationStatus = "FAILED"
)

// IsTerminal returns true if the caller must not re-invoke the handler.
func (s OperationStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Validate checks if the operation status is valid.
func (s OperationStatus) Validate() error {
	switch s {
	case StatusInProgress, StatusSuccess, StatusFailed:
		return nil
	default:
		return fmt.Errorf("invalid operation status: %s", s)
	}
}

// Action is the kind of lifecycle operation requested by the caller.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionRead   Action = "READ"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionList   Action = "LIST"
)

// Validate checks if the action is valid.
func (a Action) Validate() error {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList:
		return nil
	default:
		return fmt.Errorf("invalid action: %s", a)
	}
}

// HandlerErrorCode is the taxonomy code reported on failed or throttled
// outcomes. Values follow the CloudFormation handler contract.
type HandlerErrorCode string

const (
	ErrorCodeNotFound                     HandlerErrorCode = "NotFound"
	ErrorCodeAccessDenied                 HandlerErrorCode = "AccessDenied"
	ErrorCodeInvalidRequest               HandlerErrorCode = "InvalidRequest"
	ErrorCodeServiceInternalError         HandlerErrorCode = "ServiceInternalError"
	ErrorCodeThrottling                   HandlerErrorCode = "Throttling"
	ErrorCodeAlreadyExists                HandlerErrorCode = "AlreadyExists"
	ErrorCodeServiceLimitExceeded         HandlerErrorCode = "ServiceLimitExceeded"
	ErrorCodeNotUpdatable                 HandlerErrorCode = "NotUpdatable"
	ErrorCodeUnauthorizedTaggingOperation HandlerErrorCode = "UnauthorizedTaggingOperation"
	ErrorCodeGeneralServiceException      HandlerErrorCode = "GeneralServiceException"
)

// IsRetryable returns true for codes that accompany a scheduled retry.
func (c HandlerErrorCode) IsRetryable() bool {
	return c == ErrorCodeThrottling
}
