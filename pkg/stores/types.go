package stores

import (
	"context"
	"time"
)

// WorkflowStatus represents the status of a driven workflow
type WorkflowStatus string

const (
	WorkflowStatusRunning   WorkflowStatus = "running"
	WorkflowStatusSucceeded WorkflowStatus = "succeeded"
	WorkflowStatusFailed    WorkflowStatus = "failed"
	WorkflowStatusExhausted WorkflowStatus = "exhausted"
	WorkflowStatusCancelled WorkflowStatus = "cancelled"
)

// IsTerminal reports whether the workflow has stopped.
func (s WorkflowStatus) IsTerminal() bool {
	return s != WorkflowStatusRunning
}

// EventLevel represents the severity level of an event
type EventLevel string

const (
	EventLevelDebug   EventLevel = "debug"
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// Workflow is one action driven from its first invocation to a terminal
// event.
type Workflow struct {
	ID           string         `json:"id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	Identifier   string         `json:"identifier"`
	Status       WorkflowStatus `json:"status"`
	ErrorCode    *string        `json:"error_code,omitempty"`
	Message      *string        `json:"message,omitempty"`
	Invocations  int            `json:"invocations"`
	Request      string         `json:"request"`          // JSON blob
	Result       *string        `json:"result,omitempty"` // JSON blob of the final event
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Invocation is a single handler call within a workflow.
type Invocation struct {
	ID                   string    `json:"id"`
	WorkflowID           string    `json:"workflow_id"`
	Attempt              int       `json:"attempt"`
	Status               string    `json:"status"`
	ErrorCode            *string   `json:"error_code,omitempty"`
	Message              *string   `json:"message,omitempty"`
	CallbackDelaySeconds int       `json:"callback_delay_seconds"`
	CallbackContext      *string   `json:"callback_context,omitempty"` // JSON blob
	Event                string    `json:"event"`                      // JSON blob
	DurationMs           int64     `json:"duration_ms"`
	StartedAt            time.Time `json:"started_at"`
}

// Event represents an append-only log event
type Event struct {
	ID           int64      `json:"id"`
	WorkflowID   *string    `json:"workflow_id,omitempty"`
	InvocationID *string    `json:"invocation_id,omitempty"`
	Level        EventLevel `json:"level"`
	Message      string     `json:"message"`
	Details      *string    `json:"details,omitempty"` // JSON blob
	Timestamp    time.Time  `json:"timestamp"`
}

// ResourceState is the last model a successful workflow reported for a
// resource.
type ResourceState struct {
	ID             string    `json:"id"`
	ResourceType   string    `json:"resource_type"`
	Identifier     string    `json:"identifier"`
	State          string    `json:"state"` // JSON blob
	Hash           string    `json:"hash"`  // SHA256 of state
	LastWorkflowID string    `json:"last_workflow_id"`
	LastApplied    time.Time `json:"last_applied"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WorkflowFilter narrows ListWorkflows. Nil fields match everything.
type WorkflowFilter struct {
	Action     *string
	Identifier *string
	Status     *WorkflowStatus
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Workflow operations
	CreateWorkflow(ctx context.Context, wf *Workflow) error
	GetWorkflow(ctx context.Context, id string) (*Workflow, error)
	CompleteWorkflow(ctx context.Context, id string, status WorkflowStatus, errorCode, message, result *string) error
	ListWorkflows(ctx context.Context, filter WorkflowFilter, limit, offset int) ([]*Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error

	// Invocation operations
	RecordInvocation(ctx context.Context, inv *Invocation) error
	ListInvocations(ctx context.Context, workflowID string) ([]*Invocation, error)

	// Event operations
	AppendEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, workflowID *string, level *EventLevel, limit, offset int) ([]*Event, error)

	// ResourceState operations
	UpsertResourceState(ctx context.Context, state *ResourceState) error
	GetResourceState(ctx context.Context, resourceType, identifier string) (*ResourceState, error)
	ListResourceStates(ctx context.Context, limit, offset int) ([]*ResourceState, error)
	DeleteResourceState(ctx context.Context, resourceType, identifier string) error

	// Utility
	HealthCheck(ctx context.Context) error
}
