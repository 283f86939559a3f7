// Package protocol defines the JSON-lines envelope used to pass handler
// invocations and their outcomes over stdin and stdout.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/openfroyo/gluejob/pkg/engine"
)

// MessageType represents the type of message in the protocol.
type MessageType string

const (
	// MessageTypeInvoke carries one handler invocation
	MessageTypeInvoke MessageType = "INVOKE"
	// MessageTypeResult carries the progress event of an invocation
	MessageTypeResult MessageType = "RESULT"
	// MessageTypeError reports a host side failure
	MessageTypeError MessageType = "ERROR"
)

// Message is the base structure of every line.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Invocation asks a handler to run one action. CallbackContext is the
// continuation returned by the previous invocation, absent on the first.
type Invocation struct {
	ID              string          `json:"id"`
	WorkflowID      string          `json:"workflowId,omitempty"`
	Action          engine.Action   `json:"action"`
	Attempt         int             `json:"attempt,omitempty"`
	Request         json.RawMessage `json:"request"`
	CallbackContext json.RawMessage `json:"callbackContext,omitempty"`
}

// Result is the outcome of one invocation. Status, ErrorCode and
// CallbackDelaySeconds mirror the event so callers can act without
// decoding the resource model.
type Result struct {
	InvocationID         string                  `json:"invocationId"`
	Status               engine.OperationStatus  `json:"status"`
	ErrorCode            engine.HandlerErrorCode `json:"errorCode,omitempty"`
	CallbackDelaySeconds int                     `json:"callbackDelaySeconds,omitempty"`
	Duration             float64                 `json:"duration"` // seconds
	Event                json.RawMessage         `json:"event"`
}

// ErrorMessage reports a failure outside the handler, such as a malformed
// invocation.
type ErrorMessage struct {
	InvocationID string `json:"invocationId,omitempty"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	Retryable    bool   `json:"retryable"`
}

// Error lets a decoded ERROR message travel as an error.
func (em *ErrorMessage) Error() string {
	return fmt.Sprintf("invocation %s failed: %s: %s", em.InvocationID, em.Code, em.Message)
}

// Validate checks if the message type is valid.
func (mt MessageType) Validate() error {
	switch mt {
	case MessageTypeInvoke, MessageTypeResult, MessageTypeError:
		return nil
	default:
		return fmt.Errorf("invalid message type: %s", mt)
	}
}

// Validate checks if the invocation is well formed.
func (inv *Invocation) Validate() error {
	if inv.ID == "" {
		return fmt.Errorf("invocation ID is required")
	}
	if err := inv.Action.Validate(); err != nil {
		return err
	}
	if len(inv.Request) == 0 {
		return fmt.Errorf("invocation request is required")
	}
	return nil
}

// NewInvocation encodes a typed request and continuation.
func NewInvocation[M, C any](id string, action engine.Action, req engine.Request[M], cb *C) (*Invocation, error) {
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	inv := &Invocation{ID: id, Action: action, Request: reqBytes}
	if cb != nil {
		cbBytes, err := json.Marshal(cb)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal callback context: %w", err)
		}
		inv.CallbackContext = cbBytes
	}
	return inv, nil
}

// ParseInvocation decodes the typed request and continuation of inv. A
// missing continuation decodes to nil.
func ParseInvocation[M, C any](inv *Invocation) (engine.Request[M], *C, error) {
	var req engine.Request[M]
	if err := json.Unmarshal(inv.Request, &req); err != nil {
		return req, nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if len(inv.CallbackContext) == 0 || string(inv.CallbackContext) == "null" {
		return req, nil, nil
	}
	cb := new(C)
	if err := json.Unmarshal(inv.CallbackContext, cb); err != nil {
		return req, nil, fmt.Errorf("failed to parse callback context: %w", err)
	}
	return req, cb, nil
}

// NewResult encodes a progress event for invocation id.
func NewResult[M, C any](id string, ev engine.ProgressEvent[M, C], duration time.Duration) (*Result, error) {
	evBytes, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return &Result{
		InvocationID:         id,
		Status:               ev.Status,
		ErrorCode:            ev.ErrorCode,
		CallbackDelaySeconds: ev.CallbackDelaySeconds,
		Duration:             duration.Seconds(),
		Event:                evBytes,
	}, nil
}

// ParseEvent decodes the typed progress event of r.
func ParseEvent[M, C any](r *Result) (engine.ProgressEvent[M, C], error) {
	var ev engine.ProgressEvent[M, C]
	if err := json.Unmarshal(r.Event, &ev); err != nil {
		return ev, fmt.Errorf("failed to parse event: %w", err)
	}
	return ev, nil
}
