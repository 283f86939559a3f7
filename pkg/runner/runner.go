// Package runner drives resource handlers to completion on the local
// host. It re-invokes a handler with the callback context it returned,
// waits the advisory delay between invocations, and records every
// invocation in the history store.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openfroyo/gluejob/pkg/engine"
	"github.com/openfroyo/gluejob/pkg/protocol"
	"github.com/openfroyo/gluejob/pkg/stores"
	"github.com/openfroyo/gluejob/pkg/telemetry"
)

const (
	// DefaultMaxInvocations bounds a workflow when Options leaves it unset.
	DefaultMaxInvocations = 50

	// DefaultInvocationTimeout bounds one handler call.
	DefaultInvocationTimeout = 5 * time.Minute
)

// Resolver returns the handler for an action.
type Resolver[M, C any] func(action engine.Action) (engine.Handler[M, C], error)

// SleepFunc waits d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Runner.
type Options[M any] struct {
	// ResourceType labels stored workflows and resource state.
	ResourceType string

	// MaxInvocations is the attempt ceiling of one workflow.
	MaxInvocations int

	// InvocationTimeout bounds each handler call.
	InvocationTimeout time.Duration

	// Identify names the resource a model describes.
	Identify func(*M) string

	// Preflight, when set, vets a request before its first invocation.
	// A rejection ends the request without calling the handler.
	Preflight PreflightFunc[M]
}

// PreflightFunc vets a request before the handler sees it.
type PreflightFunc[M any] func(ctx context.Context, action engine.Action, req engine.Request[M]) error

// Runner drives workflows of one resource type.
type Runner[M, C any] struct {
	resolve Resolver[M, C]
	store   stores.Store
	tel     *telemetry.Telemetry
	logger  *telemetry.Logger
	opts    Options[M]

	sleep SleepFunc
	newID func() string
}

// Outcome is the terminal state of a driven workflow.
type Outcome[M, C any] struct {
	WorkflowID  string
	Event       engine.ProgressEvent[M, C]
	Invocations int
}

// New creates a runner. store may be nil, in which case nothing is
// recorded.
func New[M, C any](resolve Resolver[M, C], store stores.Store, tel *telemetry.Telemetry, opts Options[M]) *Runner[M, C] {
	if opts.MaxInvocations <= 0 {
		opts.MaxInvocations = DefaultMaxInvocations
	}
	if opts.InvocationTimeout <= 0 {
		opts.InvocationTimeout = DefaultInvocationTimeout
	}
	if opts.Identify == nil {
		opts.Identify = func(*M) string { return "" }
	}

	return &Runner[M, C]{
		resolve: resolve,
		store:   store,
		tel:     tel,
		logger:  tel.Logger.NewComponentLogger("runner"),
		opts:    opts,
		sleep:   sleepContext,
		newID:   func() string { return uuid.New().String() },
	}
}

// WithSleep replaces the delay function, mostly for tests.
func (r *Runner[M, C]) WithSleep(sleep SleepFunc) *Runner[M, C] {
	r.sleep = sleep
	return r
}

// Drive runs action until the handler reports SUCCESS or FAILED. A FAILED
// event is a normal outcome, not an error. Errors are host side: an
// unknown action, a store failure, cancellation or exhausted attempts.
func (r *Runner[M, C]) Drive(ctx context.Context, action engine.Action, req engine.Request[M]) (*Outcome[M, C], error) {
	if err := action.Validate(); err != nil {
		return nil, engine.NewPermanentError("invalid action", err).WithCode(engine.ErrCodeValidation)
	}
	handler, err := r.resolve(action)
	if err != nil {
		return nil, engine.NewPermanentError("no handler for action", err).
			WithAction(action).WithCode(engine.ErrCodeValidation)
	}

	identifier := r.opts.Identify(req.DesiredResourceState)
	if err := r.preflight(ctx, action, identifier, req); err != nil {
		return nil, err
	}

	wfID := r.newID()
	logger := r.logger.WithWorkflow(wfID, string(action)).WithField("identifier", identifier)

	if err := r.startWorkflow(ctx, wfID, action, identifier, req); err != nil {
		return nil, err
	}
	r.tel.Metrics.RecordWorkflowStarted()
	logger.Info("Workflow started")

	var cb *C
	for attempt := 1; ; attempt++ {
		if attempt > r.opts.MaxInvocations {
			err := engine.NewPermanentError(
				fmt.Sprintf("workflow did not finish within %d invocations", r.opts.MaxInvocations), nil).
				WithResource(identifier).WithAction(action).WithCode(engine.ErrCodeAttemptsExhausted)
			r.abort(ctx, wfID, action, stores.WorkflowStatusExhausted, attempt-1, err)
			logger.WithError(err).Error("Workflow exhausted its attempts")
			return nil, err
		}

		ev, err := r.invoke(ctx, handler, wfID, action, attempt, req, cb)
		if err != nil {
			r.abort(ctx, wfID, action, stores.WorkflowStatusFailed, attempt, err)
			return nil, err
		}

		if ev.Status.IsTerminal() {
			if err := r.finish(ctx, wfID, action, identifier, ev, attempt); err != nil {
				return nil, err
			}
			logger.WithFields(map[string]interface{}{
				"status":      ev.Status,
				"error_code":  ev.ErrorCode,
				"invocations": attempt,
			}).Info("Workflow finished")
			return &Outcome[M, C]{WorkflowID: wfID, Event: ev, Invocations: attempt}, nil
		}

		cb = ev.CallbackContext
		delay := time.Duration(ev.CallbackDelaySeconds) * time.Second
		if ev.ErrorCode.IsRetryable() {
			logger.WithFields(map[string]interface{}{
				"attempt":    attempt,
				"error_code": ev.ErrorCode,
				"delay":      delay.String(),
			}).Warn("Retrying after throttled invocation")
			r.appendEvent(ctx, wfID, stores.EventLevelWarning,
				fmt.Sprintf("Retrying after %s (attempt %d/%d)", ev.ErrorCode, attempt, r.opts.MaxInvocations))
		}

		if err := r.sleep(ctx, delay); err != nil {
			cancelErr := engine.NewTransientError("workflow cancelled", err).
				WithResource(identifier).WithAction(action).WithCode(engine.ErrCodeCancelled)
			r.abort(ctx, wfID, action, stores.WorkflowStatusCancelled, attempt, cancelErr)
			return nil, cancelErr
		}
	}
}

// invoke runs one handler call and records it.
func (r *Runner[M, C]) invoke(ctx context.Context, handler engine.Handler[M, C], wfID string, action engine.Action, attempt int, req engine.Request[M], cb *C) (engine.ProgressEvent[M, C], error) {
	ctx, span := r.tel.Tracer.StartInvocationSpan(ctx, wfID, string(action), attempt)
	defer span.End()

	callCtx, cancel := context.WithTimeout(protocol.WithInvocation(ctx, wfID, attempt), r.opts.InvocationTimeout)
	defer cancel()

	started := time.Now().UTC()
	timer := telemetry.NewTimer()
	ev := handler.Handle(callCtx, req, cb)
	duration := timer.Duration()

	if err := ev.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return ev, engine.NewPermanentError("handler returned an invalid event", err).WithAction(action)
	}

	span.SetAttributes(
		telemetry.AttrStatus.String(string(ev.Status)),
		telemetry.AttrErrorCode.String(string(ev.ErrorCode)),
	)
	if ev.IsFailed() {
		telemetry.RecordError(span, errors.New(ev.Message))
	} else {
		telemetry.RecordSuccess(span)
	}

	r.tel.Metrics.RecordInvocation(string(action), string(ev.Status), string(ev.ErrorCode), ev.CallbackDelaySeconds, duration)

	if r.store == nil {
		return ev, nil
	}

	eventJSON, err := json.Marshal(ev)
	if err != nil {
		return ev, engine.NewPermanentError("failed to encode event", err).WithAction(action)
	}
	inv := &stores.Invocation{
		ID:                   r.newID(),
		WorkflowID:           wfID,
		Attempt:              attempt,
		Status:               string(ev.Status),
		ErrorCode:            optional(string(ev.ErrorCode)),
		Message:              optional(ev.Message),
		CallbackDelaySeconds: ev.CallbackDelaySeconds,
		Event:                string(eventJSON),
		DurationMs:           duration.Milliseconds(),
		StartedAt:            started,
	}
	if ev.CallbackContext != nil {
		cbJSON, err := json.Marshal(ev.CallbackContext)
		if err != nil {
			return ev, engine.NewPermanentError("failed to encode callback context", err).WithAction(action)
		}
		inv.CallbackContext = optional(string(cbJSON))
	}
	if err := r.store.RecordInvocation(ctx, inv); err != nil {
		return ev, engine.NewTransientError("failed to record invocation", err).
			WithAction(action).WithCode(engine.ErrCodeStore)
	}

	return ev, nil
}

func (r *Runner[M, C]) startWorkflow(ctx context.Context, wfID string, action engine.Action, identifier string, req engine.Request[M]) error {
	if r.store == nil {
		return nil
	}

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return engine.NewPermanentError("failed to encode request", err).WithAction(action)
	}
	wf := &stores.Workflow{
		ID:           wfID,
		Action:       string(action),
		ResourceType: r.opts.ResourceType,
		Identifier:   identifier,
		Request:      string(reqJSON),
	}
	if err := r.store.CreateWorkflow(ctx, wf); err != nil {
		return engine.NewTransientError("failed to record workflow", err).
			WithAction(action).WithCode(engine.ErrCodeStore)
	}
	return nil
}

// finish records the terminal event and the resulting resource state.
func (r *Runner[M, C]) finish(ctx context.Context, wfID string, action engine.Action, identifier string, ev engine.ProgressEvent[M, C], invocations int) error {
	status := stores.WorkflowStatusSucceeded
	if ev.IsFailed() {
		status = stores.WorkflowStatusFailed
	}
	r.tel.Metrics.RecordWorkflowCompleted(string(action), string(ev.Status), invocations)

	if r.store == nil {
		return nil
	}

	result, err := json.Marshal(ev)
	if err != nil {
		return engine.NewPermanentError("failed to encode event", err).WithAction(action)
	}
	if err := r.store.CompleteWorkflow(ctx, wfID, status,
		optional(string(ev.ErrorCode)), optional(ev.Message), optional(string(result))); err != nil {
		return engine.NewTransientError("failed to complete workflow", err).
			WithAction(action).WithCode(engine.ErrCodeStore)
	}

	if !ev.IsSuccess() {
		return nil
	}

	switch action {
	case engine.ActionDelete:
		if identifier != "" {
			if err := r.store.DeleteResourceState(ctx, r.opts.ResourceType, identifier); err != nil {
				return engine.NewTransientError("failed to drop resource state", err).WithCode(engine.ErrCodeStore)
			}
		}
	case engine.ActionCreate, engine.ActionRead, engine.ActionUpdate:
		if ev.ResourceModel == nil {
			return nil
		}
		id := r.opts.Identify(ev.ResourceModel)
		if id == "" {
			return nil
		}
		state, err := json.Marshal(ev.ResourceModel)
		if err != nil {
			return engine.NewPermanentError("failed to encode resource state", err).WithAction(action)
		}
		if err := r.store.UpsertResourceState(ctx, &stores.ResourceState{
			ID:             r.newID(),
			ResourceType:   r.opts.ResourceType,
			Identifier:     id,
			State:          string(state),
			LastWorkflowID: wfID,
		}); err != nil {
			return engine.NewTransientError("failed to save resource state", err).WithCode(engine.ErrCodeStore)
		}
	}
	return nil
}

// abort closes a workflow that stopped without a terminal event.
func (r *Runner[M, C]) abort(ctx context.Context, wfID string, action engine.Action, status stores.WorkflowStatus, invocations int, cause error) {
	r.tel.Metrics.RecordWorkflowCompleted(string(action), string(status), invocations)
	if r.store == nil {
		return
	}

	// The caller's context may already be cancelled.
	ctx = context.WithoutCancel(ctx)

	var code *string
	var ee *engine.EngineError
	if errors.As(cause, &ee) && ee.Code != "" {
		code = optional(ee.Code)
	}
	msg := cause.Error()
	if err := r.store.CompleteWorkflow(ctx, wfID, status, code, &msg, nil); err != nil {
		r.logger.WithError(err).Warn("Failed to record aborted workflow")
	}
	r.appendEvent(ctx, wfID, stores.EventLevelError, msg)
}

func (r *Runner[M, C]) appendEvent(ctx context.Context, wfID string, level stores.EventLevel, msg string) {
	if r.store == nil {
		return
	}
	if err := r.store.AppendEvent(ctx, &stores.Event{WorkflowID: &wfID, Level: level, Message: msg}); err != nil {
		r.logger.WithError(err).Warn("Failed to append workflow event")
	}
}

// preflight runs Options.Preflight. Rejections that are not already
// engine errors become permanent policy violations.
func (r *Runner[M, C]) preflight(ctx context.Context, action engine.Action, identifier string, req engine.Request[M]) error {
	if r.opts.Preflight == nil {
		return nil
	}
	err := r.opts.Preflight(ctx, action, req)
	if err == nil {
		return nil
	}

	var ee *engine.EngineError
	if !errors.As(err, &ee) {
		ee = engine.NewPermanentError("request rejected by policy", err).
			WithResource(identifier).WithAction(action).WithCode(engine.ErrCodePolicyViolation)
	}
	r.logger.WithFields(map[string]interface{}{
		"action":     action,
		"identifier": identifier,
	}).WithError(ee).Warn("Request rejected before invocation")
	return ee
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
