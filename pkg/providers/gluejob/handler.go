package gluejob

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/openfroyo/gluejob/pkg/engine"
)

const (
	// CallbackDelaySeconds is the pause requested between invocations.
	CallbackDelaySeconds = engine.DefaultCallbackDelaySeconds

	// GeneratedPhysicalIDMaxLen bounds synthesized job names.
	GeneratedPhysicalIDMaxLen = 40
)

const (
	msgCreateValidation = "Model validation failed. Required fields name, role and command cannot be empty."
	msgNameRequired     = "Model validation failed. Required key [Name] cannot be empty."
	msgAlreadyExists    = "Resource of type '%s' with identifier '%s' already exists."
	msgNotFound         = "Resource of type '%s' with identifier '%s' was not found."
)

// Event is the outcome of a Glue job invocation.
type Event = engine.ProgressEvent[Model, CallbackContext]

// Request is the input of a Glue job invocation.
type Request = engine.Request[Model]

// Handler runs the Glue job workflows against an injected client.
type Handler struct {
	api    API
	logger zerolog.Logger
}

// NewHandler creates a handler calling api.
func NewHandler(api API, logger zerolog.Logger) *Handler {
	return &Handler{
		api:    api,
		logger: logger.With().Str("resource_type", ResourceType).Logger(),
	}
}

// Handle dispatches one invocation to the workflow for action.
func (h *Handler) Handle(ctx context.Context, action engine.Action, req Request, cb *CallbackContext) Event {
	handler, err := h.For(action)
	if err != nil {
		return engine.Failed[Model, CallbackContext](req.DesiredResourceState, engine.ErrorCodeInvalidRequest, err.Error())
	}
	return handler.Handle(ctx, req, cb)
}

// For returns the workflow for action.
func (h *Handler) For(action engine.Action) (engine.Handler[Model, CallbackContext], error) {
	var fn engine.HandlerFunc[Model, CallbackContext]
	switch action {
	case engine.ActionCreate:
		fn = h.Create
	case engine.ActionRead:
		fn = h.Read
	case engine.ActionUpdate:
		fn = h.Update
	case engine.ActionDelete:
		fn = h.Delete
	case engine.ActionList:
		fn = h.List
	default:
		return nil, fmt.Errorf("unsupported action %q", action)
	}

	return engine.HandlerFunc[Model, CallbackContext](func(ctx context.Context, req Request, cb *CallbackContext) Event {
		if cb == nil {
			cb = &CallbackContext{}
		}
		return fn(ctx, req, cb)
	}), nil
}

func (h *Handler) log(action engine.Action, req Request, model *Model) zerolog.Logger {
	return h.logger.With().
		Str("action", string(action)).
		Str("job_name", model.Name).
		Str("stack_id", req.StackID).
		Str("logical_id", req.LogicalResourceIdentifier).
		Logger()
}

func invalidRequest(model *Model, message string) Event {
	return engine.Failed[Model, CallbackContext](model, engine.ErrorCodeInvalidRequest, message)
}
