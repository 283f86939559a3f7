package gluejob

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/openfroyo/gluejob/pkg/engine"
)

// preCreateCheck fails the create when the job already exists. The first
// confirmed absence sets PreExistenceCheckDone and suspends for one
// callback delay; later invocations skip the read.
func (h *Handler) preCreateCheck(ctx context.Context, e Event, logger zerolog.Logger) Event {
	model, cb := e.ResourceModel, e.CallbackContext
	if cb.PreExistenceCheckDone {
		return e
	}

	_, err := h.api.GetJob(ctx, translateToReadRequest(model))
	if err == nil {
		return engine.Failed[Model, CallbackContext](model, engine.ErrorCodeAlreadyExists,
			fmt.Sprintf(msgAlreadyExists, ResourceType, model.Name))
	}

	c := engine.Classify(err)
	if c.Kind == engine.KindNotFound {
		cb.PreExistenceCheckDone = true
		logger.Debug().Msg("Job does not exist yet, continuing create")
		return engine.ProgressWithDelay(model, cb, CallbackDelaySeconds)
	}

	c.Log(logger, err)
	return engine.Outcome(c, model, cb)
}

// preDeleteCheck fails the delete when the job is already gone, so an
// idempotent provider delete never reports success for a missing job.
func (h *Handler) preDeleteCheck(ctx context.Context, e Event, logger zerolog.Logger) Event {
	model, cb := e.ResourceModel, e.CallbackContext
	if cb.DeletePreExistenceCheckDone {
		return e
	}

	_, err := h.api.GetJob(ctx, translateToReadRequest(model))
	if err == nil {
		cb.DeletePreExistenceCheckDone = true
		return e
	}

	c := engine.Classify(err)
	if c.Kind == engine.KindNotFound {
		return engine.Failed[Model, CallbackContext](model, engine.ErrorCodeNotFound,
			fmt.Sprintf(msgNotFound, ResourceType, model.Name))
	}

	c.Log(logger, err)
	return engine.Outcome(c, model, cb)
}
