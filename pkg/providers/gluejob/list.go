package gluejob

import (
	"context"

	"github.com/openfroyo/gluejob/pkg/engine"
)

// List returns one page of job names.
func (h *Handler) List(ctx context.Context, req Request, cb *CallbackContext) Event {
	logger := h.logger.With().Str("action", string(engine.ActionList)).Logger()

	out, err := h.api.ListJobs(ctx, translateToListRequest(req.NextToken))
	if err != nil {
		return engine.HandleError[Model](err, nil, cb, logger)
	}

	models, next := translateFromListResponse(out)
	return engine.SuccessList[Model, CallbackContext](models, next)
}
