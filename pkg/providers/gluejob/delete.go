package gluejob

import (
	"context"

	"github.com/openfroyo/gluejob/pkg/engine"
)

// Delete removes a Glue job that is known to exist.
func (h *Handler) Delete(ctx context.Context, req Request, cb *CallbackContext) Event {
	model := req.Model()
	if model.Name == "" {
		return invalidRequest(model, msgNameRequired)
	}

	logger := h.log(engine.ActionDelete, req, model)

	return engine.Progress(model, cb).
		CheckExistence(func(e Event) Event {
			return h.preDeleteCheck(ctx, e, logger)
		}).
		Then(func(e Event) Event {
			if _, err := h.api.DeleteJob(ctx, translateToDeleteRequest(e.ResourceModel)); err != nil {
				return engine.HandleError(err, e.ResourceModel, e.CallbackContext, logger)
			}
			logger.Info().Msg("Deleted job")
			return e
		}).
		Then(func(Event) Event {
			return engine.Success[Model, CallbackContext](nil)
		})
}
