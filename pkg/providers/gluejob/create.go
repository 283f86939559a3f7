package gluejob

import (
	"context"

	"github.com/openfroyo/gluejob/pkg/engine"
	"github.com/openfroyo/gluejob/pkg/tagging"
)

// Create creates a Glue job.
func (h *Handler) Create(ctx context.Context, req Request, cb *CallbackContext) Event {
	m := *req.Model()
	model := &m

	if model.Role == "" || model.Command == nil {
		return invalidRequest(model, msgCreateValidation)
	}
	if err := model.Validate(); err != nil {
		return invalidRequest(model, err.Error())
	}
	if model.Name == "" {
		model.Name = engine.GenerateResourceIdentifier(req.LogicalResourceIdentifier, req.ClientRequestToken, GeneratedPhysicalIDMaxLen)
	}

	logger := h.log(engine.ActionCreate, req, model)
	tags := tagging.Merge(req.DesiredResourceTags, model.Tags)

	return engine.Progress(model, cb).
		CheckExistence(func(e Event) Event {
			return h.preCreateCheck(ctx, e, logger)
		}).
		Then(func(e Event) Event {
			out, err := h.api.CreateJob(ctx, translateToCreateRequest(e.ResourceModel, tags))
			if err != nil {
				return engine.HandleError(err, e.ResourceModel, e.CallbackContext, logger)
			}
			e.ResourceModel = translateFromCreateResponse(e.ResourceModel, out)
			logger.Info().Str("job", e.ResourceModel.Name).Msg("Created job")
			return e
		}).
		Then(func(e Event) Event {
			return engine.Success[Model, CallbackContext](e.ResourceModel)
		})
}
