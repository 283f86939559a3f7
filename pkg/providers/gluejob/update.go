package gluejob

import (
	"context"

	"github.com/openfroyo/gluejob/pkg/engine"
	"github.com/openfroyo/gluejob/pkg/tagging"
)

// Update resends the full job definition, then reconciles tags.
func (h *Handler) Update(ctx context.Context, req Request, cb *CallbackContext) Event {
	model := req.Model()
	if model.Name == "" {
		return invalidRequest(model, msgNameRequired)
	}
	if err := model.Validate(); err != nil {
		return invalidRequest(model, err.Error())
	}

	logger := h.log(engine.ActionUpdate, req, model)
	arn := jobARN(req.Region, req.AWSAccountID, model.Name)

	var previousModelTags map[string]string
	if req.PreviousResourceState != nil {
		previousModelTags = req.PreviousResourceState.Tags
	}
	remove, add := tagging.Diff(
		tagging.Merge(req.PreviousResourceTags, previousModelTags),
		tagging.Merge(req.DesiredResourceTags, model.Tags),
	)

	return engine.Progress(model, cb).
		Then(func(e Event) Event {
			if _, err := h.api.UpdateJob(ctx, translateToUpdateRequest(e.ResourceModel)); err != nil {
				return engine.HandleError(err, e.ResourceModel, e.CallbackContext, logger)
			}
			logger.Info().Msg("Updated job")
			return e
		}).
		Then(func(e Event) Event {
			if len(remove) == 0 {
				return e
			}
			if _, err := h.api.UntagResource(ctx, translateToUntagResourceRequest(arn, remove)); err != nil {
				return engine.HandleError(err, e.ResourceModel, e.CallbackContext, logger)
			}
			logger.Debug().Strs("keys", remove).Msg("Removed tags")
			return e
		}).
		Then(func(e Event) Event {
			if len(add) == 0 {
				return e
			}
			if _, err := h.api.TagResource(ctx, translateToTagResourceRequest(arn, add)); err != nil {
				return engine.HandleError(err, e.ResourceModel, e.CallbackContext, logger)
			}
			logger.Debug().Int("count", len(add)).Msg("Added tags")
			return e
		}).
		Then(func(e Event) Event {
			return engine.Success[Model, CallbackContext](e.ResourceModel)
		})
}
