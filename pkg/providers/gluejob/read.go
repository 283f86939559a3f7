package gluejob

import (
	"context"

	"github.com/openfroyo/gluejob/pkg/engine"
)

// Read returns the job and its tags. Both reads are cached in the callback
// context so a throttled tag read does not repeat the job read.
func (h *Handler) Read(ctx context.Context, req Request, cb *CallbackContext) Event {
	model := req.Model()
	if model.Name == "" {
		return invalidRequest(model, msgNameRequired)
	}

	logger := h.log(engine.ActionRead, req, model)
	arn := jobARN(req.Region, req.AWSAccountID, model.Name)

	return engine.Progress(model, cb).
		Then(func(e Event) Event {
			if e.CallbackContext.Job != nil {
				return e
			}
			out, err := h.api.GetJob(ctx, translateToReadRequest(e.ResourceModel))
			if err != nil {
				return engine.HandleError(err, e.ResourceModel, e.CallbackContext, logger)
			}
			e.CallbackContext.Job = translateFromJob(out.Job)
			return e
		}).
		Then(func(e Event) Event {
			if e.CallbackContext.TagsRead {
				return e
			}
			out, err := h.api.GetTags(ctx, translateToGetTagsRequest(arn))
			if err != nil {
				return engine.HandleError(err, e.ResourceModel, e.CallbackContext, logger)
			}
			e.CallbackContext.Tags = out.Tags
			e.CallbackContext.TagsRead = true
			return e
		}).
		Then(func(e Event) Event {
			return engine.Success[Model, CallbackContext](
				translateFromReadResponse(e.CallbackContext.Job, e.CallbackContext.Tags))
		})
}
