package runner

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/openfroyo/gluejob/pkg/engine"
	"github.com/openfroyo/gluejob/pkg/protocol"
	"github.com/openfroyo/gluejob/pkg/telemetry"
)

// Serve answers invocations read from dec until end of input. Each
// invocation runs the handler exactly once; re-invoking with the returned
// callback context is left to the caller. Malformed invocations are
// answered with an ERROR message and do not stop the loop; a failed input
// stream does.
func (r *Runner[M, C]) Serve(ctx context.Context, dec *protocol.Decoder, enc *protocol.Encoder) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		inv, err := dec.DecodeInvocation()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, protocol.ErrStream) {
			r.logger.WithError(err).Error("Invocation stream failed")
			return err
		}
		if err != nil {
			r.logger.WithError(err).Warn("Rejected invocation")
			if encErr := enc.EncodeError(&protocol.ErrorMessage{
				Code:    engine.ErrCodeValidation,
				Message: err.Error(),
			}); encErr != nil {
				return encErr
			}
			continue
		}

		result, err := r.InvokeOnce(ctx, inv)
		if err != nil {
			code := engine.ErrCodeValidation
			var ee *engine.EngineError
			if errors.As(err, &ee) && ee.Code != "" {
				code = ee.Code
			}
			if encErr := enc.EncodeError(&protocol.ErrorMessage{
				InvocationID: inv.ID,
				Code:         code,
				Message:      err.Error(),
				Retryable:    engine.IsTransient(err),
			}); encErr != nil {
				return encErr
			}
			continue
		}

		if err := enc.EncodeResult(result); err != nil {
			return err
		}
	}
}

// InvokeOnce runs a single decoded invocation.
func (r *Runner[M, C]) InvokeOnce(ctx context.Context, inv *protocol.Invocation) (*protocol.Result, error) {
	req, cb, err := protocol.ParseInvocation[M, C](inv)
	if err != nil {
		return nil, engine.NewPermanentError("malformed invocation", err).
			WithAction(inv.Action).WithCode(engine.ErrCodeValidation)
	}

	handler, err := r.resolve(inv.Action)
	if err != nil {
		return nil, engine.NewPermanentError("no handler for action", err).
			WithAction(inv.Action).WithCode(engine.ErrCodeValidation)
	}

	// Only the first invocation of a workflow carries no callback context.
	if cb == nil {
		if err := r.preflight(ctx, inv.Action, r.opts.Identify(req.DesiredResourceState), req); err != nil {
			return nil, err
		}
	}

	attempt := inv.Attempt
	if attempt == 0 {
		attempt = 1
	}
	ctx, span := r.tel.Tracer.StartInvocationSpan(ctx, inv.WorkflowID, string(inv.Action), attempt)
	defer span.End()

	callCtx, cancel := context.WithTimeout(protocol.WithInvocation(ctx, inv.WorkflowID, attempt), r.opts.InvocationTimeout)
	defer cancel()

	timer := telemetry.NewTimer()
	ev := handler.Handle(callCtx, req, cb)
	duration := timer.Duration()

	r.tel.Metrics.RecordInvocation(string(inv.Action), string(ev.Status), string(ev.ErrorCode), ev.CallbackDelaySeconds, duration)
	span.SetAttributes(telemetry.AttrStatus.String(string(ev.Status)))
	telemetry.RecordSuccess(span)

	r.logger.WithFields(map[string]interface{}{
		"invocation_id": inv.ID,
		"action":        inv.Action,
		"status":        ev.Status,
		"error_code":    ev.ErrorCode,
		"duration":      duration.Round(time.Millisecond).String(),
	}).Debug("Invocation answered")

	return protocol.NewResult(inv.ID, ev, duration)
}
