package gluejob

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/glue"
	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/gluejob/pkg/engine"
	"github.com/openfroyo/gluejob/pkg/telemetry"
)

const providerName = "glue"

// InstrumentedAPI records a span and call metrics around every Glue call.
type InstrumentedAPI struct {
	next    API
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
}

var _ API = (*InstrumentedAPI)(nil)

// NewInstrumentedAPI wraps next. Either metrics or tracer may be nil.
func NewInstrumentedAPI(next API, metrics *telemetry.Metrics, tracer *telemetry.Tracer) *InstrumentedAPI {
	return &InstrumentedAPI{next: next, metrics: metrics, tracer: tracer}
}

func (a *InstrumentedAPI) start(ctx context.Context, operation string) (context.Context, func(error)) {
	timer := telemetry.NewTimer()
	var span trace.Span
	if a.tracer != nil {
		ctx, span = a.tracer.StartProviderSpan(ctx, providerName, operation)
	}

	return ctx, func(err error) {
		if a.metrics != nil {
			a.metrics.RecordProviderCall(providerName, operation, timer.Duration())
			if err != nil {
				a.metrics.RecordProviderError(providerName, operation, engine.ExtractProviderError(err).Code)
			}
		}
		if span != nil {
			if err != nil {
				telemetry.RecordError(span, err)
			} else {
				telemetry.RecordSuccess(span)
			}
			span.End()
		}
	}
}

// GetJob implements API.
func (a *InstrumentedAPI) GetJob(ctx context.Context, in *glue.GetJobInput, optFns ...func(*glue.Options)) (*glue.GetJobOutput, error) {
	ctx, done := a.start(ctx, "GetJob")
	out, err := a.next.GetJob(ctx, in, optFns...)
	done(err)
	return out, err
}

// CreateJob implements API.
func (a *InstrumentedAPI) CreateJob(ctx context.Context, in *glue.CreateJobInput, optFns ...func(*glue.Options)) (*glue.CreateJobOutput, error) {
	ctx, done := a.start(ctx, "CreateJob")
	out, err := a.next.CreateJob(ctx, in, optFns...)
	done(err)
	return out, err
}

// UpdateJob implements API.
func (a *InstrumentedAPI) UpdateJob(ctx context.Context, in *glue.UpdateJobInput, optFns ...func(*glue.Options)) (*glue.UpdateJobOutput, error) {
	ctx, done := a.start(ctx, "UpdateJob")
	out, err := a.next.UpdateJob(ctx, in, optFns...)
	done(err)
	return out, err
}

// DeleteJob implements API.
func (a *InstrumentedAPI) DeleteJob(ctx context.Context, in *glue.DeleteJobInput, optFns ...func(*glue.Options)) (*glue.DeleteJobOutput, error) {
	ctx, done := a.start(ctx, "DeleteJob")
	out, err := a.next.DeleteJob(ctx, in, optFns...)
	done(err)
	return out, err
}

// ListJobs implements API.
func (a *InstrumentedAPI) ListJobs(ctx context.Context, in *glue.ListJobsInput, optFns ...func(*glue.Options)) (*glue.ListJobsOutput, error) {
	ctx, done := a.start(ctx, "ListJobs")
	out, err := a.next.ListJobs(ctx, in, optFns...)
	done(err)
	return out, err
}

// GetTags implements API.
func (a *InstrumentedAPI) GetTags(ctx context.Context, in *glue.GetTagsInput, optFns ...func(*glue.Options)) (*glue.GetTagsOutput, error) {
	ctx, done := a.start(ctx, "GetTags")
	out, err := a.next.GetTags(ctx, in, optFns...)
	done(err)
	return out, err
}

// TagResource implements API.
func (a *InstrumentedAPI) TagResource(ctx context.Context, in *glue.TagResourceInput, optFns ...func(*glue.Options)) (*glue.TagResourceOutput, error) {
	ctx, done := a.start(ctx, "TagResource")
	out, err := a.next.TagResource(ctx, in, optFns...)
	done(err)
	return out, err
}

// UntagResource implements API.
func (a *InstrumentedAPI) UntagResource(ctx context.Context, in *glue.UntagResourceInput, optFns ...func(*glue.Options)) (*glue.UntagResourceOutput, error) {
	ctx, done := a.start(ctx, "UntagResource")
	out, err := a.next.UntagResource(ctx, in, optFns...)
	done(err)
	return out, err
}
