package gluejob

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/mock"
)

// MockAPI is a testify mock of the Glue client.
type MockAPI struct {
	mock.Mock
}

var _ API = (*MockAPI)(nil)

// GetJob records the call and returns the configured result.
func (m *MockAPI) GetJob(ctx context.Context, in *glue.GetJobInput, _ ...func(*glue.Options)) (*glue.GetJobOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*glue.GetJobOutput), args.Error(1)
}

// CreateJob records the call and returns the configured result.
func (m *MockAPI) CreateJob(ctx context.Context, in *glue.CreateJobInput, _ ...func(*glue.Options)) (*glue.CreateJobOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*glue.CreateJobOutput), args.Error(1)
}

// UpdateJob records the call and returns the configured result.
func (m *MockAPI) UpdateJob(ctx context.Context, in *glue.UpdateJobInput, _ ...func(*glue.Options)) (*glue.UpdateJobOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*glue.UpdateJobOutput), args.Error(1)
}

// DeleteJob records the call and returns the configured result.
func (m *MockAPI) DeleteJob(ctx context.Context, in *glue.DeleteJobInput, _ ...func(*glue.Options)) (*glue.DeleteJobOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*glue.DeleteJobOutput), args.Error(1)
}

// ListJobs records the call and returns the configured result.
func (m *MockAPI) ListJobs(ctx context.Context, in *glue.ListJobsInput, _ ...func(*glue.Options)) (*glue.ListJobsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*glue.ListJobsOutput), args.Error(1)
}

// GetTags records the call and returns the configured result.
func (m *MockAPI) GetTags(ctx context.Context, in *glue.GetTagsInput, _ ...func(*glue.Options)) (*glue.GetTagsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*glue.GetTagsOutput), args.Error(1)
}

// TagResource records the call and returns the configured result.
func (m *MockAPI) TagResource(ctx context.Context, in *glue.TagResourceInput, _ ...func(*glue.Options)) (*glue.TagResourceOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*glue.TagResourceOutput), args.Error(1)
}

// UntagResource records the call and returns the configured result.
func (m *MockAPI) UntagResource(ctx context.Context, in *glue.UntagResourceInput, _ ...func(*glue.Options)) (*glue.UntagResourceOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*glue.UntagResourceOutput), args.Error(1)
}

// serviceError builds an error shaped like the ones the SDK returns.
func serviceError(status int, code, message string) error {
	return &smithy.OperationError{
		ServiceID:     "Glue",
		OperationName: "Test",
		Err: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      &smithy.GenericAPIError{Code: code, Message: message},
		},
	}
}
