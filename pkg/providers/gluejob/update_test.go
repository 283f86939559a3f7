package gluejob

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/gluejob/pkg/engine"
)

const testARN = "arn:aws:glue:us-east-1:123456789012:job/etl-job"

func TestUpdateReconcilesTags(t *testing.T) {
	h, api := newTestHandler(t)

	previous := testModel()
	previous.Tags = map[string]string{"team": "data", "env": "dev"}
	desired := testModel()
	desired.Tags = map[string]string{"team": "data", "env": "prod", "owner": "ops"}
	req := testRequest(desired)
	req.PreviousResourceState = previous
	req.PreviousResourceTags = map[string]string{"stack": "old"}

	api.On("UpdateJob", mock.Anything, mock.MatchedBy(func(in *glue.UpdateJobInput) bool {
		return *in.JobName == testJobName && *in.JobUpdate.Role == desired.Role
	})).Return(&glue.UpdateJobOutput{}, nil).Once()
	api.On("UntagResource", mock.Anything, mock.MatchedBy(func(in *glue.UntagResourceInput) bool {
		return *in.ResourceArn == testARN && assert.ObjectsAreEqual([]string{"stack"}, in.TagsToRemove)
	})).Return(&glue.UntagResourceOutput{}, nil).Once()
	api.On("TagResource", mock.Anything, mock.MatchedBy(func(in *glue.TagResourceInput) bool {
		return *in.ResourceArn == testARN &&
			assert.ObjectsAreEqual(map[string]string{"env": "prod", "owner": "ops"}, in.TagsToAdd)
	})).Return(&glue.TagResourceOutput{}, nil).Once()

	out := h.Update(context.Background(), req, &CallbackContext{})

	require.Equal(t, engine.StatusSuccess, out.Status)
	assert.Same(t, desired, out.ResourceModel)
	assert.Nil(t, out.CallbackContext)
}

func TestUpdateSkipsUnchangedTags(t *testing.T) {
	h, api := newTestHandler(t)

	previous := testModel()
	previous.Tags = map[string]string{"team": "data"}
	desired := testModel()
	desired.Tags = map[string]string{"team": "data"}
	req := testRequest(desired)
	req.PreviousResourceState = previous

	api.On("UpdateJob", mock.Anything, mock.Anything).Return(&glue.UpdateJobOutput{}, nil).Once()

	out := h.Update(context.Background(), req, &CallbackContext{})

	assert.True(t, out.IsSuccess())
	api.AssertNotCalled(t, "TagResource", mock.Anything, mock.Anything)
	api.AssertNotCalled(t, "UntagResource", mock.Anything, mock.Anything)
}

func TestUpdateLeavesEmptyFieldsUnset(t *testing.T) {
	h, api := newTestHandler(t)

	api.On("UpdateJob", mock.Anything, mock.MatchedBy(func(in *glue.UpdateJobInput) bool {
		u := in.JobUpdate
		return u.Description == nil && u.LogUri == nil && u.DefaultArguments == nil &&
			u.Timeout == nil && u.GlueVersion == nil && u.ExecutionClass == "" &&
			*u.Command.ScriptLocation == "s3://bucket/script.py"
	})).Return(&glue.UpdateJobOutput{}, nil).Once()

	out := h.Update(context.Background(), testRequest(testModel()), &CallbackContext{})
	assert.True(t, out.IsSuccess())
}

func TestUpdateErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   engine.OperationStatus
		wantCode engine.HandlerErrorCode
	}{
		{
			name:     "concurrent modification",
			err:      serviceError(400, "ConcurrentModificationException", "busy"),
			status:   engine.StatusFailed,
			wantCode: engine.ErrorCodeNotUpdatable,
		},
		{
			name:     "missing job",
			err:      notFoundError(),
			status:   engine.StatusFailed,
			wantCode: engine.ErrorCodeNotFound,
		},
		{
			name:     "throttled",
			err:      serviceError(429, "ThrottlingException", "slow"),
			status:   engine.StatusInProgress,
			wantCode: engine.ErrorCodeThrottling,
		},
		{
			name:     "operation timeout",
			err:      serviceError(400, "OperationTimeoutException", "timed out"),
			status:   engine.StatusFailed,
			wantCode: engine.ErrorCodeThrottling,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, api := newTestHandler(t)
			api.On("UpdateJob", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			out := h.Update(context.Background(), testRequest(testModel()), &CallbackContext{})

			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.wantCode, out.ErrorCode)
		})
	}
}

func TestUpdateTaggingDenied(t *testing.T) {
	h, api := newTestHandler(t)
	desired := testModel()
	desired.Tags = map[string]string{"team": "data"}

	api.On("UpdateJob", mock.Anything, mock.Anything).Return(&glue.UpdateJobOutput{}, nil).Once()
	api.On("TagResource", mock.Anything, mock.Anything).
		Return(nil, serviceError(400, "AccessDeniedException",
			"User: arn:aws:iam::123456789012:user/ci is not authorized to perform: glue:TagResource")).Once()

	out := h.Update(context.Background(), testRequest(desired), &CallbackContext{})

	assert.Equal(t, engine.StatusFailed, out.Status)
	assert.Equal(t, engine.ErrorCodeUnauthorizedTaggingOperation, out.ErrorCode)
}

func TestUpdateRequiresName(t *testing.T) {
	h, api := newTestHandler(t)

	out := h.Update(context.Background(), testRequest(&Model{Role: "role"}), &CallbackContext{})

	assert.Equal(t, engine.ErrorCodeInvalidRequest, out.ErrorCode)
	assert.Equal(t, msgNameRequired, out.Message)
	assert.Empty(t, api.Calls)
}
