package gluejob

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateToCreateRequest(t *testing.T) {
	m := testModel()
	m.MaxRetries = aws.Float64(3)
	m.ExecutionProperty = &ExecutionProperty{MaxConcurrentRuns: aws.Float64(2)}
	m.Connections = &ConnectionsList{Connections: []string{"jdbc"}}
	m.WorkerType = "G.1X"
	m.NumberOfWorkers = aws.Int32(10)
	m.GlueVersion = "4.0"

	in := translateToCreateRequest(m, map[string]string{"team": "data"})

	assert.Equal(t, testJobName, aws.ToString(in.Name))
	assert.Equal(t, int32(3), in.MaxRetries)
	assert.Equal(t, int32(2), in.ExecutionProperty.MaxConcurrentRuns)
	assert.Equal(t, []string{"jdbc"}, in.Connections.Connections)
	assert.Equal(t, types.WorkerType("G.1X"), in.WorkerType)
	assert.Equal(t, int32(10), aws.ToInt32(in.NumberOfWorkers))
	assert.Equal(t, "4.0", aws.ToString(in.GlueVersion))
	assert.Equal(t, map[string]string{"team": "data"}, in.Tags)
	assert.Nil(t, in.Description)
	assert.Nil(t, in.Command.PythonVersion)
}

func TestTranslateFromJob(t *testing.T) {
	job := testJob()
	job.ExecutionProperty = &types.ExecutionProperty{MaxConcurrentRuns: 4}
	job.NotificationProperty = &types.NotificationProperty{NotifyDelayAfter: aws.Int32(5)}
	job.ExecutionClass = types.ExecutionClassFlex

	m := translateFromJob(job)

	require.NotNil(t, m.Command)
	assert.Equal(t, "s3://bucket/script.py", m.Command.ScriptLocation)
	assert.Equal(t, 4.0, *m.ExecutionProperty.MaxConcurrentRuns)
	assert.Equal(t, int32(5), *m.NotificationProperty.NotifyDelayAfter)
	assert.Equal(t, "FLEX", m.ExecutionClass)
	assert.Nil(t, m.AllocatedCapacity)
	assert.Nil(t, m.Connections)

	assert.Equal(t, &Model{}, translateFromJob(nil))
}

func TestTranslateFromReadResponseDoesNotAlias(t *testing.T) {
	job := &Model{Name: "a"}
	tags := map[string]string{"k": "v"}

	m := translateFromReadResponse(job, tags)
	tags["k"] = "changed"

	assert.Equal(t, "v", m.Tags["k"])
	assert.Nil(t, job.Tags)
}

func TestTranslateFromCreateResponse(t *testing.T) {
	m := testModel()

	got := translateFromCreateResponse(m, &glue.CreateJobOutput{Name: aws.String("renamed")})
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, testJobName, m.Name)

	got = translateFromCreateResponse(m, &glue.CreateJobOutput{})
	assert.Equal(t, testJobName, got.Name)

	got = translateFromCreateResponse(m, nil)
	assert.Equal(t, testJobName, got.Name)
}
