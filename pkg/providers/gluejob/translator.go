package gluejob

import (
	"maps"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"

	"github.com/openfroyo/gluejob/pkg/engine"
)

func jobARN(region, accountID, name string) string {
	return engine.ARN("glue", region, accountID, "job/"+name)
}

func translateToReadRequest(m *Model) *glue.GetJobInput {
	return &glue.GetJobInput{JobName: aws.String(m.Name)}
}

func translateToDeleteRequest(m *Model) *glue.DeleteJobInput {
	return &glue.DeleteJobInput{JobName: aws.String(m.Name)}
}

func translateToListRequest(nextToken string) *glue.ListJobsInput {
	return &glue.ListJobsInput{NextToken: optionalString(nextToken)}
}

func translateToGetTagsRequest(arn string) *glue.GetTagsInput {
	return &glue.GetTagsInput{ResourceArn: aws.String(arn)}
}

func translateToCreateRequest(m *Model, tags map[string]string) *glue.CreateJobInput {
	in := &glue.CreateJobInput{
		Name:                    aws.String(m.Name),
		Role:                    aws.String(m.Role),
		Command:                 toJobCommand(m.Command),
		Description:             optionalString(m.Description),
		LogUri:                  optionalString(m.LogURI),
		ExecutionProperty:       toExecutionProperty(m.ExecutionProperty),
		NotificationProperty:    toNotificationProperty(m.NotificationProperty),
		Connections:             toConnections(m.Connections),
		DefaultArguments:        m.DefaultArguments,
		NonOverridableArguments: m.NonOverridableArguments,
		Timeout:                 m.Timeout,
		MaxCapacity:             m.MaxCapacity,
		NumberOfWorkers:         m.NumberOfWorkers,
		SecurityConfiguration:   optionalString(m.SecurityConfiguration),
		GlueVersion:             optionalString(m.GlueVersion),
		WorkerType:              types.WorkerType(m.WorkerType),
		ExecutionClass:          types.ExecutionClass(m.ExecutionClass),
		MaintenanceWindow:       optionalString(m.MaintenanceWindow),
	}
	if m.MaxRetries != nil {
		in.MaxRetries = int32(*m.MaxRetries)
	}
	if m.AllocatedCapacity != nil {
		in.AllocatedCapacity = int32(*m.AllocatedCapacity)
	}
	if len(tags) > 0 {
		in.Tags = tags
	}
	return in
}

// translateToUpdateRequest resends every settable attribute. Empty optional
// attributes are left unset so they are not cleared.
func translateToUpdateRequest(m *Model) *glue.UpdateJobInput {
	update := &types.JobUpdate{
		Role:                  optionalString(m.Role),
		Command:               toJobCommand(m.Command),
		Description:           optionalString(m.Description),
		LogUri:                optionalString(m.LogURI),
		ExecutionProperty:     toExecutionProperty(m.ExecutionProperty),
		NotificationProperty:  toNotificationProperty(m.NotificationProperty),
		Connections:           toConnections(m.Connections),
		Timeout:               m.Timeout,
		MaxCapacity:           m.MaxCapacity,
		NumberOfWorkers:       m.NumberOfWorkers,
		SecurityConfiguration: optionalString(m.SecurityConfiguration),
		GlueVersion:           optionalString(m.GlueVersion),
		WorkerType:            types.WorkerType(m.WorkerType),
		ExecutionClass:        types.ExecutionClass(m.ExecutionClass),
		MaintenanceWindow:     optionalString(m.MaintenanceWindow),
	}
	if len(m.DefaultArguments) > 0 {
		update.DefaultArguments = m.DefaultArguments
	}
	if len(m.NonOverridableArguments) > 0 {
		update.NonOverridableArguments = m.NonOverridableArguments
	}
	if m.MaxRetries != nil {
		update.MaxRetries = int32(*m.MaxRetries)
	}
	if m.AllocatedCapacity != nil {
		update.AllocatedCapacity = int32(*m.AllocatedCapacity)
	}

	return &glue.UpdateJobInput{
		JobName:   aws.String(m.Name),
		JobUpdate: update,
	}
}

func translateToTagResourceRequest(arn string, add map[string]string) *glue.TagResourceInput {
	return &glue.TagResourceInput{ResourceArn: aws.String(arn), TagsToAdd: add}
}

func translateToUntagResourceRequest(arn string, remove []string) *glue.UntagResourceInput {
	return &glue.UntagResourceInput{ResourceArn: aws.String(arn), TagsToRemove: remove}
}

// translateFromCreateResponse takes the job name the service reports.
func translateFromCreateResponse(m *Model, out *glue.CreateJobOutput) *Model {
	created := *m
	if out != nil && aws.ToString(out.Name) != "" {
		created.Name = aws.ToString(out.Name)
	}
	return &created
}

// translateFromReadResponse maps a job and its tags back into a model.
func translateFromReadResponse(job *Model, tags map[string]string) *Model {
	out := *job
	if len(tags) > 0 {
		out.Tags = maps.Clone(tags)
	}
	return &out
}

func translateFromJob(job *types.Job) *Model {
	if job == nil {
		return &Model{}
	}

	m := &Model{
		Name:                    aws.ToString(job.Name),
		Description:             aws.ToString(job.Description),
		LogURI:                  aws.ToString(job.LogUri),
		Role:                    aws.ToString(job.Role),
		DefaultArguments:        job.DefaultArguments,
		NonOverridableArguments: job.NonOverridableArguments,
		Timeout:                 job.Timeout,
		MaxCapacity:             job.MaxCapacity,
		NumberOfWorkers:         job.NumberOfWorkers,
		SecurityConfiguration:   aws.ToString(job.SecurityConfiguration),
		GlueVersion:             aws.ToString(job.GlueVersion),
		WorkerType:              string(job.WorkerType),
		ExecutionClass:          string(job.ExecutionClass),
		MaintenanceWindow:       aws.ToString(job.MaintenanceWindow),
		MaxRetries:              aws.Float64(float64(job.MaxRetries)),
	}
	if job.AllocatedCapacity != 0 {
		m.AllocatedCapacity = aws.Float64(float64(job.AllocatedCapacity))
	}
	if job.Command != nil {
		m.Command = &JobCommand{
			Name:           aws.ToString(job.Command.Name),
			PythonVersion:  aws.ToString(job.Command.PythonVersion),
			Runtime:        aws.ToString(job.Command.Runtime),
			ScriptLocation: aws.ToString(job.Command.ScriptLocation),
		}
	}
	if job.ExecutionProperty != nil {
		m.ExecutionProperty = &ExecutionProperty{
			MaxConcurrentRuns: aws.Float64(float64(job.ExecutionProperty.MaxConcurrentRuns)),
		}
	}
	if job.NotificationProperty != nil {
		m.NotificationProperty = &NotificationProperty{NotifyDelayAfter: job.NotificationProperty.NotifyDelayAfter}
	}
	if job.Connections != nil && len(job.Connections.Connections) > 0 {
		m.Connections = &ConnectionsList{Connections: job.Connections.Connections}
	}
	return m
}

func translateFromListResponse(out *glue.ListJobsOutput) ([]Model, string) {
	models := make([]Model, 0, len(out.JobNames))
	for _, name := range out.JobNames {
		models = append(models, Model{Name: name})
	}
	return models, aws.ToString(out.NextToken)
}

func toJobCommand(c *JobCommand) *types.JobCommand {
	if c == nil {
		return nil
	}
	return &types.JobCommand{
		Name:           optionalString(c.Name),
		PythonVersion:  optionalString(c.PythonVersion),
		Runtime:        optionalString(c.Runtime),
		ScriptLocation: optionalString(c.ScriptLocation),
	}
}

func toExecutionProperty(p *ExecutionProperty) *types.ExecutionProperty {
	if p == nil || p.MaxConcurrentRuns == nil {
		return nil
	}
	return &types.ExecutionProperty{MaxConcurrentRuns: int32(*p.MaxConcurrentRuns)}
}

func toNotificationProperty(p *NotificationProperty) *types.NotificationProperty {
	if p == nil || p.NotifyDelayAfter == nil {
		return nil
	}
	return &types.NotificationProperty{NotifyDelayAfter: p.NotifyDelayAfter}
}

func toConnections(c *ConnectionsList) *types.ConnectionsList {
	if c == nil || len(c.Connections) == 0 {
		return nil
	}
	return &types.ConnectionsList{Connections: c.Connections}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
