package gluejob

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ResourceType is the type name reported in messages.
const ResourceType = "AWS::Glue::Job"

// Model is the resource state of a Glue job.
type Model struct {
	// Name is the primary identifier. It is synthesized on create when empty.
	Name string `json:"Name,omitempty" yaml:"Name,omitempty" validate:"omitempty,max=255"`

	Description string `json:"Description,omitempty" yaml:"Description,omitempty" validate:"omitempty,max=2048"`
	LogURI      string `json:"LogUri,omitempty" yaml:"LogUri,omitempty"`

	// Role is the IAM role name or ARN the job runs as. Required on create.
	Role string `json:"Role,omitempty" yaml:"Role,omitempty"`

	// Command is required on create.
	Command *JobCommand `json:"Command,omitempty" yaml:"Command,omitempty"`

	ExecutionProperty    *ExecutionProperty    `json:"ExecutionProperty,omitempty" yaml:"ExecutionProperty,omitempty"`
	NotificationProperty *NotificationProperty `json:"NotificationProperty,omitempty" yaml:"NotificationProperty,omitempty"`
	Connections          *ConnectionsList      `json:"Connections,omitempty" yaml:"Connections,omitempty"`

	DefaultArguments        map[string]string `json:"DefaultArguments,omitempty" yaml:"DefaultArguments,omitempty"`
	NonOverridableArguments map[string]string `json:"NonOverridableArguments,omitempty" yaml:"NonOverridableArguments,omitempty"`

	MaxRetries        *float64 `json:"MaxRetries,omitempty" yaml:"MaxRetries,omitempty" validate:"omitempty,min=0"`
	AllocatedCapacity *float64 `json:"AllocatedCapacity,omitempty" yaml:"AllocatedCapacity,omitempty" validate:"omitempty,min=0"`
	Timeout           *int32   `json:"Timeout,omitempty" yaml:"Timeout,omitempty" validate:"omitempty,min=1"`
	MaxCapacity       *float64 `json:"MaxCapacity,omitempty" yaml:"MaxCapacity,omitempty" validate:"omitempty,min=0"`
	NumberOfWorkers   *int32   `json:"NumberOfWorkers,omitempty" yaml:"NumberOfWorkers,omitempty" validate:"omitempty,min=1"`

	SecurityConfiguration string `json:"SecurityConfiguration,omitempty" yaml:"SecurityConfiguration,omitempty"`
	GlueVersion           string `json:"GlueVersion,omitempty" yaml:"GlueVersion,omitempty"`
	WorkerType            string `json:"WorkerType,omitempty" yaml:"WorkerType,omitempty"`
	ExecutionClass        string `json:"ExecutionClass,omitempty" yaml:"ExecutionClass,omitempty" validate:"omitempty,oneof=FLEX STANDARD"`
	MaintenanceWindow     string `json:"MaintenanceWindow,omitempty" yaml:"MaintenanceWindow,omitempty"`

	// Tags are resource level tags.
	Tags map[string]string `json:"Tags,omitempty" yaml:"Tags,omitempty"`
}

// JobCommand describes the script a job runs.
type JobCommand struct {
	Name           string `json:"Name,omitempty" yaml:"Name,omitempty"`
	PythonVersion  string `json:"PythonVersion,omitempty" yaml:"PythonVersion,omitempty"`
	Runtime        string `json:"Runtime,omitempty" yaml:"Runtime,omitempty"`
	ScriptLocation string `json:"ScriptLocation,omitempty" yaml:"ScriptLocation,omitempty"`
}

// ExecutionProperty limits concurrent runs.
type ExecutionProperty struct {
	MaxConcurrentRuns *float64 `json:"MaxConcurrentRuns,omitempty" yaml:"MaxConcurrentRuns,omitempty" validate:"omitempty,min=0"`
}

// NotificationProperty configures delay notifications.
type NotificationProperty struct {
	NotifyDelayAfter *int32 `json:"NotifyDelayAfter,omitempty" yaml:"NotifyDelayAfter,omitempty" validate:"omitempty,min=1"`
}

// ConnectionsList names the connections a job uses.
type ConnectionsList struct {
	Connections []string `json:"Connections,omitempty" yaml:"Connections,omitempty"`
}

var validate = validator.New()

// Validate checks field constraints that do not depend on the action.
func (m *Model) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid %s model: %w", ResourceType, err)
	}
	return nil
}
