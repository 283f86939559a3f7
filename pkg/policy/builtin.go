package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		workerCapacityPolicy(),
		jobCommandPolicy(),
		immutableNamePolicy(),
		requiredTagsPolicy(),
		executionClassPolicy(),
	}
}

// workerCapacityPolicy rejects conflicting capacity settings.
func workerCapacityPolicy() Policy {
	return Policy{
		Name:        "worker-capacity",
		Description: "Rejects conflicting worker and capacity settings",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"capacity"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package gluejob.policies.capacity

import rego.v1

deny contains violation if {
	input.resource.NumberOfWorkers
	not input.resource.WorkerType
	violation := {
		"message": "NumberOfWorkers requires WorkerType",
		"field": "WorkerType",
	}
}

deny contains violation if {
	input.resource.WorkerType
	not input.resource.NumberOfWorkers
	violation := {
		"message": "WorkerType requires NumberOfWorkers",
		"field": "NumberOfWorkers",
	}
}

deny contains violation if {
	input.resource.MaxCapacity
	input.resource.WorkerType
	violation := {
		"message": "MaxCapacity cannot be combined with WorkerType",
		"field": "MaxCapacity",
	}
}

deny contains violation if {
	input.resource.MaxCapacity
	input.resource.AllocatedCapacity
	violation := {
		"message": "MaxCapacity cannot be combined with AllocatedCapacity",
		"field": "AllocatedCapacity",
	}
}
`,
	}
}

// jobCommandPolicy requires a role and a script on writes.
func jobCommandPolicy() Policy {
	return Policy{
		Name:        "job-command",
		Description: "Requires Role and Command.ScriptLocation on create and update",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"required"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package gluejob.policies.command

import rego.v1

writes := {"CREATE", "UPDATE"}

deny contains violation if {
	writes[input.action]
	not input.resource.Role
	violation := {
		"message": "Role is required",
		"field": "Role",
	}
}

deny contains violation if {
	writes[input.action]
	not input.resource.Command.ScriptLocation
	violation := {
		"message": "Command.ScriptLocation is required",
		"field": "Command.ScriptLocation",
	}
}

deny contains violation if {
	loc := input.resource.Command.ScriptLocation
	not startswith(loc, "s3://")
	violation := {
		"message": sprintf("script location '%s' must be an s3:// URI", [loc]),
		"field": "Command.ScriptLocation",
	}
}
`,
	}
}

// immutableNamePolicy rejects renames, which the service cannot apply in place.
func immutableNamePolicy() Policy {
	return Policy{
		Name:        "immutable-name",
		Description: "Rejects updates that change the job name",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"update"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package gluejob.policies.immutable

import rego.v1

deny contains violation if {
	input.action == "UPDATE"
	previous := input.previous_state.Name
	desired := input.resource.Name
	previous != desired
	violation := {
		"message": sprintf("job name cannot change from '%s' to '%s'", [previous, desired]),
		"field": "Name",
	}
}
`,
	}
}

// requiredTagsPolicy warns when a job carries no tags at all.
func requiredTagsPolicy() Policy {
	return Policy{
		Name:        "required-tags",
		Description: "Warns when a job is created without resource or stack tags",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"tagging"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package gluejob.policies.tags

import rego.v1

resource_tags := object.get(input.resource, "Tags", {})

stack_tags := object.get(input, "tags", {})

warn contains violation if {
	input.action == "CREATE"
	count(resource_tags) == 0
	count(stack_tags) == 0
	violation := {
		"message": "job has no tags",
		"field": "Tags",
	}
}

deny contains violation if {
	some key, _ in resource_tags
	startswith(lower(key), "aws:")
	violation := {
		"message": sprintf("tag key '%s' uses the reserved aws: prefix", [key]),
		"field": "Tags",
	}
}
`,
	}
}

// executionClassPolicy flags FLEX on jobs that cannot run it.
func executionClassPolicy() Policy {
	return Policy{
		Name:        "execution-class",
		Description: "Warns when FLEX execution is requested for a non Spark job",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"capacity"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package gluejob.policies.execution

import rego.v1

warn contains violation if {
	input.resource.ExecutionClass == "FLEX"
	input.resource.Command.Name != "glueetl"
	violation := {
		"message": sprintf("FLEX execution only applies to glueetl jobs, not '%s'", [input.resource.Command.Name]),
		"field": "ExecutionClass",
	}
}
`,
	}
}
