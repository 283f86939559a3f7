package policy

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/openfroyo/gluejob/pkg/engine"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for warnings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for errors that should block operations.
	SeverityError Severity = "error"

	// SeverityCritical is for critical violations that must be addressed immediately.
	SeverityCritical Severity = "critical"
)

// Blocking reports whether a violation of this severity blocks the request.
func (s Severity) Blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for deny results.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PolicyViolation represents a single deny or warn result.
type PolicyViolation struct {
	// Policy is the name of the policy that produced the result.
	Policy string `json:"policy"`

	// Resource is the job name or logical identifier, when known.
	Resource string `json:"resource,omitempty"`

	// Field is the model property the result refers to.
	Field string `json:"field,omitempty"`

	Message  string   `json:"message"`
	Severity Severity `json:"severity"`

	// DetectedAt is when the violation was detected.
	DetectedAt time.Time `json:"detected_at"`
}

// String renders the violation on one line.
func (v PolicyViolation) String() string {
	if v.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", v.Policy, v.Message, v.Field)
	}
	return fmt.Sprintf("%s: %s", v.Policy, v.Message)
}

// PolicyResult represents the result of policy evaluation.
type PolicyResult struct {
	// Allowed is false when any violation is blocking.
	Allowed bool `json:"allowed"`

	// Violations lists the deny results of all policies.
	Violations []PolicyViolation `json:"violations,omitempty"`

	// Warnings lists the warn results, which never block.
	Warnings []PolicyViolation `json:"warnings,omitempty"`

	EvaluatedAt       time.Time     `json:"evaluated_at"`
	EvaluatedPolicies []string      `json:"evaluated_policies"`
	Duration          time.Duration `json:"duration"`
}

// PolicyInput is the document exposed to Rego as input.
type PolicyInput struct {
	// Action is the lifecycle action being requested.
	Action engine.Action `json:"action"`

	// Resource is the desired model in its wire form.
	Resource map[string]interface{} `json:"resource,omitempty"`

	// PreviousState is the model before an update.
	PreviousState map[string]interface{} `json:"previous_state,omitempty"`

	// Tags are the stack level tags of the request.
	Tags map[string]string `json:"tags,omitempty"`

	// LogicalID is the logical resource identifier.
	LogicalID string `json:"logical_id,omitempty"`

	Context *PolicyContext `json:"context"`
}

// PolicyContext provides context information for policy evaluation.
type PolicyContext struct {
	Region    string    `json:"region,omitempty"`
	AccountID string    `json:"account_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// DryRun is set by the validate command.
	DryRun bool `json:"dry_run"`
}

// NewInput builds the policy input for one request.
func NewInput[M any](action engine.Action, req engine.Request[M]) (*PolicyInput, error) {
	resource, err := toDocument(req.DesiredResourceState)
	if err != nil {
		return nil, fmt.Errorf("failed to encode desired state: %w", err)
	}
	previous, err := toDocument(req.PreviousResourceState)
	if err != nil {
		return nil, fmt.Errorf("failed to encode previous state: %w", err)
	}

	return &PolicyInput{
		Action:        action,
		Resource:      resource,
		PreviousState: previous,
		Tags:          req.DesiredResourceTags,
		LogicalID:     req.LogicalResourceIdentifier,
		Context: &PolicyContext{
			Region:    req.Region,
			AccountID: req.AWSAccountID,
			Timestamp: time.Now().UTC(),
		},
	}, nil
}

func toDocument[M any](model *M) (map[string]interface{}, error) {
	if model == nil {
		return nil, nil
	}
	data, err := json.Marshal(model)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// PolicyBundle represents a collection of related policies.
type PolicyBundle struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Policies    []Policy `json:"policies"`

	CreatedAt time.Time `json:"created_at"`
}
