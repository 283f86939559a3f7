package policy

import (
	"context"
	"testing"

	"github.com/openfroyo/gluejob/pkg/engine"
	"github.com/rs/zerolog"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := NewEngine(zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng
}

func validJob() map[string]interface{} {
	return map[string]interface{}{
		"Name": "nightly-etl",
		"Role": "arn:aws:iam::123456789012:role/glue",
		"Command": map[string]interface{}{
			"Name":           "glueetl",
			"ScriptLocation": "s3://bucket/scripts/etl.py",
		},
		"WorkerType":      "G.1X",
		"NumberOfWorkers": 10,
		"Tags":            map[string]interface{}{"team": "data"},
	}
}

func TestNewEngine(t *testing.T) {
	eng := newTestEngine(t)

	expected := []string{
		"execution-class",
		"immutable-name",
		"job-command",
		"required-tags",
		"worker-capacity",
	}

	policies := eng.ListPolicies()
	if len(policies) != len(expected) {
		t.Fatalf("Expected %d built-in policies, got %d", len(expected), len(policies))
	}
	for i, name := range expected {
		if policies[i].Name != name {
			t.Errorf("Policy %d: expected %s, got %s", i, name, policies[i].Name)
		}
	}
}

func TestEvaluate_ValidJob(t *testing.T) {
	eng := newTestEngine(t)

	result, err := eng.Evaluate(context.Background(), &PolicyInput{
		Action:   engine.ActionCreate,
		Resource: validJob(),
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if !result.Allowed {
		t.Errorf("Expected job to be allowed, got violations: %v", result.Violations)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", result.Warnings)
	}
	if len(result.EvaluatedPolicies) != 5 {
		t.Errorf("Expected 5 evaluated policies, got %d", len(result.EvaluatedPolicies))
	}
}

func TestEvaluate_Violations(t *testing.T) {
	eng := newTestEngine(t)

	tests := []struct {
		name       string
		action     engine.Action
		mutate     func(job, previous map[string]interface{})
		wantPolicy string
		wantField  string
	}{
		{
			name:   "workers without type",
			action: engine.ActionCreate,
			mutate: func(job, _ map[string]interface{}) {
				delete(job, "WorkerType")
			},
			wantPolicy: "worker-capacity",
			wantField:  "WorkerType",
		},
		{
			name:   "max capacity with worker type",
			action: engine.ActionCreate,
			mutate: func(job, _ map[string]interface{}) {
				job["MaxCapacity"] = 2.0
			},
			wantPolicy: "worker-capacity",
			wantField:  "MaxCapacity",
		},
		{
			name:   "missing role",
			action: engine.ActionUpdate,
			mutate: func(job, _ map[string]interface{}) {
				delete(job, "Role")
			},
			wantPolicy: "job-command",
			wantField:  "Role",
		},
		{
			name:   "script outside s3",
			action: engine.ActionCreate,
			mutate: func(job, _ map[string]interface{}) {
				job["Command"].(map[string]interface{})["ScriptLocation"] = "/tmp/etl.py"
			},
			wantPolicy: "job-command",
			wantField:  "Command.ScriptLocation",
		},
		{
			name:   "rename on update",
			action: engine.ActionUpdate,
			mutate: func(_, previous map[string]interface{}) {
				previous["Name"] = "old-name"
			},
			wantPolicy: "immutable-name",
			wantField:  "Name",
		},
		{
			name:   "reserved tag prefix",
			action: engine.ActionCreate,
			mutate: func(job, _ map[string]interface{}) {
				job["Tags"] = map[string]interface{}{"aws:owner": "x"}
			},
			wantPolicy: "required-tags",
			wantField:  "Tags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := validJob()
			previous := validJob()
			tt.mutate(job, previous)

			result, err := eng.Evaluate(context.Background(), &PolicyInput{
				Action:        tt.action,
				Resource:      job,
				PreviousState: previous,
			})
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}

			if result.Allowed {
				t.Fatal("Expected job to be denied")
			}

			found := false
			for _, v := range result.Violations {
				if v.Policy == tt.wantPolicy && v.Field == tt.wantField {
					found = true
					if v.Severity != SeverityError {
						t.Errorf("Expected error severity, got %s", v.Severity)
					}
					if v.Resource != "nightly-etl" {
						t.Errorf("Expected resource nightly-etl, got %s", v.Resource)
					}
				}
			}
			if !found {
				t.Errorf("Expected violation %s on %s, got %v", tt.wantPolicy, tt.wantField, result.Violations)
			}
		})
	}
}

func TestEvaluate_Warnings(t *testing.T) {
	eng := newTestEngine(t)

	job := validJob()
	delete(job, "Tags")
	job["ExecutionClass"] = "FLEX"
	job["Command"].(map[string]interface{})["Name"] = "pythonshell"

	result, err := eng.Evaluate(context.Background(), &PolicyInput{
		Action:   engine.ActionCreate,
		Resource: job,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if !result.Allowed {
		t.Errorf("Warnings must not block, got violations: %v", result.Violations)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("Expected 2 warnings, got %v", result.Warnings)
	}
	for _, w := range result.Warnings {
		if w.Severity != SeverityWarning {
			t.Errorf("Expected warning severity, got %s", w.Severity)
		}
	}

	// Stack tags satisfy the tag warning.
	result, err = eng.Evaluate(context.Background(), &PolicyInput{
		Action:   engine.ActionCreate,
		Resource: job,
		Tags:     map[string]string{"stack": "prod"},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Expected 1 warning with stack tags, got %v", result.Warnings)
	}
}

func TestEvaluate_NilInput(t *testing.T) {
	eng := newTestEngine(t)
	if _, err := eng.Evaluate(context.Background(), nil); err == nil {
		t.Error("Expected error for nil input")
	}
}

func TestEnableDisablePolicy(t *testing.T) {
	eng := newTestEngine(t)

	job := validJob()
	delete(job, "Role")
	input := &PolicyInput{Action: engine.ActionCreate, Resource: job}

	if err := eng.DisablePolicy("job-command"); err != nil {
		t.Fatalf("Failed to disable policy: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !result.Allowed {
		t.Errorf("Expected allowed with job-command disabled, got %v", result.Violations)
	}

	if err := eng.EnablePolicy("job-command"); err != nil {
		t.Fatalf("Failed to enable policy: %v", err)
	}

	result, err = eng.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Allowed {
		t.Error("Expected denial with job-command enabled")
	}

	if err := eng.DisablePolicy("missing"); err == nil {
		t.Error("Expected error for unknown policy")
	}
}

func TestAddPolicies(t *testing.T) {
	eng := NewEmptyEngine(zerolog.Nop())

	err := eng.AddPolicies(context.Background(), []Policy{{
		Name:     "no-pythonshell",
		Severity: SeverityCritical,
		Enabled:  true,
		Rego: `package custom.shell

import rego.v1

deny contains msg if {
	input.resource.Command.Name == "pythonshell"
	msg := "python shell jobs are not allowed"
}`,
	}})
	if err != nil {
		t.Fatalf("AddPolicies failed: %v", err)
	}

	job := validJob()
	job["Command"].(map[string]interface{})["Name"] = "pythonshell"

	result, err := eng.Evaluate(context.Background(), &PolicyInput{Action: engine.ActionCreate, Resource: job})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if result.Allowed {
		t.Fatal("Expected denial")
	}
	if len(result.Violations) != 1 {
		t.Fatalf("Expected 1 violation, got %v", result.Violations)
	}
	v := result.Violations[0]
	if v.Message != "python shell jobs are not allowed" || v.Severity != SeverityCritical {
		t.Errorf("Unexpected violation: %+v", v)
	}
}

func TestAddPolicies_InvalidRego(t *testing.T) {
	eng := NewEmptyEngine(zerolog.Nop())

	err := eng.AddPolicies(context.Background(), []Policy{{
		Name:    "broken",
		Enabled: true,
		Rego:    "package broken\n\ndeny contains if {",
	}})
	if err == nil {
		t.Error("Expected compile error")
	}
}

func TestReloadPolicies(t *testing.T) {
	eng := newTestEngine(t)

	if err := eng.DisablePolicy("worker-capacity"); err != nil {
		t.Fatalf("Failed to disable policy: %v", err)
	}

	extra := []Policy{{
		Name:     "extra",
		Enabled:  true,
		Severity: SeverityError,
		Rego:     "package extra\n\nimport rego.v1\n\ndeny contains \"no\" if { false }",
	}}
	if err := eng.ReloadPolicies(context.Background(), extra); err != nil {
		t.Fatalf("ReloadPolicies failed: %v", err)
	}

	p, err := eng.GetPolicy("worker-capacity")
	if err != nil {
		t.Fatalf("GetPolicy failed: %v", err)
	}
	if !p.Enabled {
		t.Error("Reload should restore built-in defaults")
	}
	if _, err := eng.GetPolicy("extra"); err != nil {
		t.Errorf("Expected extra policy after reload: %v", err)
	}
	if len(eng.ListPolicies()) != 6 {
		t.Errorf("Expected 6 policies, got %d", len(eng.ListPolicies()))
	}
}

type testModel struct {
	Name string            `json:"Name,omitempty"`
	Tags map[string]string `json:"Tags,omitempty"`
}

func TestNewInput(t *testing.T) {
	req := engine.Request[testModel]{
		DesiredResourceState:      &testModel{Name: "job", Tags: map[string]string{"a": "b"}},
		DesiredResourceTags:       map[string]string{"stack": "s"},
		LogicalResourceIdentifier: "MyJob",
		Region:                    "eu-west-1",
		AWSAccountID:              "123456789012",
	}

	input, err := NewInput(engine.ActionCreate, req)
	if err != nil {
		t.Fatalf("NewInput failed: %v", err)
	}

	if input.Resource["Name"] != "job" {
		t.Errorf("Expected resource name job, got %v", input.Resource["Name"])
	}
	if input.PreviousState != nil {
		t.Errorf("Expected nil previous state, got %v", input.PreviousState)
	}
	if input.Tags["stack"] != "s" || input.LogicalID != "MyJob" {
		t.Errorf("Unexpected input: %+v", input)
	}
	if input.Context.Region != "eu-west-1" || input.Context.AccountID != "123456789012" {
		t.Errorf("Unexpected context: %+v", input.Context)
	}
}
