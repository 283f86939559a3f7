package config

import (
	"errors"
	"strings"
	"testing"
)

func newTestRegistry(t *testing.T) *SchemaRegistry {
	t.Helper()
	sr, err := NewSchemaRegistry()
	if err != nil {
		t.Fatalf("NewSchemaRegistry() error = %v", err)
	}
	return sr
}

func TestSchemaRegistry_BuiltInSchemas(t *testing.T) {
	sr := newTestRegistry(t)

	if _, ok := sr.GetSchema(SchemaJob); !ok {
		t.Fatal("expected built-in job schema")
	}
	if got := sr.ListSchemas(); len(got) != 1 || got[0] != SchemaJob {
		t.Errorf("unexpected schemas: %v", got)
	}
}

func TestSchemaRegistry_ValidateJob(t *testing.T) {
	sr := newTestRegistry(t)

	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "complete job",
			doc: `{
				"Name": "nightly-etl",
				"Role": "etl-role",
				"Command": {"Name": "glueetl", "ScriptLocation": "s3://bucket/etl.py", "PythonVersion": "3"},
				"MaxRetries": 1,
				"NumberOfWorkers": 10,
				"WorkerType": "G.1X",
				"ExecutionClass": "FLEX",
				"DefaultArguments": {"--job-language": "python"},
				"Tags": {"team": "data"}
			}`,
		},
		{
			name: "empty document",
			doc:  `{}`,
		},
		{
			name:    "unknown field",
			doc:     `{"Name": "a", "Nmae": "b"}`,
			wantErr: "Nmae",
		},
		{
			name:    "bad execution class",
			doc:     `{"ExecutionClass": "CHEAP"}`,
			wantErr: "ExecutionClass",
		},
		{
			name:    "non integer workers",
			doc:     `{"NumberOfWorkers": 2.5}`,
			wantErr: "NumberOfWorkers",
		},
		{
			name:    "negative retries",
			doc:     `{"MaxRetries": -1}`,
			wantErr: "MaxRetries",
		},
		{
			name:    "name with spaces",
			doc:     `{"Name": "nightly etl"}`,
			wantErr: "Name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sr.ValidateJSON(SchemaJob, []byte(tt.doc))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			var de *DocumentError
			if !errors.As(err, &de) {
				t.Fatalf("expected DocumentError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestSchemaRegistry_RegisterSchema(t *testing.T) {
	sr := newTestRegistry(t)

	if err := sr.RegisterSchema("small", `#Small: {Name: string}`, "#Small"); err != nil {
		t.Fatalf("failed to register schema: %v", err)
	}
	if err := sr.ValidateJSON("small", []byte(`{"Name": "x"}`)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := sr.ValidateJSON("small", []byte(`{}`)); err == nil {
		t.Error("expected error for missing required field")
	}
}

func TestSchemaRegistry_InvalidSchema(t *testing.T) {
	sr := newTestRegistry(t)

	if err := sr.RegisterSchema("broken", `#Broken: {`, "#Broken"); err == nil {
		t.Error("expected compile error")
	}
	if err := sr.RegisterSchema("missing", `#Other: {}`, "#Missing"); err == nil {
		t.Error("expected error for missing definition")
	}
	if err := sr.ValidateJSON("nope", []byte(`{}`)); err == nil {
		t.Error("expected error for unknown schema")
	}
}

func TestSchemaRegistry_BrokenBuiltin(t *testing.T) {
	tests := []struct {
		name    string
		builtin builtinSchema
	}{
		{"does not compile", builtinSchema{name: "broken", source: `#Broken: {`, path: "#Broken"}},
		{"missing definition", builtinSchema{name: "other", source: `#Other: {}`, path: "#Missing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr, err := newSchemaRegistry([]builtinSchema{builtinSchemas[0], tt.builtin})
			if err == nil {
				t.Fatal("expected error for broken built-in schema")
			}
			if sr != nil {
				t.Error("expected no registry on error")
			}
			if !strings.Contains(err.Error(), tt.builtin.name) {
				t.Errorf("error %q does not name schema %q", err, tt.builtin.name)
			}
		})
	}
}
