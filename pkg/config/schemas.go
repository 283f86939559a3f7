package config

import (
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaJob names the built-in schema of a Glue job document.
const SchemaJob = "job"

// SchemaRegistry manages CUE schemas desired-state documents are checked
// against.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

type builtinSchema struct {
	name, source, path string
}

var builtinSchemas = []builtinSchema{
	{name: SchemaJob, source: builtinJobSchema, path: "#Job"},
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() (*SchemaRegistry, error) {
	return newSchemaRegistry(builtinSchemas)
}

func newSchemaRegistry(builtins []builtinSchema) (*SchemaRegistry, error) {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}

	for _, b := range builtins {
		if err := sr.RegisterSchema(b.name, b.source, b.path); err != nil {
			return nil, fmt.Errorf("failed to load built-in schemas: %w", err)
		}
	}

	return sr, nil
}

// RegisterSchema compiles a CUE source and registers the definition at
// path under name.
func (sr *SchemaRegistry) RegisterSchema(name, source, path string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(source, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	def := val.LookupPath(cue.ParsePath(path))
	if !def.Exists() {
		return fmt.Errorf("schema %s has no definition %s", name, path)
	}

	sr.schemas[name] = def
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateJSON checks a JSON document against a named schema.
func (sr *SchemaRegistry) ValidateJSON(schemaName string, data []byte) error {
	// cue.Context is not safe for concurrent use.
	sr.mu.Lock()
	defer sr.mu.Unlock()

	schema, ok := sr.schemas[schemaName]
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	doc := sr.ctx.CompileBytes(data, cue.Filename("document.json"))
	if err := doc.Err(); err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	if err := schema.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return newDocumentError(err)
	}

	return nil
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const builtinJobSchema = `
import "strings"

// Desired state of an AWS::Glue::Job.
#Job: {
	Name?:        string & =~"^[\\w\\-.]{1,255}$"
	Description?: string & strings.MaxRunes(2048)
	LogUri?:      string
	Role?:        string & !=""

	Command?: {
		Name?:           string
		PythonVersion?:  "2" | "3" | "3.9"
		Runtime?:        string
		ScriptLocation?: string
	}

	ExecutionProperty?: {
		MaxConcurrentRuns?: number & >=0
	}
	NotificationProperty?: {
		NotifyDelayAfter?: int & >=1
	}
	Connections?: {
		Connections?: [...string]
	}

	DefaultArguments?: [string]: string
	NonOverridableArguments?: [string]: string

	MaxRetries?:        number & >=0
	AllocatedCapacity?: number & >=0
	Timeout?:           int & >=1
	MaxCapacity?:       number & >=0
	NumberOfWorkers?:   int & >=1

	SecurityConfiguration?: string
	GlueVersion?:           string
	WorkerType?:            "Standard" | "G.1X" | "G.2X" | "G.025X" | "G.4X" | "G.8X" | "Z.2X"
	ExecutionClass?:        "FLEX" | "STANDARD"
	MaintenanceWindow?:     string

	Tags?: [string]: string
}
`
