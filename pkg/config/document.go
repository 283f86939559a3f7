package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a desired-state document.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatCUE      Format = "cue"
	FormatStarlark Format = "starlark"
)

// FormatFromPath infers the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	case ".star", ".starlark":
		return FormatStarlark, nil
	default:
		return "", fmt.Errorf("unsupported document extension %q", filepath.Ext(path))
	}
}

// DocumentLoader normalizes desired-state documents to JSON and checks
// them against a schema.
type DocumentLoader struct {
	schemas  *SchemaRegistry
	starlark *StarlarkEvaluator
	schema   string

	// Inputs are predeclared in Starlark documents and unified into the
	// "input" field of CUE documents that declare one.
	Inputs map[string]interface{}
}

// NewDocumentLoader creates a loader validating against the built-in job
// schema.
func NewDocumentLoader() (*DocumentLoader, error) {
	schemas, err := NewSchemaRegistry()
	if err != nil {
		return nil, err
	}
	return &DocumentLoader{
		schemas:  schemas,
		starlark: NewStarlarkEvaluator(10 * time.Second),
		schema:   SchemaJob,
		Inputs:   map[string]interface{}{},
	}, nil
}

// LoadFile reads and normalizes a document file.
func (dl *DocumentLoader) LoadFile(ctx context.Context, path string) ([]byte, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}
	return dl.Load(ctx, path, format, data)
}

// Load normalizes a document to JSON and validates it. name is used in
// error positions.
func (dl *DocumentLoader) Load(ctx context.Context, name string, format Format, data []byte) ([]byte, error) {
	var (
		out []byte
		err error
	)

	switch format {
	case FormatJSON:
		if !json.Valid(data) {
			return nil, fmt.Errorf("document %s is not valid JSON", name)
		}
		out = data
	case FormatYAML:
		out, err = yamlToJSON(data)
	case FormatCUE:
		out, err = dl.cueToJSON(name, data)
	case FormatStarlark:
		out, err = dl.starlarkToJSON(ctx, name, data)
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", name, err)
	}

	if err := dl.schemas.ValidateJSON(dl.schema, out); err != nil {
		return nil, err
	}
	return out, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	return json.Marshal(doc)
}

// cueToJSON evaluates a CUE document. When the document defines a "job"
// field only that field is exported, so helper fields and definitions may
// sit alongside it.
func (dl *DocumentLoader) cueToJSON(name string, data []byte) ([]byte, error) {
	cctx := cuecontext.New()

	val := cctx.CompileBytes(data, cue.Filename(name))
	if err := val.Err(); err != nil {
		return nil, newDocumentError(err)
	}

	if val.LookupPath(cue.ParsePath("input")).Exists() {
		val = val.FillPath(cue.ParsePath("input"), cctx.Encode(dl.Inputs))
	}

	if job := val.LookupPath(cue.ParsePath(DocumentGlobal)); job.Exists() {
		val = job
	}

	if err := val.Validate(cue.Concrete(true)); err != nil {
		return nil, newDocumentError(err)
	}

	return val.MarshalJSON()
}

func (dl *DocumentLoader) starlarkToJSON(ctx context.Context, name string, data []byte) ([]byte, error) {
	result, err := dl.starlark.Evaluate(ctx, name, string(data), dl.Inputs)
	if err != nil {
		return nil, err
	}

	job, ok := result.Output[DocumentGlobal]
	if !ok {
		return nil, fmt.Errorf("starlark document must assign %q", DocumentGlobal)
	}
	if _, ok := job.(map[string]interface{}); !ok {
		return nil, fmt.Errorf("starlark global %q must be a dict, got %T", DocumentGlobal, job)
	}
	return json.Marshal(job)
}
