package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/openfroyo/gluejob/pkg/config"
	"github.com/openfroyo/gluejob/pkg/providers/gluejob"
)

// readModel loads a job document in any supported format. A path of "-"
// reads JSON from stdin. Inputs are exposed to CUE and Starlark documents.
func readModel(ctx context.Context, path string, inputs map[string]string) (*gluejob.Model, error) {
	loader, err := config.NewDocumentLoader()
	if err != nil {
		return nil, err
	}
	if len(inputs) > 0 {
		loader.Inputs = make(map[string]interface{}, len(inputs))
		for k, v := range inputs {
			loader.Inputs[k] = v
		}
	}

	var data []byte
	if path == "-" {
		raw, readErr := io.ReadAll(os.Stdin)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", readErr)
		}
		data, err = loader.Load(ctx, "stdin", config.FormatJSON, raw)
	} else {
		data, err = loader.LoadFile(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	var model gluejob.Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to decode job document: %w", err)
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return &model, nil
}

// stdout receives command output.
var stdout io.Writer = os.Stdout

func printJSON(v interface{}) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
