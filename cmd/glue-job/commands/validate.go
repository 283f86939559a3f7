package commands

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/gluejob/pkg/engine"
	"github.com/openfroyo/gluejob/pkg/policy"
	"github.com/openfroyo/gluejob/pkg/providers/gluejob"
)

type validationReport struct {
	Document string               `json:"document"`
	Valid    bool                 `json:"valid"`
	Error    string               `json:"error,omitempty"`
	Policy   *policy.PolicyResult `json:"policy,omitempty"`
	Model    *gluejob.Model       `json:"model,omitempty"`
}

func newValidateCommand() *cobra.Command {
	var (
		actionName string
		inputs     map[string]string
	)

	cmd := &cobra.Command{
		Use:   "validate document...",
		Short: "Validate job documents",
		Long: `Validate job documents without calling AWS.

This command checks:
  - Document syntax (JSON, YAML, CUE or Starlark)
  - Conformance to the job schema
  - Model field constraints
  - Policy compliance (OPA/rego)`,
		Example: `  # Validate a document as a create request
  glue-job validate job.yaml

  # Validate several documents as update requests
  glue-job validate --action update jobs/*.cue`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			action := engine.Action(strings.ToUpper(actionName))
			if err := action.Validate(); err != nil {
				return err
			}

			a, err := newApp(ctx, appOptions{policies: true})
			if err != nil {
				return err
			}
			defer a.Close()

			reports := make([]validationReport, 0, len(args))
			invalid := 0
			for _, path := range args {
				report := validationReport{Document: path, Valid: true}

				model, err := readModel(ctx, path, inputs)
				if err != nil {
					report.Valid = false
					report.Error = err.Error()
				} else {
					report.Model = model
					if a.policies != nil {
						result, err := a.evaluate(ctx, action, gluejob.Request{
							DesiredResourceState: model,
							Region:               a.cfg.AWS.Region,
							AWSAccountID:         a.cfg.AWS.AccountID,
						}, true)
						if err != nil {
							return err
						}
						report.Policy = result
						report.Valid = result.Allowed
					}
				}

				if !report.Valid {
					invalid++
				}
				log.Debug().Str("document", path).Bool("valid", report.Valid).Msg("Document validated")
				reports = append(reports, report)
			}

			if jsonOutput {
				if err := printJSON(reports); err != nil {
					return err
				}
			} else {
				printReports(reports)
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d documents are invalid", invalid, len(reports))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&actionName, "action", "create", "action the documents are validated for")
	cmd.Flags().StringToStringVar(&inputs, "input", nil, "input value for CUE and Starlark documents (repeatable)")

	return cmd
}

func printReports(reports []validationReport) {
	for _, r := range reports {
		if r.Valid {
			fmt.Fprintf(stdout, "ok    %s\n", r.Document)
		} else {
			fmt.Fprintf(stdout, "FAIL  %s\n", r.Document)
		}
		if r.Error != "" {
			fmt.Fprintf(stdout, "      %s\n", r.Error)
		}
		if r.Policy == nil {
			continue
		}
		for _, v := range r.Policy.Violations {
			fmt.Fprintf(stdout, "      %s: %s\n", v.Severity, v)
		}
		for _, w := range r.Policy.Warnings {
			fmt.Fprintf(stdout, "      %s: %s\n", w.Severity, w)
		}
	}
}
