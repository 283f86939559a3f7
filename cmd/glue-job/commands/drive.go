package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/gluejob/pkg/engine"
	"github.com/openfroyo/gluejob/pkg/providers/gluejob"
	"github.com/openfroyo/gluejob/pkg/runner"
	"github.com/openfroyo/gluejob/pkg/stores"
)

type driveOptions struct {
	name      string
	logicalID string
	token     string
	stackID   string
	nextToken string
	tags      map[string]string
	inputs    map[string]string
	exec      string
}

func newDriveCommand() *cobra.Command {
	var opts driveOptions

	cmd := &cobra.Command{
		Use:   "drive ACTION [document]",
		Short: "Run a workflow to completion",
		Long: `Run one CREATE, READ, UPDATE, DELETE or LIST workflow against AWS Glue,
re-invoking the handler with its callback context until it finishes.

The job document may be JSON, YAML, CUE or Starlark and is checked against
the job schema. READ and DELETE only need a name, which --name supplies
without a document. UPDATE uses the last recorded state of the job as the
previous state. Create and update requests are checked against the
policies before the first invocation.

With --exec the handler runs in a separate process that answers
invocations on stdin and stdout, such as "glue-job invoke" on another
configuration. Policies, history and retries stay in this process.

Exit status is 2 when the workflow fails and 3 when a policy rejects it.`,
		Example: `  # Create a job from a YAML document
  glue-job drive create job.yaml --tag team=data

  # Create a job whose name is synthesized from a logical id
  glue-job drive create job.cue --logical-id NightlyEtl

  # Delete a job by name
  glue-job drive delete --name nightly-etl

  # Drive a handler process with a different configuration
  glue-job drive read --name nightly-etl --exec "glue-job invoke --config staging.yaml"

  # List jobs, one page at a time
  glue-job drive list --next-token "$TOKEN"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := engine.Action(strings.ToUpper(args[0]))
			if err := action.Validate(); err != nil {
				return err
			}
			document := ""
			if len(args) > 1 {
				document = args[1]
			}
			return runDrive(cmd.Context(), action, document, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "job name, overrides the document")
	cmd.Flags().StringVar(&opts.logicalID, "logical-id", "", "logical identifier used to synthesize a missing name")
	cmd.Flags().StringVar(&opts.token, "token", "", "client request token (default: random)")
	cmd.Flags().StringVar(&opts.stackID, "stack-id", "", "owning stack identifier")
	cmd.Flags().StringVar(&opts.nextToken, "next-token", "", "pagination token for LIST")
	cmd.Flags().StringToStringVar(&opts.tags, "tag", nil, "stack level tag key=value (repeatable)")
	cmd.Flags().StringToStringVar(&opts.inputs, "input", nil, "input value for CUE and Starlark documents (repeatable)")
	cmd.Flags().StringVar(&opts.exec, "exec", "", "command line of a handler process to invoke instead of AWS Glue")

	return cmd
}

func runDrive(ctx context.Context, action engine.Action, document string, opts driveOptions) error {
	a, err := newApp(ctx, appOptions{provider: true, store: true, policies: true, handlerCommand: strings.Fields(opts.exec)})
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := a.buildRequest(ctx, action, document, opts)
	if err != nil {
		return err
	}

	outcome, err := a.runner.Drive(ctx, action, req)
	if err != nil {
		return err
	}

	if err := printOutcome(outcome); err != nil {
		return err
	}
	if outcome.Event.IsFailed() {
		return &workflowFailedError{
			workflowID: outcome.WorkflowID,
			code:       outcome.Event.ErrorCode,
			message:    outcome.Event.Message,
		}
	}
	return nil
}

// buildRequest assembles the request of one workflow from the document,
// the flags and the recorded state.
func (a *app) buildRequest(ctx context.Context, action engine.Action, document string, opts driveOptions) (gluejob.Request, error) {
	req := gluejob.Request{
		DesiredResourceTags:       opts.tags,
		LogicalResourceIdentifier: opts.logicalID,
		ClientRequestToken:        opts.token,
		StackID:                   opts.stackID,
		Region:                    a.cfg.AWS.Region,
		AWSAccountID:              a.cfg.AWS.AccountID,
		NextToken:                 opts.nextToken,
	}
	if req.ClientRequestToken == "" {
		req.ClientRequestToken = uuid.New().String()
	}
	if req.AWSAccountID == "" && action != engine.ActionList {
		log.Warn().Msg("aws.account_id is not configured; job ARNs for tagging cannot be built")
	}

	var model *gluejob.Model
	switch {
	case document != "":
		m, err := readModel(ctx, document, opts.inputs)
		if err != nil {
			return req, err
		}
		model = m
	case action != engine.ActionList:
		model = &gluejob.Model{}
	}
	if model != nil && opts.name != "" {
		model.Name = opts.name
	}
	req.DesiredResourceState = model

	if action == engine.ActionUpdate && model != nil && model.Name != "" {
		if err := a.loadPrevious(ctx, &req); err != nil {
			return req, err
		}
	}

	return req, nil
}

// loadPrevious fills the previous model from the recorded resource state
// and the previous stack tags from the workflow that recorded it.
func (a *app) loadPrevious(ctx context.Context, req *gluejob.Request) error {
	if a.store == nil {
		return nil
	}
	name := req.DesiredResourceState.Name

	state, err := a.store.GetResourceState(ctx, gluejob.ResourceType, name)
	if errors.Is(err, stores.ErrNotFound) {
		log.Warn().Str("name", name).Msg("No recorded state; updating without a previous model")
		return nil
	}
	if err != nil {
		return err
	}

	var previous gluejob.Model
	if err := json.Unmarshal([]byte(state.State), &previous); err != nil {
		return fmt.Errorf("failed to decode recorded state of %s: %w", name, err)
	}
	req.PreviousResourceState = &previous

	wf, err := a.store.GetWorkflow(ctx, state.LastWorkflowID)
	if errors.Is(err, stores.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var last gluejob.Request
	if err := json.Unmarshal([]byte(wf.Request), &last); err != nil {
		return fmt.Errorf("failed to decode request of workflow %s: %w", wf.ID, err)
	}
	req.PreviousResourceTags = last.DesiredResourceTags
	return nil
}

func printOutcome(outcome *runner.Outcome[gluejob.Model, gluejob.CallbackContext]) error {
	if jsonOutput {
		return printJSON(map[string]interface{}{
			"workflowId":  outcome.WorkflowID,
			"invocations": outcome.Invocations,
			"event":       outcome.Event,
		})
	}

	ev := outcome.Event
	w := newTable()
	fmt.Fprintf(w, "Workflow:\t%s\n", outcome.WorkflowID)
	fmt.Fprintf(w, "Status:\t%s\n", ev.Status)
	fmt.Fprintf(w, "Invocations:\t%d\n", outcome.Invocations)
	if ev.ErrorCode != "" {
		fmt.Fprintf(w, "Error code:\t%s\n", ev.ErrorCode)
	}
	if ev.Message != "" {
		fmt.Fprintf(w, "Message:\t%s\n", ev.Message)
	}
	if ev.ResourceModel != nil && ev.ResourceModel.Name != "" {
		fmt.Fprintf(w, "Job:\t%s\n", ev.ResourceModel.Name)
	}
	for i := range ev.ResourceModels {
		fmt.Fprintf(w, "Job:\t%s\n", ev.ResourceModels[i].Name)
	}
	if ev.NextToken != "" {
		fmt.Fprintf(w, "Next token:\t%s\n", ev.NextToken)
	}
	return w.Flush()
}
