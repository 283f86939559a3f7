package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/gluejob/pkg/providers/gluejob"
	"github.com/openfroyo/gluejob/pkg/stores"
)

func newStateCommand() *cobra.Command {
	var (
		forget bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "state [name]",
		Short: "Show the last known state of jobs",
		Long: `Show the job models recorded by successful workflows.

The state of a job is what drive uses as the previous model of an update.
--forget drops the recorded state without touching the job in AWS.`,
		Example: `  # All recorded jobs
  glue-job state

  # One job
  glue-job state nightly-etl

  # Forget a job that was deleted outside this tool
  glue-job state nightly-etl --forget`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, appOptions{store: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if a.store == nil {
				return errors.New("the history store is disabled in the configuration")
			}

			if len(args) == 0 {
				if forget {
					return errors.New("--forget needs a job name")
				}
				return listStates(ctx, a.store, limit)
			}

			if forget {
				if err := a.store.DeleteResourceState(ctx, gluejob.ResourceType, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Forgot state of %s\n", args[0])
				return nil
			}
			return showState(ctx, a.store, args[0])
		},
	}

	cmd.Flags().BoolVar(&forget, "forget", false, "drop the recorded state")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of jobs")

	return cmd
}

func listStates(ctx context.Context, store stores.Store, limit int) error {
	states, err := store.ListResourceStates(ctx, limit, 0)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(states)
	}

	w := newTable()
	fmt.Fprintln(w, "JOB\tTYPE\tLAST APPLIED\tHASH\tWORKFLOW")
	for _, s := range states {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.Identifier, s.ResourceType, s.LastApplied.Local().Format(time.DateTime),
			s.Hash[:min(12, len(s.Hash))], s.LastWorkflowID)
	}
	return w.Flush()
}

func showState(ctx context.Context, store stores.Store, name string) error {
	state, err := store.GetResourceState(ctx, gluejob.ResourceType, name)
	if err != nil {
		return err
	}

	var model gluejob.Model
	if err := json.Unmarshal([]byte(state.State), &model); err != nil {
		return fmt.Errorf("failed to decode recorded state of %s: %w", name, err)
	}
	return printJSON(map[string]interface{}{
		"job":            name,
		"lastApplied":    state.LastApplied,
		"lastWorkflowId": state.LastWorkflowID,
		"hash":           state.Hash,
		"model":          model,
	})
}
