package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/gluejob/pkg/stores"
)

type historyOptions struct {
	action string
	status string
	name   string
	limit  int
	offset int
	delete bool
}

func newHistoryCommand() *cobra.Command {
	var opts historyOptions

	cmd := &cobra.Command{
		Use:   "history [workflow-id]",
		Short: "Show recorded workflows",
		Long: `Show the workflows recorded by drive and invoke, newest first.

With a workflow id, show that workflow with every invocation and event.`,
		Example: `  # Failed workflows of one job
  glue-job history --name nightly-etl --status failed

  # One workflow in detail
  glue-job history 5f0c6a1e-8d4b-4c1e-9a63-2f1d4b8e7a10

  # Forget a workflow
  glue-job history 5f0c6a1e-8d4b-4c1e-9a63-2f1d4b8e7a10 --delete`,
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

			if len(args) == 1 {
				if opts.delete {
					if err := a.store.DeleteWorkflow(ctx, args[0]); err != nil {
						return err
					}
					fmt.Fprintf(stdout, "Deleted workflow %s\n", args[0])
					return nil
				}
				return showWorkflow(ctx, a.store, args[0])
			}
			if opts.delete {
				return errors.New("--delete needs a workflow id")
			}
			return listWorkflows(ctx, a.store, opts)
		},
	}

	cmd.Flags().StringVar(&opts.action, "action", "", "filter by action")
	cmd.Flags().StringVar(&opts.status, "status", "", "filter by status (running, succeeded, failed, exhausted, cancelled)")
	cmd.Flags().StringVar(&opts.name, "name", "", "filter by job name")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "maximum number of workflows")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "number of workflows to skip")
	cmd.Flags().BoolVar(&opts.delete, "delete", false, "delete the workflow with its invocations and events")

	return cmd
}

func listWorkflows(ctx context.Context, store stores.Store, opts historyOptions) error {
	var filter stores.WorkflowFilter
	if opts.action != "" {
		action := strings.ToUpper(opts.action)
		filter.Action = &action
	}
	if opts.status != "" {
		status := stores.WorkflowStatus(strings.ToLower(opts.status))
		filter.Status = &status
	}
	if opts.name != "" {
		filter.Identifier = &opts.name
	}

	workflows, err := store.ListWorkflows(ctx, filter, opts.limit, opts.offset)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(workflows)
	}

	w := newTable()
	fmt.Fprintln(w, "ID\tACTION\tJOB\tSTATUS\tINVOCATIONS\tSTARTED\tERROR")
	for _, wf := range workflows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			wf.ID, wf.Action, wf.Identifier, wf.Status, wf.Invocations,
			wf.StartedAt.Local().Format(time.DateTime), deref(wf.ErrorCode))
	}
	return w.Flush()
}

func showWorkflow(ctx context.Context, store stores.Store, id string) error {
	wf, err := store.GetWorkflow(ctx, id)
	if err != nil {
		return err
	}
	invocations, err := store.ListInvocations(ctx, id)
	if err != nil {
		return err
	}
	events, err := store.GetEvents(ctx, &id, nil, 1000, 0)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]interface{}{
			"workflow":    wf,
			"invocations": invocations,
			"events":      events,
		})
	}

	w := newTable()
	fmt.Fprintf(w, "Workflow:\t%s\n", wf.ID)
	fmt.Fprintf(w, "Action:\t%s\n", wf.Action)
	fmt.Fprintf(w, "Job:\t%s\n", wf.Identifier)
	fmt.Fprintf(w, "Status:\t%s\n", wf.Status)
	fmt.Fprintf(w, "Started:\t%s\n", wf.StartedAt.Local().Format(time.DateTime))
	if wf.CompletedAt != nil {
		fmt.Fprintf(w, "Completed:\t%s\n", wf.CompletedAt.Local().Format(time.DateTime))
	}
	if wf.Message != nil {
		fmt.Fprintf(w, "Message:\t%s\n", *wf.Message)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(stdout)
	w = newTable()
	fmt.Fprintln(w, "ATTEMPT\tSTATUS\tERROR\tDELAY\tDURATION\tCALLBACK CONTEXT")
	for _, inv := range invocations {
		fmt.Fprintf(w, "%d\t%s\t%s\t%ds\t%dms\t%s\n",
			inv.Attempt, inv.Status, deref(inv.ErrorCode), inv.CallbackDelaySeconds,
			inv.DurationMs, deref(inv.CallbackContext))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}
	fmt.Fprintln(stdout)
	w = newTable()
	fmt.Fprintln(w, "TIME\tLEVEL\tMESSAGE")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ev.Timestamp.Local().Format(time.DateTime), ev.Level, ev.Message)
	}
	return w.Flush()
}
