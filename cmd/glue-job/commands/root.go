package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openfroyo/gluejob/pkg/engine"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "glue-job",
		Short: "Lifecycle handler for AWS Glue jobs",
		Long: `glue-job creates, reads, updates, deletes and lists AWS Glue jobs.

Each request runs as a resumable workflow. A workflow invocation either
finishes or hands back a callback context together with a delay, and the
next invocation resumes from that context.

Commands:
  invoke    answer single invocations read as JSON lines from stdin
  drive     run a workflow to completion on this host
  validate  check a job document against the schema and policies
  history   inspect recorded workflows and invocations
  state     inspect the last known state of each job`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			if !cmd.Flags().Changed("json") && !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				jsonOutput = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format (default when stdout is not a terminal)")

	rootCmd.AddCommand(newInvokeCommand())
	rootCmd.AddCommand(newDriveCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newStateCommand())

	return rootCmd
}

// workflowFailedError reports a workflow that ended with a FAILED event.
type workflowFailedError struct {
	workflowID string
	code       engine.HandlerErrorCode
	message    string
}

func (e *workflowFailedError) Error() string {
	return fmt.Sprintf("workflow %s failed: %s: %s", e.workflowID, e.code, e.message)
}

// ExitCode maps a command error to the process exit status:
// 2 for a failed workflow, 3 for a policy rejection, 1 otherwise.
func ExitCode(err error) int {
	var failed *workflowFailedError
	if errors.As(err, &failed) {
		return 2
	}
	var ee *engine.EngineError
	if errors.As(err, &ee) && ee.Code == engine.ErrCodePolicyViolation {
		return 3
	}
	return 1
}
