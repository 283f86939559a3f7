package commands

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/gluejob/pkg/protocol"
)

func newInvokeCommand() *cobra.Command {
	var (
		watchPolicies bool
		metrics       bool
	)

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Answer invocations read from stdin",
		Long: `Read INVOKE messages as JSON lines from stdin and answer each with a
RESULT or ERROR message on stdout.

Every invocation runs the handler exactly once. An IN_PROGRESS result carries
the callback context and delay for the next invocation; sending it is up to
the caller. Create and update requests without a callback context are
checked against the policies first.`,
		Example: `  # Answer one create invocation
  echo '{"type":"INVOKE","timestamp":"2024-01-01T00:00:00Z","data":{"id":"1","action":"CREATE","request":{...}}}' | glue-job invoke

  # Serve a long running session and reload policies on change
  glue-job invoke --config glue-job.yaml --watch-policies`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, appOptions{provider: true, store: true, policies: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if metrics {
				a.tel.StartMetricsServer()
			}

			if watchPolicies && a.policies != nil && len(a.cfg.Policy.Paths) > 0 {
				loader, err := a.policies.Watch(ctx, a.cfg.Policy.Paths)
				if err != nil {
					return err
				}
				defer func() { _ = loader.StopWatching() }()
			}

			log.Debug().Msg("Waiting for invocations on stdin")
			return a.runner.Serve(ctx, protocol.NewDecoder(os.Stdin), protocol.NewEncoder(os.Stdout))
		},
	}

	cmd.Flags().BoolVar(&watchPolicies, "watch-policies", false, "reload policy files when they change")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "serve Prometheus metrics while running")

	return cmd
}
