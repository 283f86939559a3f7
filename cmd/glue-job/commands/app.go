package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openfroyo/gluejob/pkg/config"
	"github.com/openfroyo/gluejob/pkg/engine"
	"github.com/openfroyo/gluejob/pkg/policy"
	"github.com/openfroyo/gluejob/pkg/protocol"
	"github.com/openfroyo/gluejob/pkg/providers/gluejob"
	"github.com/openfroyo/gluejob/pkg/runner"
	"github.com/openfroyo/gluejob/pkg/stores"
	"github.com/openfroyo/gluejob/pkg/telemetry"
)

// Replaced in tests.
var (
	newGlueAPI = func(ctx context.Context, cfg gluejob.ClientConfig) (gluejob.API, error) {
		return gluejob.NewAPI(ctx, cfg)
	}
	runnerSleep runner.SleepFunc
)

// jobRunner drives Glue job workflows.
type jobRunner = runner.Runner[gluejob.Model, gluejob.CallbackContext]

// app holds the components a command needs. Components a command does not
// ask for stay nil.
type app struct {
	cfg      *config.Config
	tel      *telemetry.Telemetry
	store    *stores.SQLiteStore
	policies *policy.Engine
	runner   *jobRunner
	remote   *protocol.Client[gluejob.Model, gluejob.CallbackContext]
}

type appOptions struct {
	// provider builds the Glue client and the runner.
	provider bool

	// store opens the history store when the configuration enables it.
	store bool

	// policies builds the policy engine when the configuration enables it.
	policies bool

	// handlerCommand, when set, runs the handler in a child process
	// instead of calling Glue from this one.
	handlerCommand []string
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a := &app{cfg: cfg, tel: tel}

	if opts.store && cfg.Store.Enabled {
		if err := a.openStore(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	if opts.policies && cfg.Policy.Enabled {
		if err := a.loadPolicies(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	if opts.provider {
		if err := a.buildRunner(ctx, opts.handlerCommand); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	store, err := stores.NewSQLiteStore(stores.Config{Path: a.cfg.Store.Path})
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to open store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to migrate store: %w", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("store is not healthy: %w", err)
	}
	a.store = store
	return nil
}

func (a *app) loadPolicies(ctx context.Context) error {
	logger := a.tel.Logger.Zerolog()

	if a.cfg.Policy.Builtins {
		eng, err := policy.NewEngine(logger)
		if err != nil {
			return fmt.Errorf("failed to create policy engine: %w", err)
		}
		a.policies = eng
	} else {
		a.policies = policy.NewEmptyEngine(logger)
	}

	if len(a.cfg.Policy.Paths) > 0 {
		if err := a.policies.LoadPolicies(ctx, a.cfg.Policy.Paths); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) buildRunner(ctx context.Context, handlerCommand []string) error {
	resolve, err := a.resolver(ctx, handlerCommand)
	if err != nil {
		return err
	}

	opts := runner.Options[gluejob.Model]{
		ResourceType:      gluejob.ResourceType,
		MaxInvocations:    a.cfg.Runner.MaxInvocations,
		InvocationTimeout: a.cfg.Runner.InvocationTimeout,
		Identify: func(m *gluejob.Model) string {
			if m == nil {
				return ""
			}
			return m.Name
		},
	}
	if a.policies != nil {
		opts.Preflight = a.preflight
	}

	// A nil *SQLiteStore must not become a non-nil interface.
	var store stores.Store
	if a.store != nil {
		store = a.store
	}
	a.runner = runner.New(resolve, store, a.tel, opts)
	if runnerSleep != nil {
		a.runner.WithSleep(runnerSleep)
	}
	return nil
}

func (a *app) resolver(ctx context.Context, handlerCommand []string) (runner.Resolver[gluejob.Model, gluejob.CallbackContext], error) {
	if len(handlerCommand) > 0 {
		client, err := protocol.StartClient[gluejob.Model, gluejob.CallbackContext](ctx, handlerCommand[0], handlerCommand[1:]...)
		if err != nil {
			return nil, err
		}
		a.remote = client
		log.Debug().Strs("command", handlerCommand).Msg("Started handler process")
		return client.For, nil
	}

	client, err := newGlueAPI(ctx, gluejob.ClientConfig{
		Region:      a.cfg.AWS.Region,
		Profile:     a.cfg.AWS.Profile,
		Endpoint:    a.cfg.AWS.Endpoint,
		MaxAttempts: a.cfg.AWS.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	api := gluejob.NewInstrumentedAPI(client, a.tel.Metrics, a.tel.Tracer)
	return gluejob.NewHandler(api, a.tel.Logger.Zerolog()).For, nil
}

// preflight evaluates the policies for create and update requests.
func (a *app) preflight(ctx context.Context, action engine.Action, req gluejob.Request) error {
	if action != engine.ActionCreate && action != engine.ActionUpdate {
		return nil
	}

	result, err := a.evaluate(ctx, action, req, false)
	if err != nil {
		return engine.NewPermanentError("policy evaluation failed", err).
			WithAction(action).WithCode(engine.ErrCodePolicyViolation)
	}
	if result.Allowed {
		return nil
	}

	msgs := make([]string, 0, len(result.Violations))
	for _, v := range result.Violations {
		if v.Severity.Blocking() {
			msgs = append(msgs, v.String())
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func (a *app) evaluate(ctx context.Context, action engine.Action, req gluejob.Request, dryRun bool) (*policy.PolicyResult, error) {
	input, err := policy.NewInput(action, req)
	if err != nil {
		return nil, err
	}
	input.Context.DryRun = dryRun

	result, err := a.policies.Evaluate(ctx, input)
	if err != nil {
		return nil, err
	}
	for _, w := range result.Warnings {
		a.tel.Logger.WithFields(map[string]interface{}{
			"policy":   w.Policy,
			"resource": w.Resource,
			"field":    w.Field,
		}).Warn(w.Message)
	}
	return result, nil
}

// Close stops the handler process, releases the store and flushes
// telemetry.
func (a *app) Close() {
	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			log.Warn().Err(err).Msg("Handler process did not exit cleanly")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close store")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down telemetry")
	}
}
