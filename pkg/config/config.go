package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/gluejob/pkg/telemetry"
)

// Config is the runtime configuration of the glue-job host.
type Config struct {
	AWS       AWSConfig        `yaml:"aws"`
	Store     StoreConfig      `yaml:"store"`
	Runner    RunnerConfig     `yaml:"runner"`
	Policy    PolicyConfig     `yaml:"policy"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// AWSConfig selects the account and endpoint handlers talk to.
type AWSConfig struct {
	Region      string `yaml:"region" validate:"required"`
	AccountID   string `yaml:"account_id" validate:"omitempty,len=12,numeric"`
	Profile     string `yaml:"profile"`
	Endpoint    string `yaml:"endpoint" validate:"omitempty,url"`
	MaxAttempts int    `yaml:"max_attempts" validate:"gte=0,lte=20"`
}

// StoreConfig locates the workflow history database.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// RunnerConfig bounds driven workflows.
type RunnerConfig struct {
	MaxInvocations    int           `yaml:"max_invocations" validate:"gte=1"`
	InvocationTimeout time.Duration `yaml:"invocation_timeout" validate:"gte=0"`
}

// PolicyConfig selects the Rego policies evaluated before a workflow.
type PolicyConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Paths    []string `yaml:"paths"`
	Builtins bool     `yaml:"builtins"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    "gluejob.db",
		},
		Runner: RunnerConfig{
			MaxInvocations:    50,
			InvocationTimeout: 5 * time.Minute,
		},
		Policy: PolicyConfig{
			Enabled:  true,
			Builtins: true,
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// Load reads a YAML configuration file over the defaults. Environment
// variables in the file are expanded. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid telemetry config: %w", err)
	}
	return nil
}
