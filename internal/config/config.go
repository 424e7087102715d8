// Package config defines the data structures related to configuration and
// includes functions for loading and validating it.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/iwvelando/reorder-policy/pkg/constants"
	"github.com/iwvelando/reorder-policy/pkg/policy"
	"github.com/iwvelando/reorder-policy/pkg/validation"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for reorder-policy.
type Configuration struct {
	Policy  policy.Params `yaml:"policy" mapstructure:"policy"`
	Solver  SolverConfig  `yaml:"solver,omitempty" mapstructure:"solver"`
	Logging LoggingConfig `yaml:"logging,omitempty" mapstructure:"logging"`
	Output  OutputConfig  `yaml:"output,omitempty" mapstructure:"output"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv, json
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"unit":           "policy.unitCost",
	"penalty":        "policy.penaltyCost",
	"setup":          "policy.setupCost",
	"interest":       "policy.interestRate",
	"demand":         "policy.leadDemand",
	"time":           "policy.leadTime",
	"deviation":      "policy.standardDeviation",
	"tolerance":      "solver.tolerance",
	"max-iterations": "solver.maxIterations",
	"log-level":      "logging.level",
	"output-format":  "output.format",
}

// newViper returns a viper with the defaults set. withEnv enables REORDER_*
// environment overrides.
func newViper(withEnv bool) *viper.Viper {
	v := viper.New()
	defaults := policy.DefaultParams()
	v.SetDefault("policy.unitCost", defaults.UnitCost)
	v.SetDefault("policy.penaltyCost", defaults.PenaltyCost)
	v.SetDefault("policy.setupCost", defaults.SetupCost)
	v.SetDefault("policy.interestRate", defaults.InterestRate)
	v.SetDefault("policy.leadDemand", defaults.LeadDemand)
	v.SetDefault("policy.leadTime", defaults.LeadTime)
	v.SetDefault("policy.standardDeviation", defaults.StandardDeviation)
	v.SetDefault("solver.tolerance", constants.DefaultTolerance)
	v.SetDefault("solver.maxIterations", constants.DefaultMaxIterations)
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", "")

	if withEnv {
		v.SetEnvPrefix(constants.EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
	v.SetConfigType("yaml")
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Values missing from the file take their defaults and
// REORDER_* environment variables override the file.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper(true)
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationWithFlags loads like LoadConfiguration but tolerates a
// missing file when optional is set, and lets explicitly set flags override
// every other source.
func LoadConfigurationWithFlags(configPath string, optional bool, flags *pflag.FlagSet) (*Configuration, error) {
	v := newViper(true)

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !optional || !(errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)) {
				return nil, fmt.Errorf("error reading config file, %s", err)
			}
		}
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML configuration from r. Only the data
// and the defaults are consulted; the process environment is ignored.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper(false)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

// Validate returns the first error that would make a solver run meaningless.
func (c *Configuration) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			return err
		}
	}
	return validation.ValidateLogLevel(c.Logging.Level)
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	if err := c.Policy.Validate(); err != nil {
		return nil
	}
	solverConfig := c.Solver
	solverConfig.Normalize()
	warnings := validation.PolicyWarnings(c.Policy)
	return append(warnings, validation.PrecisionWarning(c.Policy, solverConfig.Tolerance)...)
}
