package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/iwvelando/reorder-policy/internal/config"
	"github.com/iwvelando/reorder-policy/internal/logging"
	"github.com/iwvelando/reorder-policy/internal/solver"
	"github.com/iwvelando/reorder-policy/pkg/constants"
	"github.com/iwvelando/reorder-policy/pkg/normal"
	"github.com/iwvelando/reorder-policy/pkg/output"
	"github.com/iwvelando/reorder-policy/pkg/validation"
	"github.com/iwvelando/reorder-policy/pkg/ztable"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("reorder-policy", pflag.ContinueOnError)
	flags.StringP("config", "c", constants.DefaultConfigFile, "path to configuration file (optional)")

	flags.Float64P("unit", "u", constants.DefaultUnitCost, "unit cost")
	flags.Float64P("penalty", "p", constants.DefaultPenaltyCost, "penalty cost per unit short")
	flags.Float64P("setup", "s", constants.DefaultSetupCost, "setup cost per order")
	flags.Float64P("interest", "i", constants.DefaultInterestRate, "annual interest rate in percent")
	flags.Float64P("demand", "d", constants.DefaultLeadDemand, "expected demand over the lead time")
	flags.Float64P("time", "t", constants.DefaultLeadTime, "lead time in months")
	flags.Float64P("deviation", "v", constants.DefaultStandardDeviation, "standard deviation of lead-time demand")

	flags.Float64("tolerance", constants.DefaultTolerance, "convergence tolerance for Q and R")
	flags.Int("max-iterations", constants.DefaultMaxIterations, "iteration cap")
	flags.String("log-level", "", "log level override (debug, info, warn, error)")
	flags.String("output-format", "", "type of output override: pretty, csv, json")

	flags.String("ztable", "", "z-table file to search with --lookup")
	flags.Float64("lookup", 0, "probability to look up in the z-table")
	flags.String("ztable-out", "", "write a generated z-table to this file and exit")
	return flags
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := newFlagSet()
	flags.SetOutput(stderr)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	configLocation, _ := flags.GetString("config")
	optional := !flags.Changed("config")

	conf, err := config.LoadConfigurationWithFlags(configLocation, optional, flags)
	if err != nil {
		fmt.Fprintf(stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": %q}\n", configLocation, err.Error())
		return 1
	}

	logger, err := logging.New(conf.Logging, "")
	if err != nil {
		fmt.Fprintf(stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": %q}\n", err.Error())
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	if path, _ := flags.GetString("ztable-out"); path != "" {
		return writeZTable(logger, path)
	}
	if path, _ := flags.GetString("ztable"); path != "" {
		p, _ := flags.GetFloat64("lookup")
		return lookupZTable(logger, stdout, path, p)
	}

	outputFormat := conf.Output.Format
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Error(err.Error(), zap.String("op", "main"))
		return 1
	}

	if err := conf.Validate(); err != nil {
		logger.Error("invalid configuration",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return 1
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	result, err := solver.Solve(logger, conf.Policy, conf.Solver.Options())
	if err != nil {
		fields := []zap.Field{
			zap.String("op", "main"),
			zap.Error(err),
		}
		if result != nil && len(result.Trace) > 0 {
			last := result.Final()
			fields = append(fields,
				zap.Int("lastIteration", last.Iteration),
				zap.Float64("lastQ", last.OrderQuantity),
				zap.Float64("lastR", last.ReorderPoint),
			)
		}
		logger.Error("failed to compute reorder policy", fields...)
		return 1
	}

	if err := output.Write(stdout, outputFormat, result); err != nil {
		logger.Error("failed to write output",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return 1
	}
	return 0
}

func writeZTable(logger *zap.Logger, path string) int {
	records, err := ztable.Generate(constants.ZTableMin, constants.ZTableMax, constants.ZTableStep)
	if err != nil {
		logger.Error("failed to generate z-table", zap.String("op", "main.writeZTable"), zap.Error(err))
		return 1
	}

	file, err := os.Create(path)
	if err != nil {
		logger.Error("failed to create z-table file", zap.String("op", "main.writeZTable"), zap.Error(err))
		return 1
	}
	if err := ztable.Write(file, records); err != nil {
		_ = file.Close()
		logger.Error("failed to write z-table", zap.String("op", "main.writeZTable"), zap.Error(err))
		return 1
	}
	if err := file.Close(); err != nil {
		logger.Error("failed to close z-table file", zap.String("op", "main.writeZTable"), zap.Error(err))
		return 1
	}

	logger.Info("z-table written",
		zap.String("op", "main.writeZTable"),
		zap.String("path", path),
		zap.Int("records", len(records)),
	)
	return 0
}

func lookupZTable(logger *zap.Logger, stdout io.Writer, path string, p float64) int {
	quantile, err := normal.Quantile(p)
	if err != nil {
		logger.Error("invalid lookup probability", zap.String("op", "main.lookupZTable"), zap.Error(err))
		return 1
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Error("failed to open z-table", zap.String("op", "main.lookupZTable"), zap.Error(err))
		return 1
	}
	defer func() {
		_ = file.Close()
	}()

	records, err := ztable.Parse(file)
	if err != nil {
		logger.Error("failed to parse z-table", zap.String("op", "main.lookupZTable"), zap.Error(err))
		return 1
	}

	nearest, err := ztable.Nearest(records, p)
	if err != nil {
		logger.Error("z-table lookup failed", zap.String("op", "main.lookupZTable"), zap.Error(err))
		return 1
	}

	fmt.Fprintf(stdout, "nearest: %s\nquantile: z=%.6f for F=%g\n", nearest, quantile, p)
	return 0
}
