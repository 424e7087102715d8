// Package constants provides shared constants for the reorder-policy application.
package constants

// Default policy parameters, used when neither the config file, the
// environment nor the command line supplies a value.
const (
	DefaultUnitCost          = 20.0
	DefaultPenaltyCost       = 20.0
	DefaultSetupCost         = 100.0
	DefaultInterestRate      = 25.0 // percent per year
	DefaultLeadDemand        = 500.0
	DefaultLeadTime          = 4.0 // months
	DefaultStandardDeviation = 100.0
)

// Inventory model constants
const (
	// MonthsPerYear converts a lead time in months into lead times per year.
	MonthsPerYear = 12

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Solver defaults
const (
	// DefaultTolerance is the convergence tolerance applied to both Q and R.
	// It matches the default inverse-CDF absolute accuracy of common
	// statistics libraries.
	DefaultTolerance = 1e-9

	// MinTolerance and MaxTolerance bound a configured tolerance.
	MinTolerance = 1e-12
	MaxTolerance = 1e-3

	// DefaultMaxIterations caps the fixed-point iteration.
	DefaultMaxIterations = 500

	// MaxIterationsLimit is the largest iteration cap a configuration may request.
	MaxIterationsLimit = 10000
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. REORDER_POLICY_UNITCOST.
	EnvPrefix = "REORDER"
)

// Z-table constants
const (
	// ZTableMin, ZTableMax and ZTableStep describe the generated reference table.
	ZTableMin  = -4.0
	ZTableMax  = 4.0
	ZTableStep = 0.01
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultBatchConcurrency limits concurrent solver runs in a batch request.
	DefaultBatchConcurrency = 4

	// MaxBatchItems limits the number of configurations in a batch request.
	MaxBatchItems = 256
)
