package main

import (
	"github.com/urfave/cli/v2"
)

const (
	analysisCategory = "ANALYSIS"
	loggingCategory  = "LOGGING"
	outputCategory   = "OUTPUT"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: analysisCategory,
	}
	workersFlag = &cli.IntFlag{
		Name:     "workers",
		Usage:    "Maximum number of methods analyzed in parallel (0 = GOMAXPROCS)",
		Category: analysisCategory,
	}
	failFastFlag = &cli.BoolFlag{
		Name:     "fail-fast",
		Usage:    "Stop analyzing after the first failing method",
		Category: analysisCategory,
	}
	recomputeFlag = &cli.BoolFlag{
		Name:     "recompute",
		Usage:    "Analyze methods even when the listing declares their maxs",
		Category: analysisCategory,
	}
	descriptorCacheFlag = &cli.IntFlag{
		Name:     "cache.descriptors",
		Usage:    "Number of parsed descriptors kept in memory",
		Category: analysisCategory,
	}

	verbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value:    3,
		Category: loggingCategory,
	}
	logJSONFlag = &cli.BoolFlag{
		Name:     "log.json",
		Usage:    "Format logs with JSON",
		Category: loggingCategory,
	}
	logFileFlag = &cli.StringFlag{
		Name:     "log.file",
		Usage:    "Write logs to a file instead of stderr",
		Category: loggingCategory,
	}
	logMaxSizeFlag = &cli.IntFlag{
		Name:     "log.maxsize",
		Usage:    "Maximum size in megabytes of the log file before it is rotated (0 = never)",
		Category: loggingCategory,
	}
	logMaxBackupsFlag = &cli.IntFlag{
		Name:     "log.maxbackups",
		Usage:    "Maximum number of rotated log files to retain (0 = all)",
		Category: loggingCategory,
	}
	logCompressFlag = &cli.BoolFlag{
		Name:     "log.compress",
		Usage:    "Gzip rotated log files",
		Category: loggingCategory,
	}

	formatFlag = &cli.StringFlag{
		Name:     "format",
		Usage:    "Output format: table or json (cfg: table or dot)",
		Value:    "table",
		Category: outputCategory,
	}
	noColorFlag = &cli.BoolFlag{
		Name:     "nocolor",
		Usage:    "Disable colored output",
		Category: outputCategory,
	}
	filterFlag = &cli.StringFlag{
		Name:     "filter",
		Usage:    `Only analyze methods matching a boolean expression, e.g. 'static == true and name matches "^get"'`,
		Category: outputCategory,
	}
	wideFlag = &cli.BoolFlag{
		Name:     "wide",
		Usage:    "Also list the wide forms of local variable opcodes",
		Category: outputCategory,
	}
)

var (
	globalFlags = []cli.Flag{
		configFileFlag,
		verbosityFlag,
		logJSONFlag,
		logFileFlag,
		logMaxSizeFlag,
		logMaxBackupsFlag,
		logCompressFlag,
		noColorFlag,
	}
	analysisFlags = []cli.Flag{
		workersFlag,
		failFastFlag,
		recomputeFlag,
		descriptorCacheFlag,
	}
)
