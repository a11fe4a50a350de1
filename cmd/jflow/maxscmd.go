package main

import (
	"fmt"
	"io"

	"github.com/fatih/structs"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/jvmflow/jflow/core/bytecode"
	"github.com/jvmflow/jflow/core/maxs"
	"github.com/jvmflow/jflow/log"
	"github.com/jvmflow/jflow/metrics"
)

var maxsCommand = &cli.Command{
	Action:    analyzeListings,
	Name:      "maxs",
	Usage:     "Compute max stack and max locals of every method in the listings",
	ArgsUsage: "<listing.yaml> (<listing2.yaml> ... <listingN.yaml>)",
	Flags:     append([]cli.Flag{formatFlag, filterFlag}, analysisFlags...),
	Description: `
The maxs command loads one or more YAML method listings, analyzes every
method and prints its max stack and max locals. Methods declaring maxs keep
them unless --recompute is given. --filter selects methods by file, name,
descriptor, static, declared, instructions or handlers. The command fails when any method fails,
after reporting all of them.`,
}

func analyzeListings(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return fmt.Errorf("required arguments: %v", ctx.Command.ArgsUsage)
	}
	format := ctx.String(formatFlag.Name)
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown format %q (use table or json)", format)
	}
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	listings, err := loadListings(ctx.Context, ctx.Args().Slice())
	if err != nil {
		return err
	}
	if err := filterListings(listings, ctx.String(filterFlag.Name)); err != nil {
		return err
	}
	var methods []*bytecode.Method
	for _, l := range listings {
		methods = append(methods, l.methods...)
	}
	log.Debug("Loaded listings", "files", len(listings), "methods", len(methods))

	registry := metrics.NewRegistry()
	cfg.Analysis.Registry = registry
	metrics.GetOrRegisterLabel("jflow/config", registry).Mark(structs.Map(cfg.Analysis))
	results, err := maxs.NewAnalyzer(cfg.Analysis).AnalyzeProgram(ctx.Context, methods)
	if results == nil && err != nil {
		return err
	}
	logMetrics(registry)

	reports := newReports(listings, results)
	if format == "json" {
		if err := writeReportsJSON(ctx.App.Writer, reports); err != nil {
			return err
		}
	} else {
		writeReportsTable(ctx.App.Writer, reports, useColor(cfg, ctx.App.Writer))
	}
	if err != nil {
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		return fmt.Errorf("%d of %d methods failed", failed, len(methods))
	}
	return nil
}

// logMetrics dumps the analyzer counters at debug level.
func logMetrics(r metrics.Registry) {
	ctx := []interface{}{}
	r.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case *metrics.Counter:
			ctx = append(ctx, name, m.Snapshot().Count())
		case *metrics.Label:
			value := m.Snapshot().Value()
			keys := maps.Keys(value)
			slices.Sort(keys)
			for _, k := range keys {
				ctx = append(ctx, name+"."+k, value[k])
			}
		}
	})
	log.Debug("Analysis metrics", ctx...)
}

func useColor(cfg jflowConfig, w io.Writer) bool {
	return !cfg.Log.NoColor && isTerminal(w)
}
