// jflow computes the max stack and max locals of JVM methods written as
// YAML listings.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/jvmflow/jflow/log"
)

const logCloserKey = "logCloser"

func newApp() *cli.App {
	return &cli.App{
		Name:                 "jflow",
		Usage:                "JVM method max stack and max locals calculator",
		Flags:                globalFlags,
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			maxsCommand,
			cfgCommand,
			opcodesCommand,
			dumpConfigCommand,
		},
		Before: func(ctx *cli.Context) error {
			cfg, err := makeConfig(ctx)
			if err != nil {
				return err
			}
			closer, err := setupLogging(cfg.Log, ctx.App.ErrWriter)
			if err != nil {
				return err
			}
			ctx.App.Metadata[logCloserKey] = closer

			// Size the worker pool to the CPU quota inside containers.
			if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
				log.Debug(fmt.Sprintf(format, args...))
			})); err != nil {
				log.Warn("Failed to adjust GOMAXPROCS", "err", err)
			}
			return nil
		},
		After: func(ctx *cli.Context) error {
			if closer, ok := ctx.App.Metadata[logCloserKey].(func() error); ok {
				return closer()
			}
			return nil
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
