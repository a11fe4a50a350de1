package main

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/exp/slog"

	"github.com/jvmflow/jflow/log"
)

const logFileBuffer = 10000

// isTerminal reports whether w is a terminal that understands colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) && os.Getenv("TERM") != "dumb"
}

// setupLogging installs the root logger described by cfg. Records go to the
// log file when one is configured and to stderr otherwise. The returned
// function flushes and closes the log file.
func setupLogging(cfg logConfig, stderr io.Writer) (func() error, error) {
	var (
		output   = stderr
		usecolor = !cfg.NoColor && isTerminal(stderr)
		closer   = func() error { return nil }
		lvl      = log.FromLegacyLevel(cfg.Verbosity)
	)
	if cfg.File != "" {
		w, err := log.NewAsyncFileWriter(cfg.File, logFileBuffer, log.FileRotation{
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		})
		if err != nil {
			return nil, err
		}
		if err := w.Start(); err != nil {
			return nil, err
		}
		output, usecolor, closer = w, false, w.Stop
	} else if f, ok := stderr.(*os.File); ok && usecolor {
		output = colorable.NewColorable(f)
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = log.JSONHandlerWithLevel(output, lvl)
	} else {
		handler = log.NewTerminalHandlerWithLevel(output, lvl, usecolor)
	}
	log.SetDefault(log.NewLogger(handler))
	return closer, nil
}
