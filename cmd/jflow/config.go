package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"

	"github.com/jvmflow/jflow/core/maxs"
)

var dumpConfigCommand = &cli.Command{
	Action:      dumpConfig,
	Name:        "dumpconfig",
	Usage:       "Export configuration values in a TOML format",
	ArgsUsage:   "<dumpfile (optional)>",
	Flags:       analysisFlags,
	Description: `Export configuration values in TOML format (to stdout by default).`,
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type logConfig struct {
	Verbosity  int
	JSON       bool
	NoColor    bool
	File       string `toml:",omitempty"`
	MaxSize    int    `toml:",omitempty"`
	MaxBackups int    `toml:",omitempty"`
	Compress   bool   `toml:",omitempty"`
}

type jflowConfig struct {
	Analysis maxs.Config
	Log      logConfig
}

func defaultConfig() jflowConfig {
	return jflowConfig{
		Analysis: maxs.DefaultConfig,
		Log:      logConfig{Verbosity: 3},
	}
}

func loadConfig(file string, cfg *jflowConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig layers the config file, if any, and then the command line flags
// over the defaults.
func makeConfig(ctx *cli.Context) (jflowConfig, error) {
	cfg := defaultConfig()
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(workersFlag.Name) {
		cfg.Analysis.Workers = ctx.Int(workersFlag.Name)
	}
	if ctx.IsSet(failFastFlag.Name) {
		cfg.Analysis.FailFast = ctx.Bool(failFastFlag.Name)
	}
	if ctx.IsSet(recomputeFlag.Name) {
		cfg.Analysis.Recompute = ctx.Bool(recomputeFlag.Name)
	}
	if ctx.IsSet(descriptorCacheFlag.Name) {
		cfg.Analysis.DescriptorCache = ctx.Int(descriptorCacheFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Log.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	if ctx.IsSet(logJSONFlag.Name) {
		cfg.Log.JSON = ctx.Bool(logJSONFlag.Name)
	}
	if ctx.IsSet(noColorFlag.Name) {
		cfg.Log.NoColor = ctx.Bool(noColorFlag.Name)
	}
	if ctx.IsSet(logFileFlag.Name) {
		cfg.Log.File = ctx.String(logFileFlag.Name)
	}
	if ctx.IsSet(logMaxSizeFlag.Name) {
		cfg.Log.MaxSize = ctx.Int(logMaxSizeFlag.Name)
	}
	if ctx.IsSet(logMaxBackupsFlag.Name) {
		cfg.Log.MaxBackups = ctx.Int(logMaxBackupsFlag.Name)
	}
	if ctx.IsSet(logCompressFlag.Name) {
		cfg.Log.Compress = ctx.Bool(logCompressFlag.Name)
	}
	return cfg, nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	var dump io.Writer = ctx.App.Writer
	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		dump = f
	}
	_, err = dump.Write(out)
	return err
}
