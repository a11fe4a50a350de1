package maxs

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jvmflow/jflow/common/gopool"
	"github.com/jvmflow/jflow/core/bytecode"
	"github.com/jvmflow/jflow/core/descriptor"
	"github.com/jvmflow/jflow/log"
	"github.com/jvmflow/jflow/metrics"
)

// Config are the knobs of a program analyzer.
type Config struct {
	Workers         int  // upper bound on worker goroutines, 0 picks GOMAXPROCS
	FailFast        bool // stop submitting methods after the first failure
	Recompute       bool // analyze methods even when they declare maxs
	DescriptorCache int  // parsed descriptors kept per kind

	Registry metrics.Registry `toml:"-" structs:"-"`
}

// DefaultConfig contains default settings for the program analyzer.
var DefaultConfig = Config{
	Workers:         runtime.NumCPU(),
	DescriptorCache: descriptor.DefaultCacheSize,
}

// Result is the outcome for one method of a program.
type Result struct {
	Method *bytecode.Method
	Report *Report
	Err    error
}

// Analyzer computes maxs for every method of a program on a worker pool.
// Methods share nothing but the descriptor cache.
type Analyzer struct {
	config Config
	descs  *descriptor.Cache
	log    log.Logger

	methods  *metrics.Counter
	failed   *metrics.Counter
	declared *metrics.Counter
	visits   *metrics.Counter
	lastRun  *metrics.Label
}

func NewAnalyzer(config Config) *Analyzer {
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	r := config.Registry
	if r == nil {
		r = metrics.DefaultRegistry
	}
	return &Analyzer{
		config:   config,
		descs:    descriptor.NewCache(config.DescriptorCache),
		log:      log.New("module", "maxs"),
		methods:  metrics.GetOrRegisterCounter("maxs/methods", r),
		failed:   metrics.GetOrRegisterCounter("maxs/failed", r),
		declared: metrics.GetOrRegisterCounter("maxs/declared", r),
		visits:   metrics.GetOrRegisterCounter("maxs/visits", r),
		lastRun:  metrics.GetOrRegisterLabel("maxs/run", r),
	}
}

// Descriptors is the descriptor cache shared by the analyzed methods.
func (a *Analyzer) Descriptors() *descriptor.Cache { return a.descs }

func (a *Analyzer) options() []Option {
	opts := []Option{WithDescriptors(a.descs)}
	if a.config.Recompute {
		opts = append(opts, WithRecompute())
	}
	return opts
}

// AnalyzeProgram analyzes every method and returns one result per method, in
// input order. A failing method does not stop the others unless FailFast is
// set; the returned error aggregates every failure. Methods left unanalyzed
// because ctx was cancelled report the context error.
func (a *Analyzer) AnalyzeProgram(ctx context.Context, methods []*bytecode.Method) ([]Result, error) {
	pool, err := gopool.New(min(a.config.Workers, gopool.Threads(len(methods))))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		start    = time.Now()
		results  = make([]Result, len(methods))
		progress = &log.EveryN{N: 1000}
		wg       sync.WaitGroup
	)
	for i, m := range methods {
		results[i].Method = m
		if err := ctx.Err(); err != nil {
			results[i].Err = errors.Wrapf(err, "method %s%s", m.Name, m.Descriptor)
			continue
		}
		i, m := i, m
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i].Report, results[i].Err = a.analyze(ctx, m)
			if results[i].Err != nil && a.config.FailFast {
				cancel()
			}
			log.LogBy(a.log, progress, log.LevelDebug, "Analyzing methods", "done", progress.Count(), "total", len(methods))
		})
		if err != nil {
			wg.Done()
			results[i].Err = errors.Wrapf(err, "method %s%s: submit", m.Name, m.Descriptor)
		}
	}
	wg.Wait()

	var (
		merr   *multierror.Error
		failed int
	)
	for _, r := range results {
		if r.Err != nil {
			merr = multierror.Append(merr, r.Err)
			failed++
		}
	}
	a.lastRun.Mark(map[string]any{
		"methods": len(methods),
		"failed":  failed,
		"elapsed": time.Since(start).String(),
	})
	a.log.Info("Analyzed methods", "total", len(methods), "failed", failed, "elapsed", time.Since(start))
	log.WarnIf(failed > 0 && a.config.FailFast, "Analysis stopped after failure", "failed", failed)
	return results, merr.ErrorOrNil()
}

func (a *Analyzer) analyze(ctx context.Context, m *bytecode.Method) (report *Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("method %s%s: panic: %v", m.Name, m.Descriptor, r)
		}
		a.methods.Inc(1)
		if err != nil {
			a.failed.Inc(1)
			a.log.Debug("Method analysis failed", "method", m.Name, "err", err)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(err, "method %s%s", m.Name, m.Descriptor)
	}
	report, err = Analyze(m, a.options()...)
	if err != nil {
		return nil, err
	}
	if report.Declared {
		a.declared.Inc(1)
	}
	a.visits.Inc(int64(report.Visits))
	a.log.Trace("Computed maxs", "method", m.Name, "stack", report.Maxs.Stack, "locals", report.Maxs.Locals, "visits", report.Visits)
	return report, nil
}
