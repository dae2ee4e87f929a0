package service

import (
	"cmp"
	"context"
	"errors"
	"time"

	"github.com/jsforge/bundle-pipeline/internal/config"
	"github.com/jsforge/bundle-pipeline/internal/emit"
	"github.com/jsforge/bundle-pipeline/internal/logging"
	"github.com/jsforge/bundle-pipeline/internal/metrics"
	"github.com/jsforge/bundle-pipeline/internal/progress"
	"github.com/jsforge/bundle-pipeline/internal/report"
	"github.com/jsforge/bundle-pipeline/pkg/bundler"
	"github.com/jsforge/bundle-pipeline/pkg/compile"
)

var (
	defaultInterval = time.Minute
	errorInterval   = 30 * time.Second
)

// CompileWorker runs one configured bundle set through the compile
// orchestrator and emits the resulting artifacts. In watch mode the pool
// re-runs it on an interval; a configuration change makes the worker remove
// itself so the service can start a fresh one with the new configuration.
type CompileWorker struct {
	name       string
	cfg        *config.Root
	bundler    bundler.Bundler
	log        *logging.Logger
	bar        *progress.Bar
	changed    chan struct{}
	done       chan struct{}
	singleShot bool
	status     Status
	interval   time.Duration
}

func NewCompileWorker(name string, cfg *config.Root, b bundler.Bundler, logger *logging.Logger) *CompileWorker {
	w := &CompileWorker{
		name:    name,
		cfg:     cfg,
		bundler: b,
		log:     logger,
		changed: make(chan struct{}), done: make(chan struct{}),
		interval: defaultInterval,
	}
	if cfg.Service != nil {
		w.interval = cmp.Or(time.Duration(cfg.Service.Interval), defaultInterval)
	}
	return w
}

func (w *CompileWorker) WithProgress(bar *progress.Bar) *CompileWorker {
	w.bar = bar
	return w
}

func (w *CompileWorker) WithSingleShot(singleShot bool) *CompileWorker {
	w.singleShot = singleShot
	return w
}

func (w *CompileWorker) Done() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *CompileWorker) Status() Status {
	return w.status
}

// UpdateConfig flags the worker for removal when the given configuration
// differs from the one it was started with.
func (w *CompileWorker) UpdateConfig(cfg *config.Root) {
	if cfg == nil || !w.cfg.Equal(cfg) {
		w.changeConfiguration()
	}
}

// Execute runs one build iteration: compile every configured bundle in
// order, then emit the artifacts. It returns the deadline for the next run,
// or the zero time to leave the pool.
func (w *CompileWorker) Execute(ctx context.Context) time.Time {
	startTime := time.Now() // Used for timing metric

	defer w.bar.Add(1)

	if w.configurationChanged() {
		return w.die()
	}

	reporter := report.New(w.log)

	artifacts, err := compile.New().
		WithBundler(w.bundler).
		WithObserver(reporter).
		Compile(ctx, w.cfg.Request())
	if err != nil {
		w.log.Warnf("failed to build bundle set %q: %v", w.name, err)
		state := BuildStateBuildFailed
		var verr *compile.ValidationError
		if errors.As(err, &verr) {
			state = BuildStateConfigFailed
		}
		return w.report(state, startTime, err)
	}

	if err := emit.Write(w.cfg.Output, artifacts); err != nil {
		w.log.Warnf("failed to emit artifacts for %q: %v", w.name, err)
		return w.report(BuildStateEmitFailed, startTime, err)
	}

	w.log.Debugf("bundle set %q built: %d artifacts", w.name, len(artifacts))
	return w.report(BuildStateSuccess, startTime, nil)
}

func (w *CompileWorker) report(state BuildState, startTime time.Time, err error) time.Time {
	interval := w.interval
	w.status = Status{State: state}
	if err != nil {
		interval = errorInterval // faster retry on error
		w.status.Message = err.Error()
	}

	if state == BuildStateSuccess {
		metrics.CompileSucceeded(w.name, startTime)
	} else {
		metrics.CompileFailed(w.name, state.String())
	}

	if w.singleShot {
		return w.die()
	}

	return time.Now().Add(interval)
}

func (w *CompileWorker) changeConfiguration() {
	select {
	case <-w.changed:
	default:
		close(w.changed)
	}
}

func (w *CompileWorker) configurationChanged() bool {
	select {
	case <-w.changed:
		return true
	default:
		return false
	}
}

func (w *CompileWorker) die() time.Time {
	close(w.done)

	var zero time.Time
	return zero
}
