// Package engine drives the external stylesheet compiler.
//
// A Script describes one compiler run: required libraries, the merged option set, template
// locations and a final compile or watch directive. A Runtime executes scripts and reports
// per-file events through a Sink. The Invoker owns one Collector per invocation, so concurrent
// invocations never share event state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yacobolo/stylebuild/internal/logger"
	"github.com/yacobolo/stylebuild/internal/resource"
)

// Runtime executes scripts against the stylesheet compiler. Per-file compilation failures are
// reported through the sink; Eval only returns an error when the runtime itself fails.
type Runtime interface {
	Eval(ctx context.Context, script *Script, sink Sink) error
	Close() error
}

// RuntimeError is a failure of the runtime itself, with the script that was being evaluated.
type RuntimeError struct {
	Script string
	Err    error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("failed to execute stylesheet script: %v\n%s", e.Err, e.Script)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Invoker hands directory pairs to a runtime and collects the resulting errors.
type Invoker struct {
	runtime Runtime
	libs    Libraries
	log     *logger.Logger
}

// NewInvoker creates an invoker using runtime.
func NewInvoker(runtime Runtime, libs Libraries, log *logger.Logger) *Invoker {
	return &Invoker{runtime: runtime, libs: libs, log: log}
}

// Compile compiles every pair once. Per-file errors are returned in report order and never
// abort the batch. The returned error is non-nil only for runtime failures or cancellation.
func (inv *Invoker) Compile(ctx context.Context, pairs []resource.DirectoryPair, opts Options) ([]CompilationError, error) {
	return inv.CompileWith(ctx, pairs, opts, NewCollector(inv.log, false))
}

// CompileWith is Compile reporting into a caller-owned collector, which must not be shared
// with another invocation.
func (inv *Invoker) CompileWith(ctx context.Context, pairs []resource.DirectoryPair, opts Options, collector *Collector) ([]CompilationError, error) {
	for _, p := range pairs {
		inv.log.Infof("Queueing stylesheet template for compile: %s", p)
	}

	script := BuildScript(pairs, opts, inv.libs, DirectiveCompile)
	inv.log.Debugf("Execute stylesheet script:\n%s", script)

	if err := inv.runtime.Eval(ctx, script, collector); err != nil {
		if ctx.Err() != nil {
			return collector.Errors(), ctx.Err()
		}
		return collector.Errors(), &RuntimeError{Script: script.String(), Err: err}
	}

	return collector.Errors(), nil
}

// WatchWorker is one watch loop bound to a single directory pair. Each worker owns its
// runtime and derives its own option overlay, so workers never share mutable state.
type WatchWorker struct {
	pair       resource.DirectoryPair
	base       Options
	libs       Libraries
	newRuntime func() Runtime
	log        *logger.Logger

	mu      sync.Mutex
	runtime Runtime
	aborted bool
}

// NewWatchWorker creates a worker for pair. newRuntime is called once per Run.
func NewWatchWorker(pair resource.DirectoryPair, base Options, libs Libraries, newRuntime func() Runtime, log *logger.Logger) *WatchWorker {
	return &WatchWorker{
		pair:       pair,
		base:       base,
		libs:       libs,
		newRuntime: newRuntime,
		log:        log,
	}
}

// Run blocks in the runtime's watch directive until ctx is cancelled or the runtime fails.
// Compilation errors are logged as they happen and never end the loop.
func (w *WatchWorker) Run(ctx context.Context) error {
	rt, err := w.start()
	if err != nil {
		return err
	}
	defer rt.Close()

	script := BuildScript([]resource.DirectoryPair{w.pair}, w.base, w.libs, DirectiveWatch)
	w.log.Infof("Watching stylesheet templates in %s and writing CSS to %s", w.pair.SourceDir, w.pair.DestDir)
	w.log.Debugf("Execute stylesheet script:\n%s", script)

	err = rt.Eval(ctx, script, NewCollector(w.log, true))
	if err != nil && ctx.Err() == nil && !w.wasAborted() {
		return &RuntimeError{Script: script.String(), Err: err}
	}
	return nil
}

// Abort closes the worker's runtime, forcing a blocked Run to return.
func (w *WatchWorker) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.aborted = true
	if w.runtime == nil {
		return nil
	}
	return w.runtime.Close()
}

var errWorkerAborted = errors.New("watch worker aborted")

func (w *WatchWorker) start() (Runtime, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.aborted {
		return nil, errWorkerAborted
	}
	w.runtime = w.newRuntime()
	return w.runtime, nil
}

func (w *WatchWorker) wasAborted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.aborted
}
