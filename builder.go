package stylebuild

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/yacobolo/stylebuild/internal/engine"
	"github.com/yacobolo/stylebuild/internal/fingerprint"
	"github.com/yacobolo/stylebuild/internal/logger"
	"github.com/yacobolo/stylebuild/internal/report"
	"github.com/yacobolo/stylebuild/internal/resource"
	"github.com/yacobolo/stylebuild/internal/watch"
)

// Re-exported building blocks.
type (
	SourceMapping    = resource.SourceMapping
	DirectoryPair    = resource.DirectoryPair
	ConfigError      = resource.ConfigError
	CompilationError = engine.CompilationError
	RuntimeError     = engine.RuntimeError
	Runtime          = engine.Runtime
	Script           = engine.Script
	Sink             = engine.Sink
	Result           = report.Result
)

// ErrCompilationFailed is returned by Compile and Update when a template failed to compile and
// FailOnError is set. The per-file errors have been logged and are in the Result.
var ErrCompilationFailed = report.ErrCompilationFailed

// Config holds everything a Builder needs.
type Config struct {
	BuildDir         string            // build output directory; the compiler cache lives below it
	Resources        []SourceMapping   // source mappings, compiled in order
	FailOnError      bool              // escalate per-file errors to a failed run
	UseCompass       bool              // require the compass library
	LoadPaths        []string          // library and import search paths
	Libraries        []string          // extension libraries loaded before compiling
	Options          map[string]string // compiler option overrides, in compiler literal syntax
	Extension        string            // fingerprinted file extension
	CacheFile        string            // checksum file; derived from cache_location when empty
	DefaultExcludes  bool              // skip VCS and OS metadata directories
	RespectGitignore bool              // also skip directories ignored by .gitignore
	SassBinary       string            // Dart Sass executable; empty uses sass from PATH
	Timeout          time.Duration     // per-file compiler timeout; zero uses the compiler default
}

// DefaultConfig returns a configuration with default values and no resources.
func DefaultConfig() Config {
	return Config{
		BuildDir:        "target",
		FailOnError:     true,
		Extension:       fingerprint.DefaultExtension,
		DefaultExcludes: true,
	}
}

// Builder runs compile, update and watch operations for one configuration.
type Builder struct {
	cfg        Config
	log        *logger.Logger
	newRuntime func() Runtime
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *logger.Logger) Option {
	return func(b *Builder) {
		b.log = log
	}
}

// WithRuntime replaces the Dart Sass runtime. factory is called once per compile and once per
// watched directory.
func WithRuntime(factory func() Runtime) Option {
	return func(b *Builder) {
		b.newRuntime = factory
	}
}

// New validates cfg and creates a Builder.
func New(cfg Config, opts ...Option) (*Builder, error) {
	if len(cfg.Resources) == 0 {
		return nil, &ConfigError{Message: "no stylesheet resources configured"}
	}
	for i, m := range cfg.Resources {
		if m.SourceRoot == "" {
			return nil, &ConfigError{Message: fmt.Sprintf("resource %d has no source directory", i+1)}
		}
		if m.DestinationRoot == "" {
			return nil, &ConfigError{Message: fmt.Sprintf("resource %d has no destination directory", i+1)}
		}
	}
	if cfg.Extension == "" {
		cfg.Extension = fingerprint.DefaultExtension
	}

	b := &Builder{cfg: cfg, log: logger.Discard()}
	for _, opt := range opts {
		opt(b)
	}
	if b.newRuntime == nil {
		b.newRuntime = func() Runtime {
			return engine.NewDartSass(cfg.SassBinary, cfg.Timeout, b.log)
		}
	}
	return b, nil
}

// Pairs resolves every configured mapping into directory pairs, in configuration order.
// A source root that does not exist is a configuration error.
func (b *Builder) Pairs() ([]DirectoryPair, error) {
	mappings, err := b.mappedPairs()
	if err != nil {
		return nil, err
	}

	var pairs []DirectoryPair
	for _, mapped := range mappings {
		pairs = append(pairs, mapped...)
	}
	return pairs, nil
}

// mappedPairs resolves each mapping on its own, keeping the pairs grouped by mapping.
func (b *Builder) mappedPairs() ([][]DirectoryPair, error) {
	flags := resource.ScanFlags{
		DefaultExcludes:  b.cfg.DefaultExcludes,
		RespectGitignore: b.cfg.RespectGitignore,
	}

	mappings := make([][]DirectoryPair, 0, len(b.cfg.Resources))
	for _, m := range b.cfg.Resources {
		info, err := os.Stat(m.SourceRoot)
		if err != nil || !info.IsDir() {
			return nil, &ConfigError{Message: fmt.Sprintf("source directory %s does not exist", m.SourceRoot)}
		}

		mapped, err := resource.Map(m, flags)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, mapped)
	}
	return mappings, nil
}

// Options returns the compiler options: defaults, overridden by the configured options, with
// cache_location derived from the build directory when unset.
func (b *Builder) Options() engine.Options {
	return engine.DefaultOptions().Merge(b.cfg.Options).WithCacheLocation(b.cfg.BuildDir)
}

// CacheFile returns the path of the checksum file used by Update.
func (b *Builder) CacheFile() string {
	if b.cfg.CacheFile != "" {
		return b.cfg.CacheFile
	}
	return path.Join(b.Options().CacheDir(), fingerprint.CacheFileName)
}

func (b *Builder) libraries() engine.Libraries {
	return engine.Libraries{
		UseCompass: b.cfg.UseCompass,
		LoadPaths:  b.cfg.LoadPaths,
		Extensions: b.cfg.Libraries,
	}
}

// Compile compiles every stylesheet directory once. Per-file errors never stop the batch; they
// are all logged and returned in the Result. The error is ErrCompilationFailed when errors were
// reported and FailOnError is set, or a *ConfigError / *RuntimeError when nothing could run.
func (b *Builder) Compile(ctx context.Context) (*Result, error) {
	b.log.Infof("Compiling stylesheet templates")

	pairs, err := b.Pairs()
	if err != nil {
		return nil, err
	}
	return b.compile(ctx, "compile", pairs)
}

// Update compiles like Compile, but only when a stylesheet changed since the last run.
// The checksum cache is rewritten on every call.
func (b *Builder) Update(ctx context.Context) (*Result, error) {
	b.log.Infof("Compiling stylesheet templates")

	pairs, err := b.Pairs()
	if err != nil {
		return nil, err
	}

	rebuild, err := fingerprint.NewDetector(b.CacheFile(), b.cfg.Extension).Check(pairs)
	if err != nil {
		return nil, err
	}
	if !rebuild {
		b.log.Infof("Skipping stylesheet templates, no changes")
		return &Result{Operation: "update", Pairs: pairs, Skipped: true}, nil
	}
	return b.compile(ctx, "update", pairs)
}

func (b *Builder) compile(ctx context.Context, operation string, pairs []DirectoryPair) (*Result, error) {
	start := time.Now()
	if b.cfg.UseCompass {
		b.log.Infof("Running with Compass enabled.")
	}

	rt := b.newRuntime()
	defer rt.Close()

	collector := engine.NewCollector(b.log, false)
	errs, err := engine.NewInvoker(rt, b.libraries(), b.log).CompileWith(ctx, pairs, b.Options(), collector)
	result := &Result{
		Operation: operation,
		Pairs:     pairs,
		Errors:    errs,
		Updated:   collector.Updated(),
		Duration:  time.Since(start),
	}
	if err != nil {
		return result, err
	}

	return result, report.Report(b.log, errs, b.cfg.FailOnError)
}

// Watch recompiles stylesheets as they change until ctx is cancelled. With a target, exactly one
// directory whose relative path contains target is watched; otherwise every stylesheet
// directory gets its own watcher. Per-file errors are logged and never end the watch. When ctx
// ends, watchers get grace to stop before they are aborted.
func (b *Builder) Watch(ctx context.Context, target string, grace time.Duration) error {
	mappings, err := b.mappedPairs()
	if err != nil {
		return err
	}

	selected := resource.WatchCandidates(mappings)
	if target != "" {
		pair, err := resource.SelectTarget(selected, target)
		if err != nil {
			return err
		}
		selected = []DirectoryPair{pair}
	}

	base := b.Options()
	sup := watch.NewSupervisor(b.log)
	for _, pair := range selected {
		worker := engine.NewWatchWorker(pair, base, b.libraries(), b.newRuntime, b.log)
		sup.Start(ctx, pair.String(), worker)
	}

	finished := make(chan error, 1)
	go func() { finished <- sup.Wait() }()

	select {
	case err := <-finished:
		return err
	case <-ctx.Done():
		b.log.Infof("Stopping %d stylesheet watcher(s)", len(selected))
		return sup.Shutdown(grace)
	}
}
