package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/godartsass/v2"

	"github.com/yacobolo/stylebuild/internal/logger"
	"github.com/yacobolo/stylebuild/internal/resource"
)

// ErrMissingLibrary is returned when a required stylesheet library cannot be found on any load path.
var ErrMissingLibrary = errors.New("stylesheet library not found")

// DartSass is a Runtime backed by the Dart Sass embedded compiler. The compiler process is
// started on first use and shared by every script evaluated on this runtime.
type DartSass struct {
	binary  string
	timeout time.Duration
	log     *logger.Logger

	mu         sync.Mutex
	transpiler *godartsass.Transpiler
	closed     bool
}

// NewDartSass creates a runtime. An empty binary uses the sass executable on PATH.
func NewDartSass(binary string, timeout time.Duration, log *logger.Logger) *DartSass {
	return &DartSass{binary: binary, timeout: timeout, log: log}
}

// plan is a script resolved into the concrete settings the compiler needs.
type plan struct {
	locations    []Location
	includePaths []string
	style        godartsass.OutputStyle
	alwaysUpdate bool
	unixNewlines bool
}

// Eval runs script. Per-file failures are reported to sink; an error is returned only when the
// script cannot be evaluated at all.
func (d *DartSass) Eval(ctx context.Context, script *Script, sink Sink) error {
	p, err := d.plan(script)
	if err != nil {
		return err
	}

	switch script.Directive {
	case DirectiveCompile:
		return d.update(ctx, p, sink)
	case DirectiveWatch:
		return d.watch(ctx, p, sink)
	default:
		return fmt.Errorf("unknown script directive %q", script.Directive)
	}
}

// Close stops the compiler process. A closed runtime cannot be restarted.
func (d *DartSass) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	if d.transpiler == nil {
		return nil
	}
	err := d.transpiler.Close()
	d.transpiler = nil
	if errors.Is(err, godartsass.ErrShutdown) {
		return nil
	}
	return err
}

func (d *DartSass) start() (*godartsass.Transpiler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, godartsass.ErrShutdown
	}
	if d.transpiler != nil {
		return d.transpiler, nil
	}

	t, err := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: d.binary,
		Timeout:                  d.timeout,
		LogEventHandler: func(e godartsass.LogEvent) {
			switch e.Type {
			case godartsass.LogEventTypeDebug:
				d.log.Debugf("%s", e.Message)
			default:
				d.log.Warnf("%s", e.Message)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("start sass compiler: %w", err)
	}
	d.transpiler = t
	return t, nil
}

func (d *DartSass) plan(script *Script) (*plan, error) {
	libDirs, err := d.resolveLibraries(script)
	if err != nil {
		return nil, err
	}

	p := &plan{
		locations:    script.TemplateLocations(),
		style:        outputStyle(script.Options.Text(OptStyle), d.log),
		alwaysUpdate: script.Options.Bool(OptAlwaysUpdate, true),
		unixNewlines: script.Options.Bool(OptUnixNewlines, true),
	}
	p.includePaths = append(p.includePaths, script.Options.List(OptLoadPaths)...)
	p.includePaths = append(p.includePaths, script.LoadPaths...)
	p.includePaths = append(p.includePaths, libDirs...)
	return p, nil
}

// resolveLibraries finds the directory of each library on the load paths. Missing required
// libraries fail the script; missing extensions are skipped with a warning.
func (d *DartSass) resolveLibraries(script *Script) ([]string, error) {
	var dirs []string
	for _, name := range script.Requires {
		if name == CoreLibrary {
			continue
		}
		dir, ok := findLibrary(name, script.LoadPaths)
		if !ok {
			return nil, fmt.Errorf("%w: %s (load paths: %s)", ErrMissingLibrary, name, strings.Join(script.LoadPaths, ", "))
		}
		dirs = append(dirs, dir)
	}
	for _, name := range script.Extensions {
		dir, ok := findLibrary(name, script.LoadPaths)
		if !ok {
			d.log.Warnf("Stylesheet extension %s not found on load paths, skipping", name)
			continue
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

func findLibrary(name string, loadPaths []string) (string, bool) {
	for _, base := range loadPaths {
		for _, dir := range []string{filepath.Join(base, name, "stylesheets"), filepath.Join(base, name)} {
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				return resource.NormalizePath(dir), true
			}
		}
	}
	return "", false
}

func outputStyle(style string, log *logger.Logger) godartsass.OutputStyle {
	switch strings.ToLower(style) {
	case "", "expanded", "nested", "compact":
		return godartsass.OutputStyleExpanded
	case "compressed":
		return godartsass.OutputStyleCompressed
	default:
		log.Warnf("Unknown stylesheet output style %q, using expanded", style)
		return godartsass.OutputStyleExpanded
	}
}

// template is one source file under a template location.
type template struct {
	source string // absolute, forward slashes
	dest   string
	loc    Location
}

func isTemplate(name string) bool {
	ext := path.Ext(name)
	return ext == ".scss" || ext == ".sass"
}

func isPartial(name string) bool {
	return strings.HasPrefix(path.Base(name), "_")
}

// destination maps a source file under loc to its compiled output path.
func destination(loc Location, source string) string {
	rel := strings.TrimPrefix(strings.TrimPrefix(source, resource.NormalizePath(loc.Template)), "/")
	return resource.NormalizePath(path.Join(loc.CSS, strings.TrimSuffix(rel, path.Ext(rel))+".css"))
}

// collect lists every template file under the plan's locations, partials included.
func (d *DartSass) collect(p *plan) ([]template, error) {
	var out []template
	for _, loc := range p.locations {
		root := resource.NormalizePath(loc.Template)
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			d.log.Debugf("Template location %s does not exist, skipping", root)
			continue
		}

		err = filepath.WalkDir(root, func(file string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() || !isTemplate(entry.Name()) {
				return nil
			}
			src := resource.NormalizePath(file)
			out = append(out, template{source: src, dest: destination(loc, src), loc: loc})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk template location %s: %w", root, err)
		}
	}
	return out, nil
}

func sources(templates []template) []string {
	out := make([]string, 0, len(templates))
	for _, t := range templates {
		out = append(out, t.source)
	}
	return out
}

// update compiles every non-partial template, skipping up-to-date outputs unless always_update
// is set.
func (d *DartSass) update(ctx context.Context, p *plan, sink Sink) error {
	templates, err := d.collect(p)
	if err != nil {
		return err
	}

	var graph *Graph
	if !p.alwaysUpdate {
		graph = BuildGraph(sources(templates), p.includePaths)
	}

	for _, t := range templates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if isPartial(t.source) {
			continue
		}
		if graph != nil && upToDate(t, graph) {
			continue
		}
		if err := d.compile(p, t, sink); err != nil {
			return err
		}
	}
	return nil
}

// upToDate reports whether the output of t is newer than its source and every file it imports.
func upToDate(t template, graph *Graph) bool {
	out, err := os.Stat(t.dest)
	if err != nil {
		return false
	}
	for _, src := range append([]string{t.source}, graph.Dependencies(t.source)...) {
		in, err := os.Stat(src)
		if err != nil || in.ModTime().After(out.ModTime()) {
			return false
		}
	}
	return true
}

// compile transpiles a single template. Compiler diagnostics and failed writes go to sink; only
// a dead compiler is returned.
func (d *DartSass) compile(p *plan, t template, sink Sink) error {
	tr, err := d.start()
	if err != nil {
		return err
	}

	src, err := os.ReadFile(t.source)
	if err != nil {
		sink.CompilationError(err.Error(), t.source, t.dest)
		return nil
	}

	syntax := godartsass.SourceSyntaxSCSS
	if path.Ext(t.source) == ".sass" {
		syntax = godartsass.SourceSyntaxSASS
	}

	res, err := tr.Execute(godartsass.Args{
		Source:       string(src),
		URL:          fileURL(t.source),
		OutputStyle:  p.style,
		SourceSyntax: syntax,
		IncludePaths: append([]string{resource.NormalizePath(t.loc.Template)}, p.includePaths...),
	})
	if err != nil {
		if tr.IsShutDown() {
			return fmt.Errorf("sass compiler stopped while compiling %s: %w", t.source, err)
		}
		sink.CompilationError(err.Error(), t.source, t.dest)
		return nil
	}

	css := res.CSS
	if p.unixNewlines {
		css = strings.ReplaceAll(css, "\r\n", "\n")
	}
	if css != "" && !strings.HasSuffix(css, "\n") {
		css += "\n"
	}

	if err := writeOutput(t.dest, css); err != nil {
		sink.CompilationError(err.Error(), t.source, t.dest)
		return nil
	}

	sink.UpdatedFile(t.source, t.dest)
	return nil
}

func writeOutput(dest, css string) error {
	if err := os.MkdirAll(path.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(dest, []byte(css), 0644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

func fileURL(p string) string {
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "file://" + p
}
