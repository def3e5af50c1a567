package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yacobolo/stylebuild/internal/resource"
)

// watchDebounce collapses editor save bursts into one recompile.
const watchDebounce = 100 * time.Millisecond

// watch runs an initial update pass, then recompiles on template changes until ctx is done.
func (d *DartSass) watch(ctx context.Context, p *plan, sink Sink) error {
	if err := d.update(ctx, p, sink); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	for _, loc := range p.locations {
		if err := addRecursive(watcher, resource.NormalizePath(loc.Template)); err != nil {
			return err
		}
	}

	known, err := d.templateIndex(p)
	if err != nil {
		return err
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil {
						d.log.Warnf("Cannot watch %s: %v", event.Name, err)
					}
					continue
				}
			}
			if !isTemplate(event.Name) {
				continue
			}
			pending[resource.NormalizePath(event.Name)] = true
			timer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.log.Warnf("File watcher error: %v", err)

		case <-timer.C:
			changed := pending
			pending = make(map[string]bool)
			if known, err = d.applyChanges(p, known, changed, sink); err != nil {
				return err
			}
		}
	}
}

// templateIndex maps every current template source to its template record.
func (d *DartSass) templateIndex(p *plan) (map[string]template, error) {
	templates, err := d.collect(p)
	if err != nil {
		return nil, err
	}
	index := make(map[string]template, len(templates))
	for _, t := range templates {
		index[t.source] = t
	}
	return index, nil
}

// applyChanges reports the changed files, removes outputs of deleted templates and recompiles
// every affected template. It returns the refreshed template index.
func (d *DartSass) applyChanges(p *plan, known map[string]template, changed map[string]bool, sink Sink) (map[string]template, error) {
	current, err := d.templateIndex(p)
	if err != nil {
		return known, err
	}

	paths := make([]string, 0, len(changed))
	for src := range changed {
		paths = append(paths, src)
	}
	slices.Sort(paths)

	var touched []string
	for _, src := range paths {
		_, was := known[src]
		_, is := current[src]
		switch {
		case was && !is:
			sink.FileDeleted(src)
			if t := known[src]; !isPartial(src) {
				if err := os.Remove(t.dest); err != nil && !os.IsNotExist(err) {
					d.log.Warnf("Cannot remove %s: %v", t.dest, err)
				}
			}
			touched = append(touched, src)
		case !was && is:
			sink.FileCreated(src)
			touched = append(touched, src)
		case is:
			sink.FileModified(src)
			touched = append(touched, src)
		}
	}
	if len(touched) == 0 {
		return current, nil
	}

	graph := BuildGraph(sources(indexValues(current)), p.includePaths)
	// Dependents of a deleted partial are only visible in the old graph.
	previous := BuildGraph(sources(indexValues(known)), p.includePaths)

	queue := make(map[string]bool)
	for _, src := range touched {
		queue[src] = true
		for _, dep := range graph.Dependents(src) {
			queue[dep] = true
		}
		for _, dep := range previous.Dependents(src) {
			queue[dep] = true
		}
	}

	targets := make([]string, 0, len(queue))
	for src := range queue {
		targets = append(targets, src)
	}
	slices.Sort(targets)

	for _, src := range targets {
		t, ok := current[src]
		if !ok || isPartial(src) {
			continue
		}
		if err := d.compile(p, t, sink); err != nil {
			return current, err
		}
	}
	return current, nil
}

func indexValues(index map[string]template) []template {
	out := make([]template, 0, len(index))
	for _, t := range index {
		out = append(out, t)
	}
	return out
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}
