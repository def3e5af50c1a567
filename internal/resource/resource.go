// Package resource maps configured source mappings to the directory pairs handed to the compiler.
package resource

import (
	"fmt"
	"path"
	"strings"

	"github.com/yacobolo/stylebuild/internal/scan"
)

// SourceMapping is one configured unit of work.
type SourceMapping struct {
	SourceRoot           string   // directory containing stylesheet sources
	Includes             []string // ANT-style directory globs
	Excludes             []string
	DestinationRoot      string // directory receiving compiled output
	RelativeOutputOffset string // appended to every non-root destination, e.g. ".."
}

// DirectoryPair is one resolved (source directory, destination directory) unit of compilation.
// Both paths use forward slashes.
type DirectoryPair struct {
	SourceDir string
	DestDir   string
	Rel       string // path below the mapping root; "" for the root pair
}

// IsRoot reports whether the pair is the implicit pair of its mapping's root.
func (p DirectoryPair) IsRoot() bool {
	return p.Rel == ""
}

// String renders the pair as "source => destination".
func (p DirectoryPair) String() string {
	return p.SourceDir + " => " + p.DestDir
}

// ScanFlags are the scan settings shared by every mapping.
type ScanFlags struct {
	DefaultExcludes  bool
	RespectGitignore bool
}

// Map resolves a mapping into directory pairs. The root pair always comes first and never
// gets the relative output offset; every other matched directory follows in discovery order.
// Two directories that normalize to the same source path collapse into one entry, the later
// destination winning.
func Map(m SourceMapping, flags ScanFlags) ([]DirectoryPair, error) {
	src := NormalizePath(m.SourceRoot)
	dst := NormalizePath(m.DestinationRoot)

	pairs := newOrderedPairs()
	pairs.put(DirectoryPair{SourceDir: src, DestDir: dst})

	dirs, err := scan.Scan(m.SourceRoot, scan.Options{
		Includes:           m.Includes,
		Excludes:           m.Excludes,
		UseDefaultExcludes: flags.DefaultExcludes,
		RespectGitignore:   flags.RespectGitignore,
	})
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", m.SourceRoot, err)
	}

	for _, rel := range dirs {
		if rel == "" {
			continue
		}
		dest := joinPath(dst, rel)
		if m.RelativeOutputOffset != "" {
			dest = joinPath(dest, NormalizePath(m.RelativeOutputOffset))
		}
		pairs.put(DirectoryPair{
			SourceDir: joinPath(src, rel),
			DestDir:   dest,
			Rel:       rel,
		})
	}

	return pairs.list, nil
}

// NormalizePath converts any path to a cleaned, forward-slash form so that paths are
// identical across host platforms.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}

func joinPath(base, rel string) string {
	return path.Clean(base + "/" + rel)
}

type orderedPairs struct {
	list  []DirectoryPair
	index map[string]int
}

func newOrderedPairs() *orderedPairs {
	return &orderedPairs{index: make(map[string]int)}
}

// put inserts p, or replaces the existing entry with the same source in place.
func (o *orderedPairs) put(p DirectoryPair) {
	if i, ok := o.index[p.SourceDir]; ok {
		o.list[i] = p
		return
	}
	o.index[p.SourceDir] = len(o.list)
	o.list = append(o.list, p)
}
