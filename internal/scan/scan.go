// Package scan finds the source directories selected by ANT-style include/exclude globs.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultExcludes are gitignore-style patterns for version-control directories and OS metadata
// files. A pattern without a slash matches at any depth.
var DefaultExcludes = []string{
	// Miscellaneous editor and OS droppings
	"*~",
	".#*",
	"%*%",
	"._*",
	".DS_Store",
	"Thumbs.db",

	// CVS, RCS, SCCS
	"CVS",
	".cvsignore",
	"RCS",
	"SCCS",

	// Visual SourceSafe
	"vssver.scc",

	// Subversion
	".svn",

	// Git
	".git",
	".gitignore",
	".gitattributes",
	".gitmodules",

	// Mercurial
	".hg",
	".hgignore",
	".hgsub",
	".hgsubstate",
	".hgtags",

	// Bazaar
	".bzr",
	".bzrignore",

	// Darcs
	"_darcs",
}

// Options configures a directory scan.
type Options struct {
	Includes           []string // ANT-style globs; empty means "**"
	Excludes           []string
	UseDefaultExcludes bool // apply DefaultExcludes on top of Excludes
	RespectGitignore   bool // skip directories ignored by <root>/.gitignore
}

// Scan returns the relative, forward-slash paths of every directory under root that matches
// some include and no exclude, in discovery order. The root itself is reported as "" when
// it matches. A missing root yields an empty result and no error.
func Scan(root string, opts Options) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, nil
	}

	includes, err := normalizePatterns(opts.Includes)
	if err != nil {
		return nil, fmt.Errorf("include: %w", err)
	}
	if len(includes) == 0 {
		includes = []string{"**"}
	}
	excludes, err := normalizePatterns(opts.Excludes)
	if err != nil {
		return nil, fmt.Errorf("exclude: %w", err)
	}

	var skip []*ignore.GitIgnore
	if opts.UseDefaultExcludes {
		skip = append(skip, ignore.CompileIgnoreLines(DefaultExcludes...))
	}
	if opts.RespectGitignore {
		// A missing .gitignore is fine
		if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			skip = append(skip, gi)
		}
	}

	var dirs []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			rel = ""
		}

		if rel != "" && skipped(skip, rel) {
			return filepath.SkipDir
		}
		if matchesAny(includes, rel) && !matchesAny(excludes, rel) {
			dirs = append(dirs, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	return dirs, nil
}

// normalizePattern converts a pattern to forward slashes. Like ANT, a trailing slash
// is shorthand for "/**".
func normalizePattern(pattern string) string {
	p := strings.ReplaceAll(strings.TrimSpace(pattern), "\\", "/")
	p = strings.TrimPrefix(p, "./")
	if strings.HasSuffix(p, "/") {
		p += "**"
	}
	return p
}

func normalizePatterns(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, raw := range patterns {
		p := normalizePattern(raw)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", raw)
		}
		out = append(out, p)
	}
	return out, nil
}

func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func skipped(ignores []*ignore.GitIgnore, rel string) bool {
	for _, gi := range ignores {
		if gi.MatchesPath(rel) {
			return true
		}
	}
	return false
}
