package engine

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"github.com/yacobolo/stylebuild/internal/resource"
)

// ParseImports returns the module references a stylesheet template loads, in source order.
// @import may list several targets; @use and @forward take exactly one.
func ParseImports(src []byte) []string {
	lexer := css.NewLexer(parse.NewInputBytes(src))
	var refs []string

	for {
		tt, data := lexer.Next()
		if tt == css.ErrorToken {
			return refs
		}
		if tt != css.AtKeywordToken {
			continue
		}

		keyword := strings.ToLower(string(data))
		if keyword != "@import" && keyword != "@use" && keyword != "@forward" {
			continue
		}
		single := keyword != "@import"

	statement:
		for {
			tt, data = lexer.Next()
			switch tt {
			case css.ErrorToken:
				return refs
			case css.SemicolonToken, css.LeftBraceToken, css.RightBraceToken:
				break statement
			case css.StringToken:
				refs = append(refs, Unquote(string(data)))
				if single {
					break statement
				}
			}
		}
	}
}

// isExternalImport reports whether ref is resolved by the compiler or the browser rather than
// a template on disk.
func isExternalImport(ref string) bool {
	return strings.HasPrefix(ref, "sass:") ||
		strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "//") ||
		strings.HasPrefix(ref, "url(") ||
		strings.HasSuffix(ref, ".css")
}

// ResolveImport finds the template file ref points to, searching dir first and then each load
// path. Partials (_name), both template syntaxes and index files are tried.
func ResolveImport(ref, dir string, loadPaths []string) (string, bool) {
	if isExternalImport(ref) {
		return "", false
	}

	for _, base := range append([]string{dir}, loadPaths...) {
		if base == "" {
			continue
		}
		for _, candidate := range importCandidates(filepath.Join(base, filepath.FromSlash(ref))) {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return resource.NormalizePath(candidate), true
			}
		}
	}
	return "", false
}

func importCandidates(target string) []string {
	dir, name := filepath.Split(target)
	var out []string

	if ext := filepath.Ext(name); ext == ".scss" || ext == ".sass" {
		out = append(out, target, filepath.Join(dir, "_"+name))
		return out
	}

	for _, ext := range []string{".scss", ".sass"} {
		out = append(out,
			filepath.Join(dir, name+ext),
			filepath.Join(dir, "_"+name+ext),
		)
	}
	for _, ext := range []string{".scss", ".sass"} {
		out = append(out,
			filepath.Join(target, "_index"+ext),
			filepath.Join(target, "index"+ext),
		)
	}
	return out
}

// Graph maps each template to the templates it imports.
type Graph struct {
	deps       map[string][]string
	dependents map[string][]string
}

// BuildGraph parses every template and resolves its imports against its own directory and
// loadPaths. Unreadable templates are left without edges.
func BuildGraph(templates []string, loadPaths []string) *Graph {
	g := &Graph{
		deps:       make(map[string][]string),
		dependents: make(map[string][]string),
	}

	for _, tmpl := range templates {
		tmpl = resource.NormalizePath(tmpl)
		src, err := os.ReadFile(tmpl)
		if err != nil {
			continue
		}

		seen := make(map[string]bool)
		for _, ref := range ParseImports(src) {
			target, ok := ResolveImport(ref, path.Dir(tmpl), loadPaths)
			if !ok || seen[target] || target == tmpl {
				continue
			}
			seen[target] = true
			g.deps[tmpl] = append(g.deps[tmpl], target)
			g.dependents[target] = append(g.dependents[target], tmpl)
		}
	}
	return g
}

// Dependencies returns every template tmpl imports, directly or transitively.
func (g *Graph) Dependencies(tmpl string) []string {
	return g.walk(resource.NormalizePath(tmpl), g.deps)
}

// Dependents returns every template that imports tmpl, directly or transitively.
func (g *Graph) Dependents(tmpl string) []string {
	return g.walk(resource.NormalizePath(tmpl), g.dependents)
}

func (g *Graph) walk(start string, edges map[string][]string) []string {
	seen := map[string]bool{start: true}
	queue := []string{start}
	var out []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range edges[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}
