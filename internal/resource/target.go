package resource

import (
	"fmt"
	"strings"
)

// ConfigError reports a configuration problem detected before any compilation starts.
type ConfigError struct {
	Message    string
	Candidates []string // directories the user can choose from, if relevant
}

func (e *ConfigError) Error() string {
	if len(e.Candidates) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s; candidates:\n  %s", e.Message, strings.Join(e.Candidates, "\n  "))
}

// SelectTarget picks the single candidate whose relative path contains filter. Candidates come
// from WatchCandidates. Zero or multiple matches are configuration errors listing the candidates.
func SelectTarget(candidates []DirectoryPair, filter string) (DirectoryPair, error) {
	var matches []DirectoryPair
	for _, p := range candidates {
		if strings.Contains(targetName(p), filter) {
			matches = append(matches, p)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return DirectoryPair{}, &ConfigError{
			Message:    fmt.Sprintf("no stylesheet directory matches watch target %q", filter),
			Candidates: targetNames(candidates),
		}
	default:
		return DirectoryPair{}, &ConfigError{
			Message:    fmt.Sprintf("watch target %q matches %d stylesheet directories, it must match exactly one", filter, len(matches)),
			Candidates: targetNames(matches),
		}
	}
}

// WatchCandidates returns the pairs eligible for watching, given the pairs of each mapping in
// configuration order. A mapping contributes its sub-directory pairs, or its root pair when
// nothing below the root was discovered.
func WatchCandidates(mappings [][]DirectoryPair) []DirectoryPair {
	var out []DirectoryPair
	for _, pairs := range mappings {
		var subdirs []DirectoryPair
		for _, p := range pairs {
			if !p.IsRoot() {
				subdirs = append(subdirs, p)
			}
		}
		if len(subdirs) == 0 {
			subdirs = pairs
		}
		out = append(out, subdirs...)
	}
	return out
}

func targetName(p DirectoryPair) string {
	if p.IsRoot() {
		return p.SourceDir
	}
	return p.Rel
}

func targetNames(pairs []DirectoryPair) []string {
	names := make([]string, 0, len(pairs))
	for _, p := range pairs {
		names = append(names, targetName(p))
	}
	return names
}
