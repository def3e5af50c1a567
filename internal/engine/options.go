package engine

import (
	"maps"
	"slices"
	"strings"

	"github.com/yacobolo/stylebuild/internal/resource"
)

// Compiler option names understood by the runtime.
const (
	OptStyle            = "style"
	OptCache            = "cache"
	OptCacheLocation    = "cache_location"
	OptAlwaysUpdate     = "always_update"
	OptUnixNewlines     = "unix_newlines"
	OptLoadPaths        = "load_paths"
	OptTemplateLocation = "template_location"
	OptCSSLocation      = "css_location"
)

// Options is an immutable set of compiler options. Values are literals in the compiler's
// option syntax, so strings may carry their own quotes ('/tmp/sass').
// Every method that changes a value returns a new set.
type Options struct {
	values map[string]string
}

// DefaultOptions returns a fresh copy of the default option set.
func DefaultOptions() Options {
	return Options{values: map[string]string{
		OptUnixNewlines: "true",
		OptCache:        "true",
		OptAlwaysUpdate: "true",
		OptStyle:        "expanded",
	}}
}

// NewOptions creates an option set holding a copy of values.
func NewOptions(values map[string]string) Options {
	return Options{values: maps.Clone(values)}
}

// Get returns the literal value of key.
func (o Options) Get(key string) (string, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is set.
func (o Options) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Len returns the number of options.
func (o Options) Len() int {
	return len(o.values)
}

// Keys returns the option names in sorted order.
func (o Options) Keys() []string {
	var keys []string
	for k := range o.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Map returns a copy of the underlying values.
func (o Options) Map() map[string]string {
	if o.values == nil {
		return map[string]string{}
	}
	return maps.Clone(o.values)
}

// With returns a copy of o with key set to value.
func (o Options) With(key, value string) Options {
	values := o.Map()
	values[key] = value
	return Options{values: values}
}

// Merge returns a copy of o overlaid with overrides, key by key.
func (o Options) Merge(overrides map[string]string) Options {
	values := o.Map()
	maps.Copy(values, overrides)
	return Options{values: values}
}

// WithCacheLocation derives cache_location from the build directory unless it is already set.
func (o Options) WithCacheLocation(buildDir string) Options {
	if o.Has(OptCacheLocation) {
		return o
	}
	return o.With(OptCacheLocation, Quote(resource.NormalizePath(buildDir+"/sass_cache")))
}

// CacheDir returns the unquoted cache location, or "" when unset.
func (o Options) CacheDir() string {
	v, _ := o.Get(OptCacheLocation)
	return Unquote(v)
}

// Text reads key as a plain string, stripping literal quotes.
func (o Options) Text(key string) string {
	v, _ := o.Get(key)
	return Unquote(v)
}

// Bool reads key as a boolean literal, falling back to def when unset or not a boolean.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o.Get(key)
	if !ok {
		return def
	}
	switch strings.ToLower(Unquote(v)) {
	case "true", "yes", "on", "1":
		return true
	case "false", "no", "off", "0", "nil":
		return false
	}
	return def
}

// List reads key as a list literal: ['a', 'b'] or a comma separated string.
func (o Options) List(key string) []string {
	v, ok := o.Get(key)
	if !ok {
		return nil
	}
	return ParseList(v)
}

// MarshalYAML renders options as a plain mapping.
func (o Options) MarshalYAML() (any, error) {
	return o.Map(), nil
}

// Quote wraps s as a single-quoted string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// Unquote strips surrounding quotes and a leading symbol colon (:expanded) from a literal.
func Unquote(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '\'' || first == '"') && first == last {
			return strings.ReplaceAll(v[1:len(v)-1], `\`+string(first), string(first))
		}
	}
	return strings.TrimPrefix(v, ":")
}

// ParseList splits a list literal into unquoted, non-empty elements.
func ParseList(v string) []string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "[")
	v = strings.TrimSuffix(v, "]")

	var out []string
	for _, part := range strings.Split(v, ",") {
		if item := Unquote(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
