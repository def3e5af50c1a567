package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, []string{OptAlwaysUpdate, OptCache, OptStyle, OptUnixNewlines}, opts.Keys())
	assert.Equal(t, "expanded", opts.Text(OptStyle))
	assert.True(t, opts.Bool(OptUnixNewlines, false))

	// Each call hands out an independent copy.
	a := DefaultOptions().With(OptStyle, "compressed")
	assert.Equal(t, "expanded", DefaultOptions().Text(OptStyle))
	assert.Equal(t, "compressed", a.Text(OptStyle))
}

func TestOptionsAreImmutable(t *testing.T) {
	base := DefaultOptions()
	derived := base.With(OptTemplateLocation, Quote("/src"))
	merged := base.Merge(map[string]string{OptStyle: ":compressed", "line_comments": "false"})

	assert.False(t, base.Has(OptTemplateLocation))
	assert.Equal(t, "expanded", base.Text(OptStyle))
	assert.Equal(t, "/src", derived.Text(OptTemplateLocation))
	assert.Equal(t, "compressed", merged.Text(OptStyle))
	assert.Equal(t, 5, merged.Len())

	values := base.Map()
	values[OptStyle] = "nested"
	assert.Equal(t, "expanded", base.Text(OptStyle))
}

func TestWithCacheLocation(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		buildDir string
		want     string
	}{
		{
			name:     "derived from build dir",
			opts:     DefaultOptions(),
			buildDir: "/project/target",
			want:     "/project/target/sass_cache",
		},
		{
			name:     "backslashes normalised",
			opts:     DefaultOptions(),
			buildDir: `C:\project\target`,
			want:     "C:/project/target/sass_cache",
		},
		{
			name:     "explicit value kept",
			opts:     DefaultOptions().With(OptCacheLocation, Quote("/tmp/cache")),
			buildDir: "/project/target",
			want:     "/tmp/cache",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts.WithCacheLocation(tt.buildDir)
			assert.Equal(t, tt.want, opts.CacheDir())
			v, _ := opts.Get(OptCacheLocation)
			assert.Equal(t, Quote(tt.want), v)
		})
	}
}

func TestOptionLiterals(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "single quoted", in: "'/tmp/a'", want: "/tmp/a"},
		{name: "double quoted", in: `"x"`, want: "x"},
		{name: "symbol", in: ":expanded", want: "expanded"},
		{name: "bare", in: " true ", want: "true"},
		{name: "escaped quote", in: `'it\'s'`, want: "it's"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unquote(tt.in))
		})
	}

	assert.Equal(t, "it's", Unquote(Quote("it's")))
	assert.Equal(t, []string{"a", "b c"}, ParseList("['a', 'b c']"))
	assert.Equal(t, []string{"x", "y"}, ParseList("x, ,y"))
	assert.Empty(t, ParseList("[]"))
}

func TestOptionsBool(t *testing.T) {
	opts := NewOptions(map[string]string{"a": "false", "b": ":yes", "c": "maybe"})

	assert.False(t, opts.Bool("a", true))
	assert.True(t, opts.Bool("b", false))
	assert.True(t, opts.Bool("c", true))
	assert.False(t, opts.Bool("missing", false))
}
