package engine

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/bep/godartsass/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yacobolo/stylebuild/internal/logger"
	"github.com/yacobolo/stylebuild/internal/resource"
)

func TestDestination(t *testing.T) {
	loc := Location{Template: "/src/scss", CSS: "/out/css"}

	assert.Equal(t, "/out/css/main.css", destination(loc, "/src/scss/main.scss"))
	assert.Equal(t, "/out/css/admin/forms.css", destination(loc, "/src/scss/admin/forms.sass"))
}

func TestTemplateNames(t *testing.T) {
	assert.True(t, isTemplate("a.scss"))
	assert.True(t, isTemplate("a.sass"))
	assert.False(t, isTemplate("a.css"))
	assert.True(t, isPartial("/src/_vars.scss"))
	assert.False(t, isPartial("/src_/vars.scss"))
}

func TestFileURL(t *testing.T) {
	assert.Equal(t, "file:///src/main.scss", fileURL("/src/main.scss"))
	assert.Equal(t, "file:///C:/src/main.scss", fileURL("C:/src/main.scss"))
}

func TestOutputStyle(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelWarn, false)

	assert.Equal(t, godartsass.OutputStyleExpanded, outputStyle("expanded", log))
	assert.Equal(t, godartsass.OutputStyleExpanded, outputStyle("nested", log))
	assert.Equal(t, godartsass.OutputStyleCompressed, outputStyle("Compressed", log))
	assert.Empty(t, buf.String())

	assert.Equal(t, godartsass.OutputStyleExpanded, outputStyle("fancy", log))
	assert.Contains(t, buf.String(), `Unknown stylesheet output style "fancy"`)
}

func TestResolveLibraries(t *testing.T) {
	gems := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(gems, "compass", "stylesheets"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(gems, "bourbon"), 0755))

	var buf bytes.Buffer
	d := NewDartSass("", 0, logger.New(&buf, logger.LevelInfo, false))

	t.Run("found", func(t *testing.T) {
		script := BuildScript(testPairs[:1], DefaultOptions(), Libraries{
			UseCompass: true,
			LoadPaths:  []string{gems},
			Extensions: []string{"bourbon", "susy"},
		}, DirectiveCompile)

		dirs, err := d.resolveLibraries(script)
		require.NoError(t, err)
		assert.Equal(t, []string{
			resource.NormalizePath(filepath.Join(gems, "compass", "stylesheets")),
			resource.NormalizePath(filepath.Join(gems, "bourbon")),
		}, dirs)
		assert.Contains(t, buf.String(), "Stylesheet extension susy not found")
	})

	t.Run("missing required", func(t *testing.T) {
		script := BuildScript(testPairs[:1], DefaultOptions(), Libraries{UseCompass: true}, DirectiveCompile)
		_, err := d.resolveLibraries(script)
		assert.ErrorIs(t, err, ErrMissingLibrary)
	})
}

func TestEvalMissingLibraryFails(t *testing.T) {
	d := NewDartSass("", 0, logger.Discard())
	defer d.Close()

	script := BuildScript(testPairs[:1], DefaultOptions(), Libraries{UseCompass: true}, DirectiveCompile)
	err := d.Eval(context.Background(), script, NewCollector(logger.Discard(), false))
	assert.ErrorIs(t, err, ErrMissingLibrary)
}

func TestCollectSkipsMissingLocations(t *testing.T) {
	src := t.TempDir()
	writeTemplate(t, filepath.Join(src, "main.scss"), "")
	writeTemplate(t, filepath.Join(src, "_vars.scss"), "")
	writeTemplate(t, filepath.Join(src, "readme.md"), "")

	d := NewDartSass("", 0, logger.Discard())
	templates, err := d.collect(&plan{locations: []Location{
		{Template: src, CSS: "/out"},
		{Template: filepath.Join(src, "missing"), CSS: "/out/missing"},
	}})
	require.NoError(t, err)

	assert.Len(t, templates, 2)
	for _, tmpl := range templates {
		assert.Contains(t, []string{"/out/main.css", "/out/_vars.css"}, tmpl.dest)
	}
}

func requireSass(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sass"); err != nil {
		t.Skip("sass binary not found on PATH")
	}
}

func TestDartSassCompile(t *testing.T) {
	requireSass(t)

	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "css")
	writeTemplate(t, filepath.Join(src, "_vars.scss"), "$c: red;\n")
	writeTemplate(t, filepath.Join(src, "main.scss"), "@import 'vars';\nbody { color: $c; }\n")
	writeTemplate(t, filepath.Join(src, "nested", "broken.scss"), "body { color: $nope; }\n")

	d := NewDartSass("", 0, logger.Discard())
	defer d.Close()

	pairs := []resource.DirectoryPair{{SourceDir: resource.NormalizePath(src), DestDir: resource.NormalizePath(out)}}
	collector := NewCollector(logger.Discard(), false)
	require.NoError(t, d.Eval(context.Background(), BuildScript(pairs, DefaultOptions(), Libraries{}, DirectiveCompile), collector))

	css, err := os.ReadFile(filepath.Join(out, "main.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), "color: red")
	assert.NoFileExists(t, filepath.Join(out, "_vars.css"))

	errs := collector.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, resource.NormalizePath(filepath.Join(src, "nested", "broken.scss")), errs[0].SourceFile)
	assert.Contains(t, errs[0].Message, "Undefined variable")
}

func TestWriteOutputBlockedDestination(t *testing.T) {
	out := t.TempDir()
	blocker := filepath.Join(out, "skins")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))

	err := writeOutput(resource.NormalizePath(filepath.Join(blocker, "main.css")), "body {}\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create output directory")

	dest := resource.NormalizePath(filepath.Join(out, "css", "main.css"))
	require.NoError(t, writeOutput(dest, "body {}\n"))
	assert.FileExists(t, dest)
}

func TestDartSassCompileReportsWriteFailures(t *testing.T) {
	requireSass(t)

	src := t.TempDir()
	out := t.TempDir()
	writeTemplate(t, filepath.Join(src, "a", "first.scss"), "a { color: red; }\n")
	writeTemplate(t, filepath.Join(src, "b", "second.scss"), "b { color: blue; }\n")
	// The output directory of a/first.scss is taken by a plain file.
	require.NoError(t, os.WriteFile(filepath.Join(out, "a"), []byte("blocked"), 0644))

	d := NewDartSass("", 0, logger.Discard())
	defer d.Close()

	pairs := []resource.DirectoryPair{{SourceDir: resource.NormalizePath(src), DestDir: resource.NormalizePath(out)}}
	collector := NewCollector(logger.Discard(), false)
	require.NoError(t, d.Eval(context.Background(), BuildScript(pairs, DefaultOptions(), Libraries{}, DirectiveCompile), collector))

	errs := collector.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, resource.NormalizePath(filepath.Join(src, "a", "first.scss")), errs[0].SourceFile)
	assert.FileExists(t, filepath.Join(out, "b", "second.css"))
}
